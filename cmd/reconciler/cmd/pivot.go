package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sales-reconciliation-service/cmd/reconciler/config"
	"sales-reconciliation-service/internal/reconciler"
	"sales-reconciliation-service/internal/reporter"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// appFs is the filesystem every input and output goes through
var appFs = afero.NewOsFs()

// Flags for the pivot command
var (
	salesFile     string
	priceListFile string
	solutions     []string
	outputFormat  string
	outputFile    string
	decimals      int
)

// pivotCmd represents the pivot command
var pivotCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Summarise sales by solution category and order date",
	Long: `Pivot classifies every sale of the sales file with the category of a
matching price list entry and prints the total sales amount per category and
order date, with a Total row and a Total column.

Both files may be xlsx, csv or json. The sales file needs the columns
"Order Date", "Sale Amount", "Sale Quantity" and "Sale Code"; the price list
needs "Sale Price", "Sale Code", "Solution", "From" and "To". Column names
can be changed in the config file.

Examples:
  # Console table of every category
  reconciler pivot --sales sales.xlsx --price-list prices.xlsx

  # Only the solution row, exported as csv
  reconciler pivot -s sales.xlsx -p prices.xlsx --solutions solution \
    --output-format csv --output-file pivot.csv

  # Worksheet export with run statistics in the log
  reconciler pivot -s sales.xlsx -p prices.xlsx -f xlsx -o pivot.xlsx --verbose`,

	PreRunE: validatePivotFlags,
	RunE:    runPivot,
}

func init() {
	rootCmd.AddCommand(pivotCmd)

	// Required flags
	pivotCmd.Flags().StringVarP(&salesFile, "sales", "s", "", "path to the sales file (required)")
	pivotCmd.Flags().StringVarP(&priceListFile, "price-list", "p", "", "path to the price list file (required)")

	// Selection flags
	pivotCmd.Flags().StringSliceVar(&solutions, "solutions", nil, "comma-separated categories to show (default: all)")
	pivotCmd.Flags().String("sales-sheet", "", "worksheet of the sales workbook (default: first)")
	pivotCmd.Flags().String("price-sheet", "", "worksheet of the price list workbook (default: first)")
	pivotCmd.Flags().Bool("parallel", false, "run the price and code matching passes concurrently")

	// Output flags
	pivotCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, csv, json, yaml, xlsx")
	pivotCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	pivotCmd.Flags().IntVar(&decimals, "decimals", 0, "fractional digits shown on the console")
	pivotCmd.Flags().Bool("summary", false, "append run statistics to console output")

	// Bind flags to viper
	viper.BindPFlag(config.KeySalesFile, pivotCmd.Flags().Lookup("sales"))
	viper.BindPFlag(config.KeyPriceListFile, pivotCmd.Flags().Lookup("price-list"))
	viper.BindPFlag(config.KeySolutions, pivotCmd.Flags().Lookup("solutions"))
	viper.BindPFlag(config.KeySalesSheet, pivotCmd.Flags().Lookup("sales-sheet"))
	viper.BindPFlag(config.KeyPriceListSheet, pivotCmd.Flags().Lookup("price-sheet"))
	viper.BindPFlag(config.KeyParallel, pivotCmd.Flags().Lookup("parallel"))
	viper.BindPFlag(config.KeyOutputFormat, pivotCmd.Flags().Lookup("output-format"))
	viper.BindPFlag(config.KeyOutputFile, pivotCmd.Flags().Lookup("output-file"))
	viper.BindPFlag(config.KeyDecimals, pivotCmd.Flags().Lookup("decimals"))
	viper.BindPFlag(config.KeySummary, pivotCmd.Flags().Lookup("summary"))
}

func validatePivotFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	salesFile = viper.GetString(config.KeySalesFile)
	priceListFile = viper.GetString(config.KeyPriceListFile)
	outputFormat = strings.ToLower(viper.GetString(config.KeyOutputFormat))
	outputFile = viper.GetString(config.KeyOutputFile)
	decimals = viper.GetInt(config.KeyDecimals)

	var err error
	if solutions, err = config.ParseCategories(viper.Get(config.KeySolutions)); err != nil {
		return flagError(errors.CodeInvalidConfig, "solutions", viper.Get(config.KeySolutions), err)
	}

	// Validate required flags
	if salesFile == "" {
		return flagError(errors.CodeMissingConfig, "sales", "", fmt.Errorf("--sales is required"))
	}
	if priceListFile == "" {
		return flagError(errors.CodeMissingConfig, "price-list", "", fmt.Errorf("--price-list is required"))
	}

	// Validate file existence
	if err := validateFileExists(salesFile, "sales file"); err != nil {
		return err
	}
	if err := validateFileExists(priceListFile, "price list file"); err != nil {
		return err
	}

	format := reporter.OutputFormat(outputFormat)
	if !format.IsValid() {
		return flagError(errors.CodeUnsupportedFormat, "output-format", outputFormat,
			fmt.Errorf("invalid output format '%s'. Valid formats: console, csv, json, yaml, xlsx", outputFormat))
	}
	if format.IsBinary() && outputFile == "" {
		return flagError(errors.CodeMissingConfig, "output-file", "", fmt.Errorf("%s output requires --output-file", format))
	}

	if decimals < 0 || decimals > 8 {
		return flagError(errors.CodeInvalidConfig, "decimals", decimals, fmt.Errorf("decimals must be between 0 and 8, got %d", decimals))
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return flagError(errors.CodeMissingConfig, "input_file", "", fmt.Errorf("%s path cannot be empty", description))
	}

	info, err := appFs.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return errors.FileError(errors.CodeDirectoryError, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, filePath,
			fmt.Errorf("%s is a directory, expected a file", description))
	}

	return nil
}

func runPivot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.GetGlobalLogger().WithComponent("cli")

	log.WithFields(logger.Fields{
		"sales_file":      salesFile,
		"price_list_file": priceListFile,
		"output_format":   outputFormat,
		"output_file":     outputFile,
	}).Debug("Starting pivot command")

	// Create configurations
	reconcilerConfig, err := config.CreateReconcilerConfig(viper.GetViper())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err).
			WithSuggestion("check the sales and price_list sections of the config file")
	}

	reportConfig, err := config.CreateReportConfig(viper.GetViper())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output", outputFormat, err)
	}

	service, err := reconciler.NewReconciliationService(appFs, reconcilerConfig)
	if err != nil {
		return err
	}

	request := &reconciler.Request{
		SalesFile:     salesFile,
		PriceListFile: priceListFile,
		Categories:    solutions,
		Pivot:         config.CreatePivotOptions(viper.GetViper()),
	}

	outcome, err := service.Process(ctx, request)
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, appFs, log)
	if err != nil {
		return err
	}

	if outputFile != "" {
		err = generator.WriteReportFile(outcome, outputFile)
	} else {
		err = generator.GenerateReportSafely(outcome, cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}

	if viper.GetBool(config.KeyVerbose) {
		printRunStats(cmd, outcome)
	}

	return nil
}

func printRunStats(cmd *cobra.Command, outcome *reconciler.Outcome) {
	stats := outcome.Result.Stats
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\nReconciliation %s completed.\n", outcome.RunID)
	fmt.Fprintf(w, "Processed %d sales against %d price list entries.\n", stats.Sales, stats.PriceEntries)
	fmt.Fprintf(w, "Matched %d on code and price, %d on code only; %d sales left unclassified.\n",
		stats.MatchedA, stats.MatchedB, stats.DroppedSales)
	if stats.UnpricedSales > 0 {
		fmt.Fprintf(w, "%d sales had no positive quantity and could not be priced.\n", stats.UnpricedSales)
	}
	fmt.Fprintf(w, "Processing time: %v\n", outcome.Duration)
}

// flagError reports a bad flag with the reason as its message
func flagError(code errors.ErrorCode, flag string, value interface{}, err error) error {
	return errors.Wrap(err, errors.CategoryConfiguration, code, err.Error()).
		WithContext("flag", flag).
		WithContext("value", value).
		WithSuggestion("run 'reconciler pivot --help' for the available options")
}
