// Package config turns layered viper settings (flags, environment, config
// file) into the configuration structs of the internal packages.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"sales-reconciliation-service/internal/parsers"
	"sales-reconciliation-service/internal/pivot"
	"sales-reconciliation-service/internal/reconciler"
	"sales-reconciliation-service/internal/reporter"
	"sales-reconciliation-service/pkg/logger"
)

// Setting keys shared by flags, environment variables and config files.
const (
	KeySalesFile      = "sales.file"
	KeySalesSheet     = "sales.sheet"
	KeyPriceListFile  = "price_list.file"
	KeyPriceListSheet = "price_list.sheet"
	KeySolutions      = "solutions"
	KeyParallel       = "parallel"
	KeyOutputFormat   = "output.format"
	KeyOutputFile     = "output.file"
	KeyDecimals       = "output.decimals"
	KeyExportDecimals = "output.export_decimals"
	KeySummary        = "output.summary"
	KeySheetName      = "output.sheet_name"
	KeyCSVDelimiter   = "output.csv_delimiter"
	KeyVerbose        = "verbose"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyLogFile        = "log.file"
)

// SetDefaults registers the default of every setting that is not a flag.
func SetDefaults(v *viper.Viper) {
	sales := parsers.DefaultSalesSourceConfig()
	v.SetDefault("sales.order_date_column", sales.OrderDateColumn)
	v.SetDefault("sales.amount_column", sales.AmountColumn)
	v.SetDefault("sales.quantity_column", sales.QuantityColumn)
	v.SetDefault("sales.code_column", sales.CodeColumn)
	v.SetDefault("sales.delimiter", string(sales.Delimiter))

	prices := parsers.DefaultPriceListSourceConfig()
	v.SetDefault("price_list.price_column", prices.PriceColumn)
	v.SetDefault("price_list.code_column", prices.CodeColumn)
	v.SetDefault("price_list.solution_column", prices.SolutionColumn)
	v.SetDefault("price_list.from_column", prices.FromColumn)
	v.SetDefault("price_list.to_column", prices.ToColumn)
	v.SetDefault("price_list.delimiter", string(prices.Delimiter))

	report := reporter.DefaultReportConfig()
	v.SetDefault(KeyExportDecimals, report.ExportDecimals)
	v.SetDefault(KeySheetName, report.SheetName)
	v.SetDefault(KeyCSVDelimiter, string(report.CSVDelimiter))

	v.SetDefault("pivot.row_header", pivot.DefaultRowHeader)
	v.SetDefault("pivot.total_label", pivot.DefaultTotalLabel)
	v.SetDefault("pivot.undated_label", pivot.DefaultUndatedLabel)

	v.SetDefault(KeyLogLevel, string(logger.WarnLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// CreateSalesSourceConfig builds the sales column layout
func CreateSalesSourceConfig(v *viper.Viper) (*parsers.SalesSourceConfig, error) {
	delimiter, err := parseDelimiter(v.GetString("sales.delimiter"))
	if err != nil {
		return nil, fmt.Errorf("invalid sales delimiter: %w", err)
	}

	config := parsers.DefaultSalesSourceConfig()
	config.OrderDateColumn = v.GetString("sales.order_date_column")
	config.AmountColumn = v.GetString("sales.amount_column")
	config.QuantityColumn = v.GetString("sales.quantity_column")
	config.CodeColumn = v.GetString("sales.code_column")
	config.ColumnAliases = v.GetStringMapString("sales.column_aliases")
	config.Sheet = v.GetString(KeySalesSheet)
	config.Delimiter = delimiter
	if layouts := v.GetStringSlice("sales.date_layouts"); len(layouts) > 0 {
		config.DateLayouts = layouts
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sales config: %w", err)
	}
	return config, nil
}

// CreatePriceListSourceConfig builds the price-list column layout
func CreatePriceListSourceConfig(v *viper.Viper) (*parsers.PriceListSourceConfig, error) {
	delimiter, err := parseDelimiter(v.GetString("price_list.delimiter"))
	if err != nil {
		return nil, fmt.Errorf("invalid price list delimiter: %w", err)
	}

	config := parsers.DefaultPriceListSourceConfig()
	config.PriceColumn = v.GetString("price_list.price_column")
	config.CodeColumn = v.GetString("price_list.code_column")
	config.SolutionColumn = v.GetString("price_list.solution_column")
	config.FromColumn = v.GetString("price_list.from_column")
	config.ToColumn = v.GetString("price_list.to_column")
	config.ColumnAliases = v.GetStringMapString("price_list.column_aliases")
	config.Sheet = v.GetString(KeyPriceListSheet)
	config.Delimiter = delimiter
	if layouts := v.GetStringSlice("price_list.date_layouts"); len(layouts) > 0 {
		config.DateLayouts = layouts
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price list config: %w", err)
	}
	return config, nil
}

// CreateReconcilerConfig creates a reconciler configuration
func CreateReconcilerConfig(v *viper.Viper) (*reconciler.Config, error) {
	sales, err := CreateSalesSourceConfig(v)
	if err != nil {
		return nil, err
	}
	prices, err := CreatePriceListSourceConfig(v)
	if err != nil {
		return nil, err
	}

	config := reconciler.DefaultConfig()
	config.Parallel = v.GetBool(KeyParallel)
	config.Sales = sales
	config.PriceList = prices

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciler config: %w", err)
	}
	return config, nil
}

// CreatePivotOptions reads the table labels. Categories stay nil; the
// allow-list travels on the request.
func CreatePivotOptions(v *viper.Viper) *pivot.Options {
	options := pivot.DefaultOptions()
	if header := v.GetString("pivot.row_header"); header != "" {
		options.RowHeader = header
	}
	if label := v.GetString("pivot.total_label"); label != "" {
		options.TotalLabel = label
	}
	if label := v.GetString("pivot.undated_label"); label != "" {
		options.UndatedLabel = label
	}
	return options
}

// CreateReportConfig creates a report configuration
func CreateReportConfig(v *viper.Viper) (*reporter.ReportConfig, error) {
	delimiter, err := parseDelimiter(v.GetString(KeyCSVDelimiter))
	if err != nil {
		return nil, fmt.Errorf("invalid csv delimiter: %w", err)
	}

	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(v.GetString(KeyOutputFormat)))
	if config.Format == "" {
		config.Format = reporter.FormatConsole
	}
	config.Decimals = v.GetInt(KeyDecimals)
	config.ExportDecimals = v.GetInt(KeyExportDecimals)
	config.IncludeSummary = v.GetBool(KeySummary)
	config.SheetName = v.GetString(KeySheetName)
	config.CSVDelimiter = delimiter

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateLoggerConfig creates the logger configuration. Verbose forces debug
// level; logs always go to stderr or a file so stdout carries only the report.
func CreateLoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()
	config.Level = logger.Level(strings.ToLower(v.GetString(KeyLogLevel)))
	config.Format = logger.Format(strings.ToLower(v.GetString(KeyLogFormat)))
	config.Output = logger.StderrOutput
	if file := v.GetString(KeyLogFile); file != "" {
		config.Output = logger.FileOutput
		config.File = file
	}
	if v.GetBool(KeyVerbose) {
		config.Level = logger.DebugLevel
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseCategories cleans the --solutions values. It returns nil when no
// usable value was given so that every category is selected.
func ParseCategories(value interface{}) ([]string, error) {
	var raw []string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		// env values arrive as one comma-separated string
		raw = []string{v}
	default:
		var err error
		if raw, err = cast.ToStringSliceE(v); err != nil {
			return nil, fmt.Errorf("invalid solutions list: %w", err)
		}
	}

	var categories []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				categories = append(categories, part)
			}
		}
	}
	return categories, nil
}

func parseDelimiter(value string) (rune, error) {
	switch value {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}
