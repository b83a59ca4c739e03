// Package reporter renders the pivot summary of a reconciliation run.
//
// Supported output formats:
//   - Console: aligned text table with thousands separators
//   - CSV: one header row, one row per category plus Total
//   - JSON and YAML: the table, the category allow-list and the run statistics
//   - XLSX: a single worksheet holding the table
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatCSV})
//	err = generator.GenerateReport(outcome, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"

	"sales-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatYAML    OutputFormat = "yaml"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatYAML, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format must not be written to a terminal.
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Decimals is the number of fractional digits shown on the console.
	Decimals int `json:"decimals" mapstructure:"decimals"`

	// IncludeSummary appends run statistics to console output.
	IncludeSummary bool `json:"include_summary" mapstructure:"include_summary"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`

	// ExportDecimals is the number of fractional digits of csv, json, yaml
	// and xlsx values.
	ExportDecimals int `json:"export_decimals" mapstructure:"export_decimals"`

	// SheetName names the xlsx worksheet.
	SheetName string `json:"sheet_name" mapstructure:"sheet_name"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		Decimals:       0,
		IncludeSummary: false,
		CSVDelimiter:   ',',
		ExportDecimals: 2,
		SheetName:      "Pivot",
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.Decimals < 0 || c.Decimals > 8 {
		return fmt.Errorf("decimals must be between 0 and 8, got %d", c.Decimals)
	}
	if c.ExportDecimals < 0 || c.ExportDecimals > 8 {
		return fmt.Errorf("export decimals must be between 0 and 8, got %d", c.ExportDecimals)
	}
	if c.Format == FormatXLSX && strings.TrimSpace(c.SheetName) == "" {
		return fmt.Errorf("sheet name cannot be empty for xlsx output")
	}
	return nil
}

// ReportGenerator generates pivot reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders the outcome's pivot table and writes it to writer
func (rg *ReportGenerator) GenerateReport(outcome *reconciler.Outcome, writer io.Writer) error {
	if outcome == nil || outcome.Table == nil {
		return fmt.Errorf("reconciliation outcome cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(outcome, writer)
	case FormatJSON:
		return rg.generateJSONReport(outcome, writer)
	case FormatCSV:
		return rg.generateCSVReport(outcome, writer)
	case FormatYAML:
		return rg.generateYAMLReport(outcome, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(outcome, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport prints the table right-aligned
func (rg *ReportGenerator) generateConsoleReport(outcome *reconciler.Outcome, writer io.Writer) error {
	table := outcome.Table
	printer := message.NewPrinter(language.English)

	fmt.Fprintf(writer, "SALES BY %s\n", strings.ToUpper(table.RowHeader()))
	if table.IsEmpty() {
		fmt.Fprintf(writer, "(no reconciled sales for the selected categories)\n")
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\t\n", table.RowHeader(), strings.Join(table.Columns(), "\t"))
	values := table.Values()
	for i, label := range table.Rows() {
		cells := make([]string, len(values[i]))
		for j, value := range values[i] {
			cells[j] = rg.formatConsoleValue(printer, value)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", label, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write console table: %w", err)
	}

	if rg.config.IncludeSummary && outcome.Result != nil {
		fmt.Fprintf(writer, "\n=== RUN SUMMARY ===\n")
		rg.printSummary(outcome, writer)
	}

	return nil
}

func (rg *ReportGenerator) formatConsoleValue(printer *message.Printer, value decimal.Decimal) string {
	rounded := value.RoundBank(int32(rg.config.Decimals))
	return printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(rg.config.Decimals)))
}

func (rg *ReportGenerator) printSummary(outcome *reconciler.Outcome, writer io.Writer) {
	stats := outcome.Result.Stats
	fmt.Fprintf(writer, "Run ID:                %s\n", outcome.RunID)
	fmt.Fprintf(writer, "Categories:            %s\n", strings.Join(outcome.Categories, ", "))
	fmt.Fprintf(writer, "Sales:                 %d\n", stats.Sales)
	fmt.Fprintf(writer, "Price list entries:    %d (%d solution, %d not solution)\n",
		stats.PriceEntries, stats.SolutionEntries, stats.NotSolutionEntries)
	fmt.Fprintf(writer, "Matched on price:      %d\n", stats.MatchedA)
	fmt.Fprintf(writer, "Matched on code:       %d\n", stats.MatchedB)
	fmt.Fprintf(writer, "Sales without price:   %d\n", stats.UnpricedSales)
	fmt.Fprintf(writer, "Unclassified sales:    %d (%.1f%%)\n",
		stats.DroppedSales, calculatePercentage(stats.DroppedSales, stats.Sales))
	fmt.Fprintf(writer, "Grand total:           %s\n", outcome.Table.GrandTotal().StringFixed(2))
	fmt.Fprintf(writer, "Processing duration:   %v\n", outcome.Duration.Round(time.Millisecond))
}

// generateCSVReport writes the table as delimited text
func (rg *ReportGenerator) generateCSVReport(outcome *reconciler.Outcome, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	if rg.config.CSVDelimiter != 0 {
		csvWriter.Comma = rg.config.CSVDelimiter
	}

	for _, record := range outcome.Table.Matrix(int32(rg.config.ExportDecimals)) {
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// reportDocument is the structured form shared by JSON and YAML output
type reportDocument struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Categories  []string          `json:"categories" yaml:"categories"`
	RowHeader   string            `json:"row_header" yaml:"row_header"`
	Columns     []string          `json:"columns" yaml:"columns"`
	Rows        []reportRow       `json:"rows" yaml:"rows"`
	GrandTotal  string            `json:"grand_total" yaml:"grand_total"`
	Stats       *reconciler.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

type reportRow struct {
	Label  string   `json:"label" yaml:"label"`
	Values []string `json:"values" yaml:"values"`
}

func (rg *ReportGenerator) buildDocument(outcome *reconciler.Outcome) *reportDocument {
	table := outcome.Table
	places := int32(rg.config.ExportDecimals)

	doc := &reportDocument{
		RunID:       outcome.RunID,
		GeneratedAt: outcome.ProcessedAt,
		Categories:  outcome.Categories,
		RowHeader:   table.RowHeader(),
		Columns:     table.Columns(),
		GrandTotal:  table.GrandTotal().StringFixed(places),
	}
	if outcome.Result != nil {
		stats := outcome.Result.Stats
		doc.Stats = &stats
	}

	values := table.Values()
	for i, label := range table.Rows() {
		row := reportRow{Label: label, Values: make([]string, len(values[i]))}
		for j, value := range values[i] {
			row.Values[j] = value.StringFixed(places)
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(outcome *reconciler.Outcome, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rg.buildDocument(outcome))
}

// generateYAMLReport generates a structured YAML report
func (rg *ReportGenerator) generateYAMLReport(outcome *reconciler.Outcome, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(rg.buildDocument(outcome)); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return encoder.Close()
}

// generateXLSXReport writes a workbook with one sheet holding the table
func (rg *ReportGenerator) generateXLSXReport(outcome *reconciler.Outcome, writer io.Writer) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := rg.config.SheetName
	if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	table := outcome.Table
	header := append([]interface{}{table.RowHeader()}, toInterfaces(table.Columns())...)
	if err := setRow(book, sheet, 1, header); err != nil {
		return err
	}

	places := int32(rg.config.ExportDecimals)
	values := table.Values()
	for i, label := range table.Rows() {
		row := []interface{}{label}
		for _, value := range values[i] {
			row = append(row, value.Round(places).InexactFloat64())
		}
		if err := setRow(book, sheet, i+2, row); err != nil {
			return err
		}
	}

	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = book.SetCellStyle(sheet, "A1", lastCell, bold)
	}

	if _, err := book.WriteTo(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(book *excelize.File, sheet string, rowNumber int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	if err := book.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write worksheet row %d: %w", rowNumber, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
