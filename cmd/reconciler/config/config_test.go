package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"sales-reconciliation-service/internal/pivot"
	"sales-reconciliation-service/internal/reporter"
	"sales-reconciliation-service/pkg/logger"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestCreateSalesSourceConfig(t *testing.T) {
	config, err := CreateSalesSourceConfig(newTestViper())
	if err != nil {
		t.Fatalf("failed to create sales source config: %v", err)
	}

	if config.OrderDateColumn != "Order Date" {
		t.Errorf("expected OrderDateColumn 'Order Date', got '%s'", config.OrderDateColumn)
	}
	if config.AmountColumn != "Sale Amount" {
		t.Errorf("expected AmountColumn 'Sale Amount', got '%s'", config.AmountColumn)
	}
	if config.QuantityColumn != "Sale Quantity" {
		t.Errorf("expected QuantityColumn 'Sale Quantity', got '%s'", config.QuantityColumn)
	}
	if config.CodeColumn != "Sale Code" {
		t.Errorf("expected CodeColumn 'Sale Code', got '%s'", config.CodeColumn)
	}
	if config.Delimiter != ',' {
		t.Errorf("expected Delimiter ',', got '%c'", config.Delimiter)
	}
	if len(config.DateLayouts) == 0 {
		t.Error("expected default date layouts")
	}
}

func TestCreateSalesSourceConfig_Overrides(t *testing.T) {
	v := newTestViper()
	v.Set("sales.amount_column", "Revenue")
	v.Set("sales.delimiter", ";")
	v.Set("sales.column_aliases", map[string]interface{}{"code": "SKU"})
	v.Set("sales.date_layouts", []string{"02.01.2006"})
	v.Set(KeySalesSheet, "Orders")

	config, err := CreateSalesSourceConfig(v)
	if err != nil {
		t.Fatalf("failed to create sales source config: %v", err)
	}

	if config.AmountColumn != "Revenue" {
		t.Errorf("expected AmountColumn 'Revenue', got '%s'", config.AmountColumn)
	}
	if config.Delimiter != ';' {
		t.Errorf("expected Delimiter ';', got '%c'", config.Delimiter)
	}
	if config.GetColumnName("code") != "SKU" {
		t.Errorf("expected 'code' alias to map to 'SKU', got '%s'", config.GetColumnName("code"))
	}
	if !reflect.DeepEqual(config.DateLayouts, []string{"02.01.2006"}) {
		t.Errorf("unexpected date layouts %v", config.DateLayouts)
	}
	if config.Sheet != "Orders" {
		t.Errorf("expected sheet 'Orders', got '%s'", config.Sheet)
	}
}

func TestCreatePriceListSourceConfig(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
	}{
		{
			name:  "defaults",
			setup: func(v *viper.Viper) {},
		},
		{
			name: "tab delimiter",
			setup: func(v *viper.Viper) {
				v.Set("price_list.delimiter", `\t`)
			},
		},
		{
			name: "empty solution column",
			setup: func(v *viper.Viper) {
				v.Set("price_list.solution_column", " ")
			},
			expectError: true,
		},
		{
			name: "multi-character delimiter",
			setup: func(v *viper.Viper) {
				v.Set("price_list.delimiter", "||")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper()
			tt.setup(v)

			config, err := CreatePriceListSourceConfig(v)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.SolutionColumn != "Solution" || config.FromColumn != "From" || config.ToColumn != "To" {
				t.Errorf("unexpected price list columns: %+v", config)
			}
		})
	}
}

func TestCreateReconcilerConfig(t *testing.T) {
	v := newTestViper()
	v.Set(KeyParallel, true)

	config, err := CreateReconcilerConfig(v)
	if err != nil {
		t.Fatalf("failed to create reconciler config: %v", err)
	}
	if !config.Parallel {
		t.Error("expected Parallel to be true")
	}
	if config.Sales == nil || config.PriceList == nil {
		t.Fatal("expected source configs to be set")
	}
	if config.PriceList.PriceColumn != "Sale Price" {
		t.Errorf("expected PriceColumn 'Sale Price', got '%s'", config.PriceList.PriceColumn)
	}

	v.Set("sales.code_column", "")
	if _, err := CreateReconcilerConfig(v); err == nil {
		t.Error("expected error for empty sales code column")
	}
}

func TestCreatePivotOptions(t *testing.T) {
	v := newTestViper()
	options := CreatePivotOptions(v)
	if options.RowHeader != pivot.DefaultRowHeader || options.TotalLabel != pivot.DefaultTotalLabel {
		t.Errorf("unexpected default labels: %+v", options)
	}
	if options.Categories != nil {
		t.Errorf("expected nil categories, got %v", options.Categories)
	}

	v.Set("pivot.undated_label", "No date")
	if options := CreatePivotOptions(v); options.UndatedLabel != "No date" {
		t.Errorf("expected undated label override, got '%s'", options.UndatedLabel)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		decimals       int
		expectedFormat reporter.OutputFormat
		expectError    bool
	}{
		{name: "empty format defaults to console", format: "", expectedFormat: reporter.FormatConsole},
		{name: "upper case json", format: "JSON", expectedFormat: reporter.FormatJSON},
		{name: "xlsx", format: "xlsx", expectedFormat: reporter.FormatXLSX},
		{name: "unknown format", format: "html", expectError: true},
		{name: "negative decimals", format: "csv", decimals: -1, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper()
			v.Set(KeyOutputFormat, tt.format)
			v.Set(KeyDecimals, tt.decimals)

			config, err := CreateReportConfig(v)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.expectedFormat {
				t.Errorf("expected format %s, got %s", tt.expectedFormat, config.Format)
			}
			if config.ExportDecimals != 2 || config.SheetName != "Pivot" || config.CSVDelimiter != ',' {
				t.Errorf("unexpected export defaults: %+v", config)
			}
		})
	}
}

func TestCreateLoggerConfig(t *testing.T) {
	v := newTestViper()
	config, err := CreateLoggerConfig(v)
	if err != nil {
		t.Fatalf("failed to create logger config: %v", err)
	}
	if config.Level != logger.WarnLevel || config.Output != logger.StderrOutput {
		t.Errorf("unexpected logger defaults: %+v", config)
	}

	v.Set(KeyVerbose, true)
	v.Set(KeyLogFormat, "JSON")
	v.Set(KeyLogFile, "run.log")
	config, err = CreateLoggerConfig(v)
	if err != nil {
		t.Fatalf("failed to create logger config: %v", err)
	}
	if config.Level != logger.DebugLevel || config.Format != logger.JSONFormat {
		t.Errorf("expected verbose json logging, got %+v", config)
	}
	if config.Output != logger.FileOutput || config.File != "run.log" {
		t.Errorf("expected file output, got %+v", config)
	}

	v.Set(KeyVerbose, false)
	v.Set(KeyLogLevel, "loud")
	if _, err := CreateLoggerConfig(v); err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("expected invalid log level error, got %v", err)
	}
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected []string
	}{
		{name: "nil", value: nil, expected: nil},
		{name: "empty slice", value: []string{}, expected: nil},
		{name: "blank entries", value: []string{" ", ""}, expected: nil},
		{name: "slice", value: []string{"solution", "not solution"}, expected: []string{"solution", "not solution"}},
		{name: "comma string", value: "solution, not solution", expected: []string{"solution", "not solution"}},
		{name: "interface slice", value: []interface{}{"Solution"}, expected: []string{"Solution"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategories(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %#v, got %#v", tt.expected, got)
			}
		})
	}
}
