package parsers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Logical column names used as keys of ColumnAliases.
const (
	ColumnOrderDate = "order_date"
	ColumnAmount    = "amount"
	ColumnQuantity  = "quantity"
	ColumnCode      = "code"
	ColumnPrice     = "price"
	ColumnSolution  = "solution"
	ColumnFrom      = "from"
	ColumnTo        = "to"
)

// DefaultDateLayouts are tried in order before the generic fallback parser.
// Slash and dash forms are month-first.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/2006 15:04",
}

// SalesSourceConfig describes where the sales columns live in a source file
type SalesSourceConfig struct {
	OrderDateColumn string            `json:"order_date_column" mapstructure:"order_date_column"`
	AmountColumn    string            `json:"amount_column" mapstructure:"amount_column"`
	QuantityColumn  string            `json:"quantity_column" mapstructure:"quantity_column"`
	CodeColumn      string            `json:"code_column" mapstructure:"code_column"`
	ColumnAliases   map[string]string `json:"column_aliases,omitempty" mapstructure:"column_aliases"`
	Sheet           string            `json:"sheet,omitempty" mapstructure:"sheet"`
	Delimiter       rune              `json:"delimiter" mapstructure:"delimiter"`
	DateLayouts     []string          `json:"date_layouts,omitempty" mapstructure:"date_layouts"`
}

// DefaultSalesSourceConfig returns the column layout of the sales workbook
func DefaultSalesSourceConfig() *SalesSourceConfig {
	return &SalesSourceConfig{
		OrderDateColumn: "Order Date",
		AmountColumn:    "Sale Amount",
		QuantityColumn:  "Sale Quantity",
		CodeColumn:      "Sale Code",
		ColumnAliases:   make(map[string]string),
		Delimiter:       ',',
		DateLayouts:     DefaultDateLayouts,
	}
}

// Validate checks if the sales source configuration is valid
func (c *SalesSourceConfig) Validate() error {
	columns := map[string]string{
		"order date column": c.OrderDateColumn,
		"amount column":     c.AmountColumn,
		"quantity column":   c.QuantityColumn,
		"code column":       c.CodeColumn,
	}
	for label, value := range columns {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", label)
		}
	}
	return validateDelimiter(c.Delimiter)
}

// GetColumnName returns the actual column name, checking aliases first
func (c *SalesSourceConfig) GetColumnName(standardName string) string {
	if alias, exists := c.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case ColumnOrderDate:
		return c.OrderDateColumn
	case ColumnAmount:
		return c.AmountColumn
	case ColumnQuantity:
		return c.QuantityColumn
	case ColumnCode:
		return c.CodeColumn
	default:
		return standardName
	}
}

func (c *SalesSourceConfig) columns() []columnRef {
	return []columnRef{
		c.ref(ColumnOrderDate, c.OrderDateColumn),
		c.ref(ColumnAmount, c.AmountColumn),
		c.ref(ColumnQuantity, c.QuantityColumn),
		c.ref(ColumnCode, c.CodeColumn),
	}
}

func (c *SalesSourceConfig) ref(name, configured string) columnRef {
	return columnRef{name: name, candidates: []string{c.ColumnAliases[name], configured}}
}

// PriceListSourceConfig describes where the price-list columns live in a source file
type PriceListSourceConfig struct {
	PriceColumn    string            `json:"price_column" mapstructure:"price_column"`
	CodeColumn     string            `json:"code_column" mapstructure:"code_column"`
	SolutionColumn string            `json:"solution_column" mapstructure:"solution_column"`
	FromColumn     string            `json:"from_column" mapstructure:"from_column"`
	ToColumn       string            `json:"to_column" mapstructure:"to_column"`
	ColumnAliases  map[string]string `json:"column_aliases,omitempty" mapstructure:"column_aliases"`
	Sheet          string            `json:"sheet,omitempty" mapstructure:"sheet"`
	Delimiter      rune              `json:"delimiter" mapstructure:"delimiter"`
	DateLayouts    []string          `json:"date_layouts,omitempty" mapstructure:"date_layouts"`
}

// DefaultPriceListSourceConfig returns the column layout of the price-list workbook
func DefaultPriceListSourceConfig() *PriceListSourceConfig {
	return &PriceListSourceConfig{
		PriceColumn:    "Sale Price",
		CodeColumn:     "Sale Code",
		SolutionColumn: "Solution",
		FromColumn:     "From",
		ToColumn:       "To",
		ColumnAliases:  make(map[string]string),
		Delimiter:      ',',
		DateLayouts:    DefaultDateLayouts,
	}
}

// Validate checks if the price-list source configuration is valid
func (c *PriceListSourceConfig) Validate() error {
	columns := map[string]string{
		"price column":    c.PriceColumn,
		"code column":     c.CodeColumn,
		"solution column": c.SolutionColumn,
		"from column":     c.FromColumn,
		"to column":       c.ToColumn,
	}
	for label, value := range columns {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", label)
		}
	}
	return validateDelimiter(c.Delimiter)
}

// GetColumnName returns the actual column name, checking aliases first
func (c *PriceListSourceConfig) GetColumnName(standardName string) string {
	if alias, exists := c.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case ColumnPrice:
		return c.PriceColumn
	case ColumnCode:
		return c.CodeColumn
	case ColumnSolution:
		return c.SolutionColumn
	case ColumnFrom:
		return c.FromColumn
	case ColumnTo:
		return c.ToColumn
	default:
		return standardName
	}
}

func (c *PriceListSourceConfig) columns() []columnRef {
	return []columnRef{
		c.ref(ColumnPrice, c.PriceColumn),
		c.ref(ColumnCode, c.CodeColumn),
		c.ref(ColumnSolution, c.SolutionColumn),
		c.ref(ColumnFrom, c.FromColumn),
		c.ref(ColumnTo, c.ToColumn),
	}
}

func (c *PriceListSourceConfig) ref(name, configured string) columnRef {
	return columnRef{name: name, candidates: []string{c.ColumnAliases[name], configured}}
}

func validateDelimiter(delimiter rune) error {
	if delimiter == 0 {
		return nil
	}
	if delimiter == '"' || delimiter == '\r' || delimiter == '\n' || !utf8.ValidRune(delimiter) || delimiter == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q", delimiter)
	}
	return nil
}
