// Package pivot aggregates reconciled sales into a dense category by date
// table with a Total row and a Total column.
//
// Rows are the display labels of the selected categories, sorted. Columns are
// the observed order dates in chronological order, followed by a single
// bucket for undated sales when any exist. Every (row, column) cell is
// present; combinations without sales hold zero.
package pivot

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sales-reconciliation-service/internal/models"
)

const (
	DefaultRowHeader    = "Solution"
	DefaultTotalLabel   = "Total"
	DefaultUndatedLabel = "Undated"
)

// Labeler turns a stored discipline into its row label.
type Labeler func(models.Discipline) string

// TitleCase labels disciplines in title case, "not solution" → "Not Solution".
func TitleCase(d models.Discipline) string {
	return cases.Title(language.Und).String(string(d))
}

// Options controls which records are aggregated and how the table is labelled
type Options struct {
	// Categories is the allow-list of discipline labels. Nil includes every
	// category; an empty non-nil slice includes none.
	Categories []string `json:"categories" mapstructure:"categories"`

	RowHeader    string `json:"row_header" mapstructure:"row_header"`
	TotalLabel   string `json:"total_label" mapstructure:"total_label"`
	UndatedLabel string `json:"undated_label" mapstructure:"undated_label"`

	// Labeler defaults to TitleCase.
	Labeler Labeler `json:"-" mapstructure:"-"`
}

// DefaultOptions returns options that include every category
func DefaultOptions() *Options {
	return &Options{
		RowHeader:    DefaultRowHeader,
		TotalLabel:   DefaultTotalLabel,
		UndatedLabel: DefaultUndatedLabel,
		Labeler:      TitleCase,
	}
}

func (o *Options) withDefaults() Options {
	opts := *DefaultOptions()
	if o == nil {
		return opts
	}
	opts.Categories = o.Categories
	if o.RowHeader != "" {
		opts.RowHeader = o.RowHeader
	}
	if o.TotalLabel != "" {
		opts.TotalLabel = o.TotalLabel
	}
	if o.UndatedLabel != "" {
		opts.UndatedLabel = o.UndatedLabel
	}
	if o.Labeler != nil {
		opts.Labeler = o.Labeler
	}
	return opts
}

// Column is one date column of the table. Date is nil for the undated bucket.
type Column struct {
	Label string     `json:"label"`
	Date  *time.Time `json:"date,omitempty"`
}

// Table is the aggregated summary. Cell values are never negative unless
// the source amounts are.
type Table struct {
	rowHeader  string
	totalLabel string
	rows       []string
	columns    []Column
	// cells has len(rows)+1 rows of len(columns)+1 values; the last row and
	// last column hold the totals.
	cells [][]decimal.Decimal
}

type cellKey struct {
	row  string
	date time.Time
	// undated distinguishes the nil-date bucket from the zero time.
	undated bool
}

// Aggregate groups records by (category label, order date) and sums amounts.
func Aggregate(records []*models.ReconciledRecord, options *Options) *Table {
	opts := options.withDefaults()

	var allowed map[models.Discipline]bool
	if opts.Categories != nil {
		allowed = make(map[models.Discipline]bool, len(opts.Categories))
		for _, category := range opts.Categories {
			allowed[models.NormalizeDiscipline(category)] = true
		}
	}

	sums := make(map[cellKey]decimal.Decimal)
	rowSet := make(map[string]bool)
	dateSet := make(map[time.Time]bool)
	hasUndated := false

	for _, record := range records {
		if allowed != nil && !allowed[record.Category()] {
			continue
		}

		key := cellKey{row: opts.Labeler(record.Category())}
		if date := record.OrderDate(); date != nil {
			key.date = *date
			dateSet[*date] = true
		} else {
			key.undated = true
			hasUndated = true
		}
		rowSet[key.row] = true
		sums[key] = sums[key].Add(record.Amount())
	}

	rows := make([]string, 0, len(rowSet))
	for row := range rowSet {
		rows = append(rows, row)
	}
	sort.Strings(rows)

	dates := make([]time.Time, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	columns := make([]Column, 0, len(dates)+1)
	keys := make([]cellKey, 0, len(dates)+1)
	for i := range dates {
		date := dates[i]
		columns = append(columns, Column{Label: date.Format(models.DateLayout), Date: &date})
		keys = append(keys, cellKey{date: date})
	}
	if hasUndated {
		columns = append(columns, Column{Label: opts.UndatedLabel})
		keys = append(keys, cellKey{undated: true})
	}

	cells := make([][]decimal.Decimal, len(rows)+1)
	for i := range cells {
		cells[i] = make([]decimal.Decimal, len(columns)+1)
	}

	totalRow := len(rows)
	totalCol := len(columns)
	for i, row := range rows {
		for j, col := range keys {
			col.row = row
			value := sums[col]
			cells[i][j] = value
			cells[i][totalCol] = cells[i][totalCol].Add(value)
			cells[totalRow][j] = cells[totalRow][j].Add(value)
			cells[totalRow][totalCol] = cells[totalRow][totalCol].Add(value)
		}
	}

	return &Table{
		rowHeader:  opts.RowHeader,
		totalLabel: opts.TotalLabel,
		rows:       rows,
		columns:    columns,
		cells:      cells,
	}
}

// RowHeader is the label of the row-label column
func (t *Table) RowHeader() string {
	return t.rowHeader
}

// Rows returns the row labels, Total last.
func (t *Table) Rows() []string {
	return append(append([]string(nil), t.rows...), t.totalLabel)
}

// Columns returns the column labels, Total last.
func (t *Table) Columns() []string {
	labels := make([]string, 0, len(t.columns)+1)
	for _, col := range t.columns {
		labels = append(labels, col.Label)
	}
	return append(labels, t.totalLabel)
}

// DateColumns returns the date columns without the Total column.
func (t *Table) DateColumns() []Column {
	return append([]Column(nil), t.columns...)
}

// CategoryCount returns the number of category rows, excluding Total.
func (t *Table) CategoryCount() int {
	return len(t.rows)
}

// IsEmpty reports whether no record was aggregated.
func (t *Table) IsEmpty() bool {
	return len(t.rows) == 0
}

// Cell returns the value at (row, column) labels. Labels match exactly,
// then case-insensitively.
func (t *Table) Cell(row, column string) (decimal.Decimal, bool) {
	i := indexOf(t.Rows(), row)
	j := indexOf(t.Columns(), column)
	if i < 0 || j < 0 {
		return decimal.Zero, false
	}
	return t.cells[i][j], true
}

// GrandTotal is the bottom-right cell.
func (t *Table) GrandTotal() decimal.Decimal {
	return t.cells[len(t.rows)][len(t.columns)]
}

// Values returns a copy of the grid including the totals, in Rows() by
// Columns() order.
func (t *Table) Values() [][]decimal.Decimal {
	values := make([][]decimal.Decimal, len(t.cells))
	for i, row := range t.cells {
		values[i] = append([]decimal.Decimal(nil), row...)
	}
	return values
}

// Matrix renders the table as strings: a header row followed by one row per
// category and the Total row, values fixed to places decimals.
func (t *Table) Matrix(places int32) [][]string {
	header := append([]string{t.rowHeader}, t.Columns()...)
	matrix := [][]string{header}
	for i, label := range t.Rows() {
		line := make([]string, 0, len(header))
		line = append(line, label)
		for _, value := range t.cells[i] {
			line = append(line, value.StringFixed(places))
		}
		matrix = append(matrix, line)
	}
	return matrix
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	for i, l := range labels {
		if strings.EqualFold(l, label) {
			return i
		}
	}
	return -1
}
