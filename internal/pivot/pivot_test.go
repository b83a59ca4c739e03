package pivot

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-reconciliation-service/internal/models"
)

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func record(label, amount string, date *time.Time) *models.ReconciledRecord {
	entry := models.NewPriceListEntry(0, "X", decimal.NewFromInt(1), label, nil, nil)
	sale := models.NewSaleRecord(0, date, decimal.RequireFromString(amount), 1, "X")
	return models.NewReconciledRecord(entry, sale, models.StagePriceMatch)
}

func sampleRecords() []*models.ReconciledRecord {
	return []*models.ReconciledRecord{
		record("solution", "20.00", day(2)),
		record("solution", "5.00", day(1)),
		record("not solution", "5.00", day(2)),
		record("solution", "1.50", day(2)),
		record("premium", "3.00", nil),
	}
}

func TestAggregate_Layout(t *testing.T) {
	table := Aggregate(sampleRecords(), nil)

	expectedRows := []string{"Not Solution", "Premium", "Solution", "Total"}
	if !reflect.DeepEqual(table.Rows(), expectedRows) {
		t.Errorf("expected rows %v, got %v", expectedRows, table.Rows())
	}

	expectedColumns := []string{"01-03-2024", "02-03-2024", "Undated", "Total"}
	if !reflect.DeepEqual(table.Columns(), expectedColumns) {
		t.Errorf("expected columns %v, got %v", expectedColumns, table.Columns())
	}

	if table.RowHeader() != "Solution" {
		t.Errorf("expected row header Solution, got %s", table.RowHeader())
	}
	if table.CategoryCount() != 3 {
		t.Errorf("expected 3 categories, got %d", table.CategoryCount())
	}
}

func TestAggregate_Cells(t *testing.T) {
	table := Aggregate(sampleRecords(), nil)

	tests := []struct {
		row, column string
		expected    string
	}{
		{"Solution", "02-03-2024", "21.5"},
		{"Solution", "01-03-2024", "5"},
		{"Solution", "Undated", "0"},
		{"Not Solution", "01-03-2024", "0"},
		{"Premium", "Undated", "3"},
		{"Solution", "Total", "26.5"},
		{"Total", "02-03-2024", "26.5"},
		{"Total", "Total", "34.5"},
		{"solution", "total", "26.5"},
	}

	for _, tt := range tests {
		t.Run(tt.row+"/"+tt.column, func(t *testing.T) {
			value, ok := table.Cell(tt.row, tt.column)
			if !ok {
				t.Fatalf("cell (%s, %s) missing", tt.row, tt.column)
			}
			if !value.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, value)
			}
		})
	}

	if _, ok := table.Cell("Missing", "Total"); ok {
		t.Error("expected unknown row to be reported missing")
	}
}

func TestAggregate_Density(t *testing.T) {
	table := Aggregate(sampleRecords(), nil)

	values := table.Values()
	if len(values) != len(table.Rows()) {
		t.Fatalf("expected %d value rows, got %d", len(table.Rows()), len(values))
	}
	for i, row := range values {
		if len(row) != len(table.Columns()) {
			t.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns()))
		}
		for _, v := range row {
			if v.IsNegative() {
				t.Errorf("negative cell %s in row %d", v, i)
			}
		}
	}
}

func TestAggregate_TotalConsistency(t *testing.T) {
	records := sampleRecords()
	table := Aggregate(records, nil)

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount())
	}
	if !table.GrandTotal().Equal(sum) {
		t.Errorf("grand total %s does not equal sum of amounts %s", table.GrandTotal(), sum)
	}

	// Row totals and column totals both add up to the grand total.
	values := table.Values()
	last := len(values) - 1
	rowSum, colSum := decimal.Zero, decimal.Zero
	for i := 0; i < last; i++ {
		rowSum = rowSum.Add(values[i][len(values[i])-1])
	}
	for j := 0; j < len(values[last])-1; j++ {
		colSum = colSum.Add(values[last][j])
	}
	if !rowSum.Equal(table.GrandTotal()) || !colSum.Equal(table.GrandTotal()) {
		t.Errorf("marginals %s / %s disagree with grand total %s", rowSum, colSum, table.GrandTotal())
	}
}

func TestAggregate_CategoryFilter(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		rows       []string
		total      string
	}{
		{name: "nil includes all", categories: nil, rows: []string{"Not Solution", "Premium", "Solution", "Total"}, total: "34.5"},
		{name: "single", categories: []string{"solution"}, rows: []string{"Solution", "Total"}, total: "26.5"},
		{name: "case insensitive", categories: []string{"Not Solution"}, rows: []string{"Not Solution", "Total"}, total: "5"},
		{name: "empty includes none", categories: []string{}, rows: []string{"Total"}, total: "0"},
		{name: "unknown", categories: []string{"gold"}, rows: []string{"Total"}, total: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Aggregate(sampleRecords(), &Options{Categories: tt.categories})
			if !reflect.DeepEqual(table.Rows(), tt.rows) {
				t.Errorf("expected rows %v, got %v", tt.rows, table.Rows())
			}
			if !table.GrandTotal().Equal(decimal.RequireFromString(tt.total)) {
				t.Errorf("expected grand total %s, got %s", tt.total, table.GrandTotal())
			}
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	table := Aggregate(nil, nil)

	if !table.IsEmpty() {
		t.Error("expected empty table")
	}
	if !reflect.DeepEqual(table.Columns(), []string{"Total"}) {
		t.Errorf("expected only Total column, got %v", table.Columns())
	}
	if !table.GrandTotal().IsZero() {
		t.Errorf("expected zero grand total, got %s", table.GrandTotal())
	}
}

func TestAggregate_CustomLabels(t *testing.T) {
	table := Aggregate(sampleRecords(), &Options{
		RowHeader:    "Track",
		TotalLabel:   "All",
		UndatedLabel: "No date",
		Labeler:      func(d models.Discipline) string { return string(d) },
	})

	if table.RowHeader() != "Track" {
		t.Errorf("expected Track header, got %s", table.RowHeader())
	}
	if got := table.Rows(); got[len(got)-1] != "All" || got[0] != "not solution" {
		t.Errorf("unexpected rows %v", got)
	}
	if got := table.Columns(); got[2] != "No date" {
		t.Errorf("unexpected columns %v", got)
	}
}

func TestTable_Matrix(t *testing.T) {
	table := Aggregate([]*models.ReconciledRecord{
		record("solution", "20", day(1)),
		record("not solution", "5", day(1)),
	}, nil)

	expected := [][]string{
		{"Solution", "01-03-2024", "Total"},
		{"Not Solution", "5.00", "5.00"},
		{"Solution", "20.00", "20.00"},
		{"Total", "25.00", "25.00"},
	}
	if got := table.Matrix(2); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected matrix %v, got %v", expected, got)
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("not solution"); got != "Not Solution" {
		t.Errorf("expected Not Solution, got %s", got)
	}
}
