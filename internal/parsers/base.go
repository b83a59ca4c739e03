// Package parsers loads the sales and price-list tables and normalizes their
// rows into typed records.
//
// A source file is read into a Table of raw cells first, whatever its format.
// The record parsers then resolve the configured columns against the table
// header and coerce every cell through the Normalizer.
//
// Supported formats, chosen by file extension:
//   - CSV (.csv, .txt): configurable delimiter, UTF-8 only
//   - XLSX (.xlsx, .xlsm): first sheet unless one is named; numeric cells in
//     date columns are treated as Excel serial dates
//   - JSON (.json): an array of objects keyed by column name
//
// Example usage:
//
//	parser, err := NewSalesParser(afero.NewOsFs(), DefaultSalesSourceConfig())
//	sales, stats, err := parser.ParseSales(ctx, "sales.xlsx")
//
// Failure policy: a missing required column or a non-numeric amount, price or
// quantity aborts the load. An unparseable date only nulls that field.
package parsers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// Format identifies a source file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.ConfigurationError(
			errors.CodeUnsupportedFormat,
			"input_file",
			path,
			nil,
		).WithSuggestion("use a .csv, .xlsx or .json file")
	}
}

// Row is one non-blank data row of a table.
type Row struct {
	// Line is the 1-based position in the source; the header is line 1.
	Line   int
	Values []interface{}
}

// Value returns the cell at index, or nil when the row is short.
func (r Row) Value(index int) interface{} {
	if index < 0 || index >= len(r.Values) {
		return nil
	}
	return r.Values[index]
}

// Table is a loaded source: a header and rows of raw cells.
type Table struct {
	Source  string
	Headers []string
	Rows    []Row
}

// ColumnIndex returns the index of a header, matching exactly first and
// case-insensitively second, or -1.
func (t *Table) ColumnIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, header := range t.Headers {
		if header == name {
			return i
		}
	}
	for i, header := range t.Headers {
		if strings.EqualFold(header, name) {
			return i
		}
	}
	return -1
}

// ReadOptions tunes how a single file is read.
type ReadOptions struct {
	// Sheet selects the XLSX worksheet; empty means the first one.
	Sheet string
	// Delimiter is the CSV field separator.
	Delimiter rune
	// DateColumns name the columns whose numeric XLSX cells are serial dates.
	DateColumns []string
}

// Loader reads tables through an afero filesystem.
type Loader struct {
	fs     afero.Fs
	logger logger.Logger
}

// NewLoader creates a loader over fs; nil means the OS filesystem.
func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{
		fs:     fs,
		logger: logger.GetGlobalLogger().WithComponent("loader"),
	}
}

// Load reads the whole file at path into a Table.
func (l *Loader) Load(ctx context.Context, path string, opts ReadOptions) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file_path": path,
		"format":    format,
	}).Debug("Loading source table")

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		l.logger.WithError(err).WithField("file_path", path).Error("Failed to read source file")
		switch {
		case os.IsNotExist(err):
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		case os.IsPermission(err):
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		default:
			return nil, errors.FileError(errors.CodeDirectoryError, path, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeCancelled, "load", err)
	}

	var table *Table
	switch format {
	case FormatCSV:
		table, err = l.readCSV(path, data, opts)
	case FormatXLSX:
		table, err = l.readXLSX(path, data, opts)
	case FormatJSON:
		table, err = l.readJSON(path, data)
	}
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file_path": path,
		"columns":   len(table.Headers),
		"rows":      len(table.Rows),
	}).Debug("Loaded source table")

	return table, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (l *Loader) readCSV(path string, data []byte, opts ReadOptions) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.ParseError(
			errors.CodeEncodingError,
			path,
			firstInvalidLine(data),
			"encoding",
			"",
			fmt.Errorf("invalid UTF-8 encoding detected"),
		)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, emptyTableError(path)
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 1, "headers", "", err)
	}

	table := &Table{Source: path, Headers: cleanHeaders(headers)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			if parseErr, ok := err.(*csv.ParseError); ok {
				line = parseErr.Line
			}
			return nil, errors.ParseError(errors.CodeInvalidFormat, path, line, "record", "", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		values := make([]interface{}, len(record))
		for i, field := range record {
			values[i] = field
		}
		table.Rows = append(table.Rows, Row{Line: line, Values: values})
	}

	return table, nil
}

func (l *Loader) readXLSX(path string, data []byte, opts ReadOptions) (*Table, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer book.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, emptyTableError(path)
		}
		sheet = sheets[0]
	} else if index, err := book.GetSheetIndex(sheet); err != nil || index < 0 {
		return nil, errors.ParseError(errors.CodeMissingSheet, path, 0, "", sheet, err)
	}

	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", sheet, err)
	}
	if len(rows) == 0 {
		return nil, emptyTableError(path)
	}

	date1904 := false
	if props, err := book.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	table := &Table{Source: path, Headers: cleanHeaders(rows[0])}
	dateColumns := make(map[int]bool)
	for _, name := range opts.DateColumns {
		if index := table.ColumnIndex(name); index >= 0 {
			dateColumns[index] = true
		}
	}

	for i, record := range rows[1:] {
		if isBlank(record) {
			continue
		}
		values := make([]interface{}, len(record))
		for j, cell := range record {
			values[j] = cell
			if !dateColumns[j] {
				continue
			}
			if serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
					values[j] = t
				}
			}
		}
		table.Rows = append(table.Rows, Row{Line: i + 2, Values: values})
	}

	return table, nil
}

func (l *Loader) readJSON(path string, data []byte) (*Table, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var objects []map[string]interface{}
	if err := decoder.Decode(&objects); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err).
			WithSuggestion("provide a JSON array of objects keyed by column name")
	}
	if len(objects) == 0 {
		return nil, emptyTableError(path)
	}

	seen := make(map[string]bool)
	var headers []string
	for _, object := range objects {
		for key := range object {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}
	sort.Strings(headers)

	table := &Table{Source: path, Headers: headers}
	for i, object := range objects {
		values := make([]interface{}, len(headers))
		blank := true
		for j, header := range headers {
			values[j] = object[header]
			if values[j] != nil && fmt.Sprint(values[j]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, Row{Line: i + 2, Values: values})
	}

	return table, nil
}

// resolveColumns maps each required logical column to its table index,
// trying the candidates of each in order.
func resolveColumns(table *Table, required []columnRef) (map[string]int, error) {
	indexes := make(map[string]int, len(required))
	var missing []string
	for _, ref := range required {
		index := -1
		for _, candidate := range ref.candidates {
			if candidate == "" {
				continue
			}
			if index = table.ColumnIndex(candidate); index >= 0 {
				break
			}
		}
		if index < 0 {
			missing = append(missing, ref.candidates[len(ref.candidates)-1])
			continue
		}
		indexes[ref.name] = index
	}

	if len(missing) > 0 {
		return nil, errors.ParseError(
			errors.CodeMissingColumn,
			table.Source,
			1,
			strings.Join(missing, ", "),
			"",
			nil,
		).WithContext("available_columns", table.Headers)
	}
	return indexes, nil
}

// columnRef names a logical column and the header names it may appear under.
type columnRef struct {
	name       string
	candidates []string
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		cleaned[i] = strings.TrimSpace(strings.TrimPrefix(header, string(utf8BOM)))
	}
	return cleaned
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func firstInvalidLine(data []byte) int {
	for i, line := range bytes.Split(data, []byte("\n")) {
		if !utf8.Valid(line) {
			return i + 1
		}
	}
	return 0
}

func emptyTableError(path string) error {
	return errors.ValidationError(
		errors.CodeMissingField,
		"file_content",
		path,
		nil,
	).WithSuggestion("ensure the file contains a header row and data rows")
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	Source        string
	RowsRead      int
	RecordsParsed int
	// InvalidDates counts date cells that could not be parsed and were nulled.
	InvalidDates int
	Duration     time.Duration
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d rows from %s, %d records, %d invalid dates",
		ps.RowsRead, ps.Source, ps.RecordsParsed, ps.InvalidDates)
}
