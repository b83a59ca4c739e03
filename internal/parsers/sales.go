package parsers

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// SalesParser loads sales tables into SaleRecords
type SalesParser struct {
	loader     *Loader
	config     *SalesSourceConfig
	normalizer *Normalizer
	logger     logger.Logger
}

// NewSalesParser creates a new SalesParser with the given configuration
func NewSalesParser(fs afero.Fs, config *SalesSourceConfig) (*SalesParser, error) {
	if config == nil {
		config = DefaultSalesSourceConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"sales_source_config",
			config,
			err,
		).WithSuggestion("check the sales column settings")
	}

	log := logger.GetGlobalLogger().WithComponent("sales_parser")
	log.WithFields(logger.Fields{
		"order_date_column": config.GetColumnName(ColumnOrderDate),
		"amount_column":     config.GetColumnName(ColumnAmount),
		"quantity_column":   config.GetColumnName(ColumnQuantity),
		"code_column":       config.GetColumnName(ColumnCode),
	}).Debug("Created sales parser")

	return &SalesParser{
		loader:     NewLoader(fs),
		config:     config,
		normalizer: NewNormalizer(config.DateLayouts),
		logger:     log,
	}, nil
}

// ParseSales loads and normalizes every sales row of the file at path
func (sp *SalesParser) ParseSales(ctx context.Context, path string) ([]*models.SaleRecord, *ParseStats, error) {
	start := time.Now()
	sp.logger.WithFields(logger.Fields{
		"file_path": path,
		"operation": "parse_sales",
	}).Info("Starting sales parsing")

	table, err := sp.loader.Load(ctx, path, ReadOptions{
		Sheet:       sp.config.Sheet,
		Delimiter:   sp.config.Delimiter,
		DateColumns: []string{sp.config.GetColumnName(ColumnOrderDate)},
	})
	if err != nil {
		return nil, nil, err
	}

	columns, err := resolveColumns(table, sp.config.columns())
	if err != nil {
		sp.logger.WithError(err).WithField("available_headers", table.Headers).Error("Required sales columns are missing")
		return nil, nil, err
	}

	stats := &ParseStats{Source: path, RowsRead: len(table.Rows)}
	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "parse_sales",
		Total:     int64(len(table.Rows)),
		Logger:    sp.logger,
	})

	sales := make([]*models.SaleRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, stats, errors.ReconciliationError(errors.CodeCancelled, "sales_parsing", err)
		}

		sale, err := sp.parseRow(path, row, columns, stats)
		if err != nil {
			sp.logger.WithError(err).WithField("line_number", row.Line).Error("Failed to parse sales row")
			return nil, stats, err
		}
		sales = append(sales, sale)
		stats.RecordsParsed++
		progress.Increment()
	}
	progress.Complete()
	stats.Duration = time.Since(start)

	sp.logger.WithFields(logger.Fields{
		"file_path":      path,
		"rows_read":      stats.RowsRead,
		"records_parsed": stats.RecordsParsed,
		"invalid_dates":  stats.InvalidDates,
	}).Info("Sales parsing completed")

	return sales, stats, nil
}

func (sp *SalesParser) parseRow(path string, row Row, columns map[string]int, stats *ParseStats) (*models.SaleRecord, error) {
	amountCell := row.Value(columns[ColumnAmount])
	amount, err := sp.normalizer.Decimal(amountCell)
	if err != nil {
		return nil, cellError(errors.CodeInvalidAmount, path, row.Line, sp.config.GetColumnName(ColumnAmount), amountCell, err)
	}

	quantityCell := row.Value(columns[ColumnQuantity])
	quantity, err := sp.normalizer.Quantity(quantityCell)
	if err != nil {
		return nil, cellError(errors.CodeInvalidQuantity, path, row.Line, sp.config.GetColumnName(ColumnQuantity), quantityCell, err)
	}

	code, err := sp.normalizer.Text(row.Value(columns[ColumnCode]))
	if err != nil {
		return nil, cellError(errors.CodeInvalidFormat, path, row.Line, sp.config.GetColumnName(ColumnCode), row.Value(columns[ColumnCode]), err)
	}

	orderDate, ok := sp.normalizer.Date(row.Value(columns[ColumnOrderDate]))
	if !ok {
		stats.InvalidDates++
		sp.logger.WithFields(logger.Fields{
			"line_number": row.Line,
			"value":       row.Value(columns[ColumnOrderDate]),
		}).Debug("Unparseable order date, keeping sale undated")
	}

	return models.NewSaleRecord(row.Line, orderDate, amount, quantity, code), nil
}

// cellError reports a fatal coercion failure of one cell. Amount, price and
// quantity failures are validation errors; anything else is a parse error.
func cellError(code errors.ErrorCode, path string, line int, column string, value interface{}, err error) error {
	raw, _ := NewNormalizer(nil).Text(value)
	switch code {
	case errors.CodeInvalidAmount, errors.CodeInvalidPrice, errors.CodeInvalidQuantity:
		return errors.ValidationError(code, column, raw, err).
			WithContext("file", path).
			WithContext("line", line)
	default:
		return errors.ParseError(code, path, line, column, raw, err)
	}
}
