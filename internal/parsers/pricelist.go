package parsers

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// PriceListParser loads price-list tables into PriceListEntries
type PriceListParser struct {
	loader     *Loader
	config     *PriceListSourceConfig
	normalizer *Normalizer
	logger     logger.Logger
}

// NewPriceListParser creates a new PriceListParser with the given configuration
func NewPriceListParser(fs afero.Fs, config *PriceListSourceConfig) (*PriceListParser, error) {
	if config == nil {
		config = DefaultPriceListSourceConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"price_list_source_config",
			config,
			err,
		).WithSuggestion("check the price-list column settings")
	}

	log := logger.GetGlobalLogger().WithComponent("price_list_parser")
	log.WithFields(logger.Fields{
		"price_column":    config.GetColumnName(ColumnPrice),
		"code_column":     config.GetColumnName(ColumnCode),
		"solution_column": config.GetColumnName(ColumnSolution),
	}).Debug("Created price list parser")

	return &PriceListParser{
		loader:     NewLoader(fs),
		config:     config,
		normalizer: NewNormalizer(config.DateLayouts),
		logger:     log,
	}, nil
}

// ParsePriceList loads and normalizes every price-list row of the file at path
func (pp *PriceListParser) ParsePriceList(ctx context.Context, path string) ([]*models.PriceListEntry, *ParseStats, error) {
	start := time.Now()
	pp.logger.WithFields(logger.Fields{
		"file_path": path,
		"operation": "parse_price_list",
	}).Info("Starting price list parsing")

	table, err := pp.loader.Load(ctx, path, ReadOptions{
		Sheet:     pp.config.Sheet,
		Delimiter: pp.config.Delimiter,
		DateColumns: []string{
			pp.config.GetColumnName(ColumnFrom),
			pp.config.GetColumnName(ColumnTo),
		},
	})
	if err != nil {
		return nil, nil, err
	}

	columns, err := resolveColumns(table, pp.config.columns())
	if err != nil {
		pp.logger.WithError(err).WithField("available_headers", table.Headers).Error("Required price list columns are missing")
		return nil, nil, err
	}

	stats := &ParseStats{Source: path, RowsRead: len(table.Rows)}
	entries := make([]*models.PriceListEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, stats, errors.ReconciliationError(errors.CodeCancelled, "price_list_parsing", err)
		}

		entry, err := pp.parseRow(path, row, columns, stats)
		if err != nil {
			pp.logger.WithError(err).WithField("line_number", row.Line).Error("Failed to parse price list row")
			return nil, stats, err
		}
		entries = append(entries, entry)
		stats.RecordsParsed++
	}
	stats.Duration = time.Since(start)

	pp.logger.WithFields(logger.Fields{
		"file_path":      path,
		"rows_read":      stats.RowsRead,
		"records_parsed": stats.RecordsParsed,
		"invalid_dates":  stats.InvalidDates,
	}).Info("Price list parsing completed")

	return entries, stats, nil
}

func (pp *PriceListParser) parseRow(path string, row Row, columns map[string]int, stats *ParseStats) (*models.PriceListEntry, error) {
	priceCell := row.Value(columns[ColumnPrice])
	price, err := pp.normalizer.Decimal(priceCell)
	if err != nil {
		return nil, cellError(errors.CodeInvalidPrice, path, row.Line, pp.config.GetColumnName(ColumnPrice), priceCell, err)
	}

	code, err := pp.normalizer.Text(row.Value(columns[ColumnCode]))
	if err != nil {
		return nil, cellError(errors.CodeInvalidFormat, path, row.Line, pp.config.GetColumnName(ColumnCode), row.Value(columns[ColumnCode]), err)
	}

	label, err := pp.normalizer.Text(row.Value(columns[ColumnSolution]))
	if err != nil {
		return nil, cellError(errors.CodeInvalidFormat, path, row.Line, pp.config.GetColumnName(ColumnSolution), row.Value(columns[ColumnSolution]), err)
	}

	validFrom, ok := pp.normalizer.Date(row.Value(columns[ColumnFrom]))
	if !ok {
		stats.InvalidDates++
	}
	validTo, ok := pp.normalizer.Date(row.Value(columns[ColumnTo]))
	if !ok {
		stats.InvalidDates++
	}

	return models.NewPriceListEntry(row.Line, code, price, label, validFrom, validTo), nil
}
