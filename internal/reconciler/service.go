package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/parsers"
	"sales-reconciliation-service/internal/pivot"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// ReconciliationService loads both tables, reconciles them and aggregates
// the result
type ReconciliationService struct {
	salesParser     *parsers.SalesParser
	priceListParser *parsers.PriceListParser
	engine          *Engine
	config          *Config
	logger          logger.Logger
}

// Request represents a request for reconciliation
type Request struct {
	SalesFile     string
	PriceListFile string

	// Categories overrides the allow-list of the summary. Nil selects every
	// distinct label of the price list.
	Categories []string

	// Pivot carries table labelling; its Categories field is ignored.
	Pivot *pivot.Options
}

// Validate validates the reconciliation request
func (r *Request) Validate() error {
	if strings.TrimSpace(r.SalesFile) == "" {
		return fmt.Errorf("sales file path is required")
	}
	if strings.TrimSpace(r.PriceListFile) == "" {
		return fmt.Errorf("price list file path is required")
	}
	return nil
}

// Outcome is everything one Process call produced
type Outcome struct {
	RunID       string
	Result      *Result
	Table       *pivot.Table
	Categories  []string
	SalesStats  *parsers.ParseStats
	PriceStats  *parsers.ParseStats
	ProcessedAt time.Time
	Duration    time.Duration
}

// NewReconciliationService creates a new reconciliation service reading through fs
func NewReconciliationService(fs afero.Fs, config *Config) (*ReconciliationService, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"reconciliation_config",
			config,
			err,
		)
	}

	salesParser, err := parsers.NewSalesParser(fs, config.Sales)
	if err != nil {
		return nil, err
	}

	priceListParser, err := parsers.NewPriceListParser(fs, config.PriceList)
	if err != nil {
		return nil, err
	}

	return &ReconciliationService{
		salesParser:     salesParser,
		priceListParser: priceListParser,
		engine:          NewEngine(config),
		config:          config,
		logger:          logger.GetGlobalLogger().WithComponent("reconciliation_service"),
	}, nil
}

// Process performs the complete load, reconcile and aggregate run
func (rs *ReconciliationService) Process(ctx context.Context, request *Request) (*Outcome, error) {
	if request == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", nil, nil)
	}
	if err := request.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "input_files", nil, err).
			WithSuggestion("provide both --sales and --price-list")
	}

	start := time.Now()
	runID := uuid.NewString()
	log := rs.logger.WithField("run_id", runID)
	log.WithFields(logger.Fields{
		"sales_file":      request.SalesFile,
		"price_list_file": request.PriceListFile,
	}).Info("Starting reconciliation run")

	sales, salesStats, err := rs.salesParser.ParseSales(ctx, request.SalesFile)
	if err != nil {
		return nil, err
	}

	prices, priceStats, err := rs.priceListParser.ParsePriceList(ctx, request.PriceListFile)
	if err != nil {
		return nil, err
	}

	result, err := rs.engine.reconcile(ctx, runID, prices, sales)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeCancelled, "aggregate", err)
	}

	categories := request.Categories
	if categories == nil {
		categories = DistinctCategories(prices)
	}

	options := pivot.DefaultOptions()
	if request.Pivot != nil {
		copied := *request.Pivot
		options = &copied
	}
	options.Categories = categories
	table := pivot.Aggregate(result.Records(), options)

	outcome := &Outcome{
		RunID:       runID,
		Result:      result,
		Table:       table,
		Categories:  categories,
		SalesStats:  salesStats,
		PriceStats:  priceStats,
		ProcessedAt: start,
		Duration:    time.Since(start),
	}

	log.WithFields(logger.Fields{
		"categories":  len(categories),
		"rows":        table.CategoryCount(),
		"columns":     len(table.DateColumns()),
		"grand_total": table.GrandTotal().StringFixed(models.MoneyPlaces),
		"duration":    outcome.Duration.String(),
	}).Info("Reconciliation run completed")

	return outcome, nil
}

// GetConfiguration returns the current configuration
func (rs *ReconciliationService) GetConfiguration() *Config {
	return rs.config
}

// DistinctCategories returns the distinct discipline labels of entries in
// first-seen order.
func DistinctCategories(entries []*models.PriceListEntry) []string {
	seen := make(map[models.Discipline]bool)
	categories := make([]string, 0)
	for _, entry := range entries {
		if !seen[entry.Discipline] {
			seen[entry.Discipline] = true
			categories = append(categories, entry.Discipline.String())
		}
	}
	return categories
}
