// Package reconciler runs the two-discipline reconciliation of sales against
// a price list and wires loading, reconciliation and aggregation together.
//
// The matching policy:
//  1. Stage A joins price-discriminated entries with all sales on (code, unit price).
//  2. Stage B collects the distinct (code, price) pairs of those entries.
//  3. Stage C keeps only the sales whose pair is not in that set.
//  4. Stage D joins code-only entries with the Stage C sales on code.
//
// The result is Stage A followed by Stage D. Sales matched by neither are
// dropped and only counted.
//
// Example usage:
//
//	engine := reconciler.NewEngine(reconciler.DefaultConfig())
//	result, err := engine.Reconcile(ctx, prices, sales)
//	table := pivot.Aggregate(result.Records(), nil)
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"sales-reconciliation-service/internal/matcher"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/parsers"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	// Parallel runs Stage A concurrently with the B, C, D chain.
	Parallel bool `json:"parallel" mapstructure:"parallel"`

	Sales     *parsers.SalesSourceConfig     `json:"sales" mapstructure:"sales"`
	PriceList *parsers.PriceListSourceConfig `json:"price_list" mapstructure:"price_list"`
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Sales:     parsers.DefaultSalesSourceConfig(),
		PriceList: parsers.DefaultPriceListSourceConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Sales != nil {
		if err := c.Sales.Validate(); err != nil {
			return fmt.Errorf("sales source: %w", err)
		}
	}
	if c.PriceList != nil {
		if err := c.PriceList.Validate(); err != nil {
			return fmt.Errorf("price list source: %w", err)
		}
	}
	return nil
}

// Stats counts what each stage consumed and produced
type Stats struct {
	Sales              int `json:"sales" yaml:"sales"`
	PriceEntries       int `json:"price_entries" yaml:"price_entries"`
	SolutionEntries    int `json:"solution_entries" yaml:"solution_entries"`
	NotSolutionEntries int `json:"not_solution_entries" yaml:"not_solution_entries"`
	ExclusionPairs     int `json:"exclusion_pairs" yaml:"exclusion_pairs"`
	ExclusiveSales     int `json:"exclusive_sales" yaml:"exclusive_sales"`
	// UnpricedSales have quantity <= 0 and take part in no join.
	UnpricedSales int `json:"unpriced_sales" yaml:"unpriced_sales"`
	MatchedA      int `json:"matched_price" yaml:"matched_price"`
	MatchedB      int `json:"matched_code" yaml:"matched_code"`
	// DroppedSales appear in no reconciled record.
	DroppedSales int           `json:"dropped_sales" yaml:"dropped_sales"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// Result is the output of one reconciliation run
type Result struct {
	RunID    string
	MatchedA []*models.ReconciledRecord
	MatchedB []*models.ReconciledRecord
	Stats    Stats
}

// Records returns the union: Stage A records followed by Stage D records.
func (r *Result) Records() []*models.ReconciledRecord {
	records := make([]*models.ReconciledRecord, 0, len(r.MatchedA)+len(r.MatchedB))
	records = append(records, r.MatchedA...)
	return append(records, r.MatchedB...)
}

// TotalAmount sums the amounts of every reconciled record
func (r *Result) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, record := range r.Records() {
		total = total.Add(record.Amount())
	}
	return total
}

// Engine performs the staged join
type Engine struct {
	config *Config
	logger logger.Logger
}

// NewEngine creates a new engine
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("reconciliation_engine")
	log.WithField("parallel", config.Parallel).Debug("Created reconciliation engine")

	return &Engine{config: config, logger: log}
}

// Reconcile classifies sales against the price list. Inputs are read only.
func (e *Engine) Reconcile(ctx context.Context, prices []*models.PriceListEntry, sales []*models.SaleRecord) (*Result, error) {
	return e.reconcile(ctx, uuid.NewString(), prices, sales)
}

func (e *Engine) reconcile(ctx context.Context, runID string, prices []*models.PriceListEntry, sales []*models.SaleRecord) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeCancelled, "reconcile", err)
	}

	start := time.Now()
	op := logger.NewOperationLogger("reconcile", e.logger).WithField("run_id", runID)

	solution, notSolution := matcher.Partition(prices)
	op.Step("partition", logger.Fields{
		"solution_entries":     len(solution),
		"not_solution_entries": len(notSolution),
	})

	var (
		matchedA  []*models.ReconciledRecord
		matchedB  []*models.ReconciledRecord
		exclusion *matcher.ExclusionSet
		exclusive []*models.SaleRecord
		index     *matcher.SaleIndex
	)

	stageA := func() {
		index = matcher.NewSaleIndex(sales)
		matchedA = matcher.JoinIndexed(solution, index, models.MatchPriceDiscriminated)
	}
	stagesBCD := func() {
		exclusion = matcher.NewExclusionSet(solution)
		exclusive = matcher.AntiJoin(sales, exclusion)
		matchedB = matcher.Join(notSolution, exclusive, models.MatchCodeOnly)
	}

	if e.config.Parallel {
		var wg conc.WaitGroup
		wg.Go(stageA)
		wg.Go(stagesBCD)
		wg.Wait()
	} else {
		stageA()
		stagesBCD()
	}

	if err := ctx.Err(); err != nil {
		op.Error(err, "Reconciliation cancelled")
		return nil, errors.ReconciliationError(errors.CodeCancelled, "reconcile", err)
	}

	result := &Result{
		RunID:    runID,
		MatchedA: matchedA,
		MatchedB: matchedB,
		Stats: Stats{
			Sales:              len(sales),
			PriceEntries:       len(prices),
			SolutionEntries:    len(solution),
			NotSolutionEntries: len(notSolution),
			ExclusionPairs:     exclusion.Len(),
			ExclusiveSales:     len(exclusive),
			UnpricedSales:      index.GetIndexStats().UnkeyedSales,
			MatchedA:           len(matchedA),
			MatchedB:           len(matchedB),
		},
	}
	result.Stats.DroppedSales = countDropped(sales, result)
	result.Stats.Duration = time.Since(start)

	op.Step("join", logger.Fields{
		"matched_price":   result.Stats.MatchedA,
		"exclusion_pairs": result.Stats.ExclusionPairs,
		"exclusive_sales": result.Stats.ExclusiveSales,
		"matched_code":    result.Stats.MatchedB,
	})
	if result.Stats.UnpricedSales > 0 {
		e.logger.WithFields(logger.Fields{
			"run_id":         runID,
			"unpriced_sales": result.Stats.UnpricedSales,
		}).Warn("Sales with non-positive quantity have no unit price and were not matched")
	}
	op.WithField("dropped_sales", result.Stats.DroppedSales).Success("Reconciliation completed")

	return result, nil
}

func countDropped(sales []*models.SaleRecord, result *Result) int {
	matched := make(map[*models.SaleRecord]struct{}, len(result.MatchedA)+len(result.MatchedB))
	for _, record := range result.Records() {
		matched[record.Sale] = struct{}{}
	}

	dropped := 0
	for _, sale := range sales {
		if _, ok := matched[sale]; !ok {
			dropped++
		}
	}
	return dropped
}
