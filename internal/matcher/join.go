// Package matcher implements the join primitives of the reconciliation:
// partitioning of the price list, the hash join shared by both disciplines,
// the exclusion set and the anti-join.
//
// Joins have full relational cardinality. Every (entry, sale) pair that
// satisfies the predicate is emitted; nothing is deduplicated.
package matcher

import (
	"sales-reconciliation-service/internal/models"
)

// Join pairs each price-list entry with every sale satisfying the predicate
// of kind. Output follows entry order, then sale order.
func Join(entries []*models.PriceListEntry, sales []*models.SaleRecord, kind models.MatchKind) []*models.ReconciledRecord {
	if len(entries) == 0 || len(sales) == 0 {
		return nil
	}
	return JoinIndexed(entries, NewSaleIndex(sales), kind)
}

// JoinIndexed is Join over a prebuilt index.
func JoinIndexed(entries []*models.PriceListEntry, index *SaleIndex, kind models.MatchKind) []*models.ReconciledRecord {
	stage := stageFor(kind)

	var records []*models.ReconciledRecord
	for _, entry := range entries {
		for _, sale := range index.Candidates(entry, kind) {
			records = append(records, models.NewReconciledRecord(entry, sale, stage))
		}
	}
	return records
}

func stageFor(kind models.MatchKind) models.Stage {
	if kind == models.MatchCodeOnly {
		return models.StageCodeMatch
	}
	return models.StagePriceMatch
}

// ExclusionSet holds the distinct (code, price) pairs claimed by the
// price-discriminated discipline.
type ExclusionSet struct {
	keys map[models.JoinKey]struct{}
}

// NewExclusionSet collects the distinct keys of entries.
func NewExclusionSet(entries []*models.PriceListEntry) *ExclusionSet {
	set := &ExclusionSet{keys: make(map[models.JoinKey]struct{}, len(entries))}
	for _, entry := range entries {
		set.keys[entry.Key()] = struct{}{}
	}
	return set
}

// Len returns the number of distinct pairs
func (es *ExclusionSet) Len() int {
	return len(es.keys)
}

// Contains reports whether the sale's (code, unit price) pair is claimed.
// A sale without a unit price is never claimed.
func (es *ExclusionSet) Contains(sale *models.SaleRecord) bool {
	key, ok := sale.Key()
	if !ok {
		return false
	}
	_, claimed := es.keys[key]
	return claimed
}

// AntiJoin keeps the sales not claimed by the exclusion set, in order.
func AntiJoin(sales []*models.SaleRecord, exclusion *ExclusionSet) []*models.SaleRecord {
	kept := make([]*models.SaleRecord, 0, len(sales))
	for _, sale := range sales {
		if !exclusion.Contains(sale) {
			kept = append(kept, sale)
		}
	}
	return kept
}
