package matcher

import (
	"sales-reconciliation-service/internal/models"
)

// SaleIndex provides hash lookups of sales for both join predicates
type SaleIndex struct {
	// ByKey maps (code, unit price) keys to sales in input order
	ByKey map[models.JoinKey][]*models.SaleRecord

	// ByCode maps codes to sales in input order
	ByCode map[string][]*models.SaleRecord

	// AllSales holds every indexed sale, including those without a key
	AllSales []*models.SaleRecord

	// Unkeyed counts sales with an undefined unit price
	Unkeyed int
}

// NewSaleIndex creates a new index over sales. Sales without a unit price
// are kept in AllSales but never reachable through a lookup.
func NewSaleIndex(sales []*models.SaleRecord) *SaleIndex {
	index := &SaleIndex{
		ByKey:    make(map[models.JoinKey][]*models.SaleRecord),
		ByCode:   make(map[string][]*models.SaleRecord),
		AllSales: sales,
	}

	for _, sale := range sales {
		key, ok := sale.Key()
		if !ok {
			index.Unkeyed++
			continue
		}
		index.ByKey[key] = append(index.ByKey[key], sale)
		index.ByCode[sale.Code] = append(index.ByCode[sale.Code], sale)
	}

	return index
}

// Candidates returns the sales an entry joins with under the given predicate.
func (si *SaleIndex) Candidates(entry *models.PriceListEntry, kind models.MatchKind) []*models.SaleRecord {
	switch kind {
	case models.MatchCodeOnly:
		return si.ByCode[entry.Code]
	default:
		return si.ByKey[entry.Key()]
	}
}

// IndexStats provides statistics about the index
type IndexStats struct {
	TotalSales   int
	UniqueKeys   int
	UniqueCodes  int
	UnkeyedSales int
}

// GetIndexStats returns statistics about the index
func (si *SaleIndex) GetIndexStats() IndexStats {
	return IndexStats{
		TotalSales:   len(si.AllSales),
		UniqueKeys:   len(si.ByKey),
		UniqueCodes:  len(si.ByCode),
		UnkeyedSales: si.Unkeyed,
	}
}
