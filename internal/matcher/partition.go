package matcher

import (
	"sales-reconciliation-service/internal/models"
)

// Partition splits the price list by matching discipline. Every entry lands
// in exactly one of the two results, in input order.
func Partition(entries []*models.PriceListEntry) (solution, notSolution []*models.PriceListEntry) {
	for _, entry := range entries {
		switch entry.Discipline.Kind() {
		case models.MatchCodeOnly:
			notSolution = append(notSolution, entry)
		default:
			solution = append(solution, entry)
		}
	}
	return solution, notSolution
}
