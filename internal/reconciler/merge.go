package reconciler

import (
	"consignment-reconciliation-service/internal/models"
)

// Merge left-outer-joins the sales, promotional-sales and breakage canonical
// tables onto the settlement table using the normalized (branch, product)
// key. The settlement table is authoritative: a pair absent from settlement
// never appears in the output, and a settlement line with no match in a
// secondary source receives zero for that source's quantity, never a null.
//
// Output order is deterministic: branch, then product id.
func Merge(settlement, sales, promoSales, breakage []models.CanonicalLine) []models.ReconciledLine {
	salesByKey := indexByKey(sales)
	promoByKey := indexByKey(promoSales)
	breakageByKey := indexByKey(breakage)

	ordered := make([]models.CanonicalLine, len(settlement))
	copy(ordered, settlement)
	models.SortLines(ordered)

	out := make([]models.ReconciledLine, 0, len(ordered))
	for i := range ordered {
		s := &ordered[i]
		key := s.Key()

		line := models.ReconciledLine{
			Branch:        s.Branch,
			ProductID:     s.ProductID,
			Title:         s.Title,
			Supplier:      s.Supplier,
			SettlementQty: s.Quantity,
			UnitPrice:     s.UnitPrice,
			DiscountRate:  s.DiscountRate,
		}

		if match, ok := salesByKey[key]; ok {
			line.SalesQty = match.Quantity
			line.SalesUnitValue = match.UnitPrice
		}
		if match, ok := promoByKey[key]; ok {
			line.PromoSalesQty = match.Quantity
		}
		if match, ok := breakageByKey[key]; ok {
			line.BreakageQty = match.Quantity
		}

		out = append(out, line)
	}

	return out
}

// indexByKey builds a lookup map for a secondary source. Adapters have
// already collapsed duplicate keys, but if any survive the first occurrence
// wins, mirroring the adapters' own tie-break.
func indexByKey(lines []models.CanonicalLine) map[models.LineKey]*models.CanonicalLine {
	idx := make(map[models.LineKey]*models.CanonicalLine, len(lines))
	for i := range lines {
		key := lines[i].Key()
		if _, exists := idx[key]; !exists {
			idx[key] = &lines[i]
		}
	}
	return idx
}
