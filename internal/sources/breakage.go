package sources

import (
	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/pkg/logger"
)

// BreakageSchema describes the inventory count sheet: a branch anchor cell,
// a header row located by the product-id label, and positional columns for
// the physical count and the system stock.
type BreakageSchema struct {
	BranchAnchor CellRef `json:"branch_anchor"`
	ProductLabel string  `json:"product_label"`
	ProductCol   int     `json:"product_col"`
	CountedCol   int     `json:"counted_col"`
	StockCol     int     `json:"stock_col"`
}

// DefaultBreakageSchema returns the layout of the inventory count export.
func DefaultBreakageSchema() *BreakageSchema {
	return &BreakageSchema{
		BranchAnchor: CellRef{Row: 0, Col: 4},
		ProductLabel: "ISBN",
		ProductCol:   7,
		CountedCol:   9,
		StockCol:     10,
	}
}

// ParseBreakage converts an inventory count sheet into canonical breakage
// lines. Per-row breakage is the system stock minus the physical count;
// negative rows (surplus) still participate in the per-key sum, and keys
// whose summed breakage ends up negative are bounded later by the engine.
// A sheet without a recognizable header degrades to an empty result since
// breakage is optional evidence.
func ParseBreakage(table *RawTable, schema *BreakageSchema) []models.CanonicalLine {
	if schema == nil {
		schema = DefaultBreakageSchema()
	}
	if table.IsEmpty() {
		return []models.CanonicalLine{}
	}

	log := logger.WithComponent("sources").WithField("source", "breakage")

	branch := models.NormalizeBranch(table.Cell(schema.BranchAnchor.Row, schema.BranchAnchor.Col))

	headerIdx := headerRowIndex(table, schema.ProductLabel)
	if headerIdx < 0 {
		log.Warn("Breakage sheet has no recognizable header row, ignoring source")
		return []models.CanonicalLine{}
	}

	dropped := 0
	acc := newAccumulator()

	for i := headerIdx + 1; i < len(table.Rows); i++ {
		productID, ok := models.NormalizeProductID(table.Cell(i, schema.ProductCol))
		if !ok {
			dropped++
			continue
		}

		stock := parseDecimal(table.Cell(i, schema.StockCol))
		counted := parseDecimal(table.Cell(i, schema.CountedCol))

		acc.add(models.CanonicalLine{
			Branch:    branch,
			ProductID: productID,
			Quantity:  stock.Sub(counted),
		})
	}

	lines := acc.result()
	log.WithFields(logger.Fields{
		"branch":       branch,
		"lines":        len(lines),
		"dropped_rows": dropped,
	}).Debug("Breakage source parsed")

	return lines
}
