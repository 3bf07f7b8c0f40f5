package sources

import (
	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// SalesSchema describes the fixed-position layout of a sales or
// promotional-sales extract: a number of leading rows to skip, then
// positional columns. A column index of -1 marks the column absent from the
// export; its field defaults to zero.
type SalesSchema struct {
	SkipRows     int `json:"skip_rows"`
	BranchCol    int `json:"branch_col"`
	ProductCol   int `json:"product_col"`
	UnitValueCol int `json:"unit_value_col"`
	QuantityCol  int `json:"quantity_col"`
}

// DefaultSalesSchema returns the layout of the ERP's sales report export,
// shared by the regular and promotional sales extracts.
func DefaultSalesSchema() *SalesSchema {
	return &SalesSchema{
		SkipRows:     16,
		BranchCol:    0,
		ProductCol:   2,
		UnitValueCol: 6,
		QuantityCol:  7,
	}
}

// ParseSales converts a raw sales (or promotional-sales) table into
// canonical lines. UnitPrice on the result carries the per-unit sales value
// used by the price check; the first observed value per (branch, product)
// wins, while quantities sum.
func ParseSales(table *RawTable, schema *SalesSchema) []models.CanonicalLine {
	if schema == nil {
		schema = DefaultSalesSchema()
	}
	if table.IsEmpty() {
		return []models.CanonicalLine{}
	}

	dropped := 0
	acc := newAccumulator()

	for i := schema.SkipRows; i < len(table.Rows); i++ {
		productID, ok := models.NormalizeProductID(table.Cell(i, schema.ProductCol))
		if !ok {
			dropped++
			continue
		}

		line := models.CanonicalLine{
			Branch:    models.NormalizeBranch(table.Cell(i, schema.BranchCol)),
			ProductID: productID,
			Quantity:  parseDecimal(table.Cell(i, schema.QuantityCol)),
		}
		if schema.UnitValueCol >= 0 {
			line.UnitPrice = parseDecimal(table.Cell(i, schema.UnitValueCol))
		}

		acc.add(line)
	}

	lines := acc.result()
	logger.WithComponent("sources").WithFields(logger.Fields{
		"source":       "sales",
		"lines":        len(lines),
		"dropped_rows": dropped,
	}).Debug("Sales source parsed")

	return lines
}

// BranchGrossTotals reduces canonical sales lines to the per-branch gross
// sales totals consumed by the summary aggregator.
func BranchGrossTotals(lines []models.CanonicalLine) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for i := range lines {
		l := &lines[i]
		totals[l.Branch] = totals[l.Branch].Add(l.Quantity.Mul(l.UnitPrice))
	}
	return totals
}
