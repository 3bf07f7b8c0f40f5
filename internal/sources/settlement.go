package sources

import (
	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/pkg/errors"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// SettlementSchema describes the layout of a settlement (consignment
// statement) upload: two anchor cells near the top carrying the branch and
// supplier names, and a header row located by scanning for the product-id
// label. Column positions are resolved from the header by label, with the
// price, discount and title columns optional.
type SettlementSchema struct {
	BranchAnchor   CellRef `json:"branch_anchor"`
	SupplierAnchor CellRef `json:"supplier_anchor"`

	ProductLabel  string `json:"product_label"`
	QuantityLabel string `json:"quantity_label"`
	PriceLabel    string `json:"price_label"`
	DiscountLabel string `json:"discount_label"`
	TitleLabel    string `json:"title_label"`

	// DiscountIsPercent indicates the discount column carries percentages
	// (e.g. 35 for 35%) rather than fractions; values above 1 are divided
	// by 100 either way, since exports mix both conventions.
	DiscountIsPercent bool `json:"discount_is_percent"`
}

// DefaultSettlementSchema returns the layout of the ERP's consignment
// statement export.
func DefaultSettlementSchema() *SettlementSchema {
	return &SettlementSchema{
		BranchAnchor:      CellRef{Row: 0, Col: 2},
		SupplierAnchor:    CellRef{Row: 15, Col: 1},
		ProductLabel:      "ISBN",
		QuantityLabel:     "Quant",
		PriceLabel:        "Vl. Unit.",
		DiscountLabel:     "Desc.",
		TitleLabel:        "Titulo",
		DiscountIsPercent: true,
	}
}

// SettlementResult carries the canonical settlement lines plus the document
// anchors read from the sheet.
type SettlementResult struct {
	Lines    []models.CanonicalLine
	Branch   string
	Supplier string
}

// ParseSettlement converts a raw settlement table into canonical lines. The
// whole sheet shares one branch and supplier, read from the anchor cells.
// Returns a parse error only when the header row cannot be located; data
// rows degrade per the shared adapter rules.
func ParseSettlement(table *RawTable, schema *SettlementSchema) (*SettlementResult, error) {
	if schema == nil {
		schema = DefaultSettlementSchema()
	}
	if table.IsEmpty() {
		return &SettlementResult{Lines: []models.CanonicalLine{}}, nil
	}

	branchRaw := table.Cell(schema.BranchAnchor.Row, schema.BranchAnchor.Col)
	supplier := table.Cell(schema.SupplierAnchor.Row, schema.SupplierAnchor.Col)
	branch := models.NormalizeBranch(branchRaw)

	headerIdx := headerRowIndex(table, schema.ProductLabel)
	if headerIdx < 0 {
		return nil, errors.SourceError(errors.CodeHeaderNotFound, "settlement",
			"no row contains the "+schema.ProductLabel+" label", nil)
	}

	header := table.Rows[headerIdx]
	productCol := columnIndex(header, schema.ProductLabel)
	qtyCol := columnIndex(header, schema.QuantityLabel)
	priceCol := columnIndex(header, schema.PriceLabel)
	discountCol := columnIndex(header, schema.DiscountLabel)
	titleCol := columnIndex(header, schema.TitleLabel)

	if qtyCol < 0 {
		return nil, errors.SourceError(errors.CodeMissingColumn, "settlement",
			schema.QuantityLabel, nil)
	}

	log := logger.WithComponent("sources").WithField("source", "settlement")
	dropped := 0
	acc := newAccumulator()

	for i := headerIdx + 1; i < len(table.Rows); i++ {
		productID, ok := models.NormalizeProductID(table.Cell(i, productCol))
		if !ok {
			dropped++
			continue
		}

		line := models.CanonicalLine{
			Branch:    branch,
			ProductID: productID,
			Quantity:  parseDecimal(table.Cell(i, qtyCol)),
			Supplier:  supplier,
		}
		if titleCol >= 0 {
			line.Title = table.Cell(i, titleCol)
		}
		if priceCol >= 0 {
			line.UnitPrice = parseDecimal(table.Cell(i, priceCol))
		}
		if discountCol >= 0 {
			line.DiscountRate = normalizeDiscount(parseDecimal(table.Cell(i, discountCol)))
		}

		acc.add(line)
	}

	lines := acc.result()
	log.WithFields(logger.Fields{
		"branch":       branch,
		"supplier":     supplier,
		"lines":        len(lines),
		"dropped_rows": dropped,
	}).Debug("Settlement source parsed")

	return &SettlementResult{Lines: lines, Branch: branch, Supplier: supplier}, nil
}

// normalizeDiscount maps a raw discount cell to a fraction in [0,1].
// Exports carry either fractions (0.35) or percentages (35); anything above
// 1 is read as a percentage.
func normalizeDiscount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}
