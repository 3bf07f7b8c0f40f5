package reconciler

import (
	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Classify computes the divergence fields of every merged line and tags
// promotional items. It returns a new table; the input is not modified.
//
// Promotional marking depends on the mode:
//   - ModeStandard: a product is promotional when it is in the promo set AND
//     has recorded promotional sales. Quantity divergence is measured against
//     regular sales, and a promotional line whose quantity position is OK is
//     reported as PROMO instead.
//   - ModePromotional: membership in the promo set alone marks an item
//     promotional, even with zero promotional sales. Quantity divergence is
//     measured against promotional sales, promotional lines are always
//     reported as PROMO, and the price check does not apply.
func Classify(table []models.ReconciledLine, promoProducts map[string]struct{}, mode Mode, priceTolerance decimal.Decimal) []models.ReconciledLine {
	one := decimal.NewFromInt(1)

	out := make([]models.ReconciledLine, len(table))
	for i := range table {
		line := table[i]

		_, inPromoSet := promoProducts[line.ProductID]
		if mode == ModePromotional {
			line.IsPromotional = inPromoSet
		} else {
			line.IsPromotional = inPromoSet && line.PromoSalesQty.IsPositive()
		}

		soldQty := line.SalesQty
		if mode == ModePromotional {
			soldQty = line.PromoSalesQty
		}
		line.QtyDivergence = line.SettlementQty.Sub(soldQty)
		if line.QtyDivergence.IsNegative() {
			line.QtyDivergence = decimal.Zero
		}

		switch {
		case mode == ModePromotional && line.IsPromotional:
			line.QtyStatus = models.QtyStatusPromo
		case line.QtyDivergence.IsPositive():
			line.QtyStatus = models.QtyStatusDivergent
		case line.IsPromotional:
			line.QtyStatus = models.QtyStatusPromo
		default:
			line.QtyStatus = models.QtyStatusOK
		}

		if mode == ModePromotional {
			line.PriceDivergence = decimal.Zero
			line.PriceStatus = models.PriceStatusOK
		} else {
			line.PriceDivergence = line.UnitPrice.Sub(line.SalesUnitValue)
			if line.PriceDivergence.Abs().GreaterThan(priceTolerance) {
				line.PriceStatus = models.PriceStatusDivergent
			} else {
				line.PriceStatus = models.PriceStatusOK
			}
		}

		line.NetUnitPrice = line.UnitPrice.Mul(one.Sub(line.DiscountRate))
		line.DivergenceValueNet = line.QtyDivergence.Mul(line.NetUnitPrice)

		out[i] = line
	}

	return out
}

// ApplyBreakage folds inventory-shrinkage quantities into the classified
// table. Breakage is optional evidence: when no breakage source was supplied
// all breakage fields stay zero and the lines are otherwise unaffected.
//
// For each line the reported breakage is bounded by what is plausible given
// the settlement quantity, then attributed only when the line actually has a
// quantity divergence: a fully-sold line is not considered broken for
// settlement purposes even if the count sheet reports a nonzero breakage.
// After this stage BreakageQty holds the attributed quantity, not the raw
// sheet figure.
func ApplyBreakage(table []models.ReconciledLine, hasBreakageSource bool) []models.ReconciledLine {
	out := make([]models.ReconciledLine, len(table))
	for i := range table {
		line := table[i]

		if !hasBreakageSource {
			line.BreakageQty = decimal.Zero
			line.BreakageValueNet = decimal.Zero
			line.BreakageValueGross = decimal.Zero
			out[i] = line
			continue
		}

		bounded := decimal.Min(line.BreakageQty, line.SettlementQty)
		if bounded.IsNegative() {
			bounded = decimal.Zero
		}

		applied := decimal.Zero
		if line.QtyDivergence.IsPositive() {
			applied = bounded
		}

		line.BreakageQty = applied
		line.BreakageValueNet = applied.Mul(line.NetUnitPrice)
		line.BreakageValueGross = applied.Mul(line.UnitPrice)

		out[i] = line
	}

	return out
}
