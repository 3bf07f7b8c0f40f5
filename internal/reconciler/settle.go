package reconciler

import (
	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// SettlementPolicy parameterizes the settlement calculator. The standard and
// promotional workflows share the derivation steps but differ in how the
// operator override is bounded, so the difference is carried as data instead
// of two copies of the calculator.
type SettlementPolicy struct {
	Name string

	// ClampOverrideToShortfall bounds the operator override above by the
	// computed shortfall (quantity divergence for DIVERGENT lines, unsold
	// promotional quantity for PROMO lines).
	ClampOverrideToShortfall bool

	// CapFinalAtSettlement bounds the derived final quantity above by the
	// settled quantity.
	CapFinalAtSettlement bool
}

// StandardPolicy is the regular workflow: overrides are clamped to the
// computed shortfall and the final quantity needs no extra cap.
func StandardPolicy() SettlementPolicy {
	return SettlementPolicy{
		Name:                     "standard",
		ClampOverrideToShortfall: true,
	}
}

// PromotionalPolicy is the promotional-only workflow: the operator may record
// a settlement larger than the computed shortfall, so the override is not
// clamped, but the final quantity is still capped at the settled quantity.
// This is a deliberate policy difference between the two workflows, pending
// product-owner confirmation.
func PromotionalPolicy() SettlementPolicy {
	return SettlementPolicy{
		Name:                 "promotional",
		CapFinalAtSettlement: true,
	}
}

// Settle derives the settlement state of every line from the immutable
// reconciled table plus the current override map. The derivation per line:
//
//  1. Look up the override for the line's key; default 0, negatives raised
//     to 0. An override whose key matches no line is silently ignored,
//     since an operator edit referencing a stale key is expected after
//     upstream data changes.
//  2. Bound the override per the line's status and the policy. Lines in OK
//     status always settle 0 regardless of any override supplied for them.
//  3. Derive the final quantity: sales + override for DIVERGENT lines,
//     promotional sales + override for PROMO lines, the settled quantity
//     for OK lines; clipped to >= 0 and rounded to an integer.
//  4. Derive the monetary values from the final quantities and net price.
//
// Settle is a pure function of (table, overrides, policy): it never mutates
// its inputs and repeated application yields identical output.
func Settle(table []models.ReconciledLine, overrides models.OverrideMap, policy SettlementPolicy) []models.SettlementState {
	out := make([]models.SettlementState, len(table))
	for i := range table {
		out[i] = settleLine(table[i], overrides, policy)
	}
	return out
}

func settleLine(line models.ReconciledLine, overrides models.OverrideMap, policy SettlementPolicy) models.SettlementState {
	qtyToSettle := overrides[line.Key()]
	if qtyToSettle < 0 {
		qtyToSettle = 0
	}

	switch line.QtyStatus {
	case models.QtyStatusDivergent:
		if policy.ClampOverrideToShortfall {
			qtyToSettle = clampToDecimal(qtyToSettle, line.QtyDivergence)
		}
	case models.QtyStatusPromo:
		if policy.ClampOverrideToShortfall {
			unsold := line.SettlementQty.Sub(line.PromoSalesQty)
			if unsold.IsNegative() {
				unsold = decimal.Zero
			}
			qtyToSettle = clampToDecimal(qtyToSettle, unsold)
		}
	default:
		qtyToSettle = 0
	}

	override := decimal.NewFromInt(qtyToSettle)

	var finalQty decimal.Decimal
	switch line.QtyStatus {
	case models.QtyStatusDivergent:
		finalQty = line.SalesQty.Add(override)
	case models.QtyStatusPromo:
		finalQty = line.PromoSalesQty.Add(override)
	default:
		finalQty = line.SettlementQty
	}

	if policy.CapFinalAtSettlement {
		finalQty = decimal.Min(finalQty, line.SettlementQty)
	}
	if finalQty.IsNegative() {
		finalQty = decimal.Zero
	}
	final := finalQty.Round(0).IntPart()
	finalDec := decimal.NewFromInt(final)

	return models.SettlementState{
		ReconciledLine:    line,
		QtyToSettle:       qtyToSettle,
		FinalQty:          final,
		NetValueToSettle:  override.Mul(line.NetUnitPrice),
		GrossValueSettled: finalDec.Mul(line.UnitPrice),
		NetValueSettled:   finalDec.Mul(line.NetUnitPrice),
	}
}

// clampToDecimal bounds an integer override above by a decimal limit,
// truncating a fractional limit downward so the override never exceeds it.
func clampToDecimal(value int64, limit decimal.Decimal) int64 {
	if decimal.NewFromInt(value).LessThanOrEqual(limit) {
		return value
	}
	capped := limit.Floor().IntPart()
	if capped < 0 {
		return 0
	}
	return capped
}
