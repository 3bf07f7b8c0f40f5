package reconciler

import (
	"testing"

	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func centTolerance() decimal.Decimal {
	return decimal.NewFromFloat(0.01)
}

func mergedLine(settleQty, salesQty float64, unitPrice, salesUnitValue, discount float64) models.ReconciledLine {
	return models.ReconciledLine{
		Branch:         "centro",
		ProductID:      "11111111",
		SettlementQty:  decimal.NewFromFloat(settleQty),
		SalesQty:       decimal.NewFromFloat(salesQty),
		UnitPrice:      decimal.NewFromFloat(unitPrice),
		SalesUnitValue: decimal.NewFromFloat(salesUnitValue),
		DiscountRate:   decimal.NewFromFloat(discount),
	}
}

// Mirrors the reference shortfall case: 10 settled, 7 sold, 20.00 at 10%
// discount must yield divergence 3, net price 18.00 and net divergence 54.00.
func TestClassifyQuantityShortfall(t *testing.T) {
	table := []models.ReconciledLine{mergedLine(10, 7, 20.00, 20.00, 0.10)}

	got := Classify(table, nil, ModeStandard, centTolerance())[0]

	if !got.QtyDivergence.Equal(decimal.NewFromInt(3)) {
		t.Errorf("qty divergence: got %s, want 3", got.QtyDivergence)
	}
	if got.QtyStatus != models.QtyStatusDivergent {
		t.Errorf("qty status: got %s, want DIVERGENT", got.QtyStatus)
	}
	if !got.NetUnitPrice.Equal(decimal.NewFromInt(18)) {
		t.Errorf("net unit price: got %s, want 18.00", got.NetUnitPrice)
	}
	if !got.DivergenceValueNet.Equal(decimal.NewFromInt(54)) {
		t.Errorf("divergence value: got %s, want 54.00", got.DivergenceValueNet)
	}
}

func TestClassifyOversoldIsNotDivergent(t *testing.T) {
	table := []models.ReconciledLine{mergedLine(5, 9, 10.00, 10.00, 0)}

	got := Classify(table, nil, ModeStandard, centTolerance())[0]

	if !got.QtyDivergence.Equal(decimal.Zero) {
		t.Errorf("expected zero divergence when sales exceed settlement, got %s", got.QtyDivergence)
	}
	if got.QtyStatus != models.QtyStatusOK {
		t.Errorf("expected OK status, got %s", got.QtyStatus)
	}
}

func TestClassifyPriceTolerance(t *testing.T) {
	tests := []struct {
		name           string
		unitPrice      float64
		salesUnitValue float64
		expectStatus   models.PriceStatus
	}{
		{"sub-cent rounding is OK", 15.00, 15.009, models.PriceStatusOK},
		{"two cents is divergent", 15.00, 15.02, models.PriceStatusDivergent},
		{"exactly one cent is OK", 15.00, 15.01, models.PriceStatusOK},
		{"equal prices are OK", 15.00, 15.00, models.PriceStatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := []models.ReconciledLine{mergedLine(1, 1, tt.unitPrice, tt.salesUnitValue, 0)}
			got := Classify(table, nil, ModeStandard, centTolerance())[0]

			if got.PriceStatus != tt.expectStatus {
				t.Errorf("price status: got %s, want %s (divergence %s)",
					got.PriceStatus, tt.expectStatus, got.PriceDivergence)
			}
		})
	}

	// The sign of the divergence is preserved for reporting.
	table := []models.ReconciledLine{mergedLine(1, 1, 15.00, 15.02, 0)}
	got := Classify(table, nil, ModeStandard, centTolerance())[0]
	if !got.PriceDivergence.Equal(decimal.NewFromFloat(-0.02)) {
		t.Errorf("price divergence: got %s, want -0.02", got.PriceDivergence)
	}
}

func TestClassifyStandardPromoRequiresPromoSales(t *testing.T) {
	promoSet := map[string]struct{}{"11111111": {}}

	// In the promo set but no promotional sales: not promotional.
	noPromoSales := mergedLine(10, 10, 20.00, 20.00, 0)
	got := Classify([]models.ReconciledLine{noPromoSales}, promoSet, ModeStandard, centTolerance())[0]
	if got.IsPromotional {
		t.Error("expected item without promo sales not to be promotional in standard mode")
	}
	if got.QtyStatus != models.QtyStatusOK {
		t.Errorf("expected OK, got %s", got.QtyStatus)
	}

	// With promotional sales and an otherwise OK position: reported PROMO.
	withPromoSales := mergedLine(10, 10, 20.00, 20.00, 0)
	withPromoSales.PromoSalesQty = decimal.NewFromInt(4)
	got = Classify([]models.ReconciledLine{withPromoSales}, promoSet, ModeStandard, centTolerance())[0]
	if !got.IsPromotional {
		t.Error("expected promotional item")
	}
	if got.QtyStatus != models.QtyStatusPromo {
		t.Errorf("expected PROMO status override, got %s", got.QtyStatus)
	}

	// A genuine shortfall keeps DIVERGENT even for a promotional item.
	shortfall := mergedLine(10, 6, 20.00, 20.00, 0)
	shortfall.PromoSalesQty = decimal.NewFromInt(4)
	got = Classify([]models.ReconciledLine{shortfall}, promoSet, ModeStandard, centTolerance())[0]
	if got.QtyStatus != models.QtyStatusDivergent {
		t.Errorf("expected DIVERGENT for shortfall, got %s", got.QtyStatus)
	}
}

// Promotional-mode classification: membership alone marks promotional, the
// divergence is measured against promotional sales, and promo lines are
// always PROMO. Mirrors the 20 settled / 5 promo-sold reference case.
func TestClassifyPromotionalMode(t *testing.T) {
	promoSet := map[string]struct{}{"11111111": {}}

	line := mergedLine(20, 0, 20.00, 0, 0)
	line.PromoSalesQty = decimal.NewFromInt(5)

	got := Classify([]models.ReconciledLine{line}, promoSet, ModePromotional, centTolerance())[0]

	if !got.IsPromotional {
		t.Error("expected promo-set membership alone to mark promotional")
	}
	if !got.QtyDivergence.Equal(decimal.NewFromInt(15)) {
		t.Errorf("qty divergence: got %s, want 15", got.QtyDivergence)
	}
	if got.QtyStatus != models.QtyStatusPromo {
		t.Errorf("expected PROMO status, got %s", got.QtyStatus)
	}
	if got.PriceStatus != models.PriceStatusOK || !got.PriceDivergence.Equal(decimal.Zero) {
		t.Error("price check must not apply in promotional mode")
	}

	// Zero promotional sales still marks promotional in this mode.
	zeroPromo := mergedLine(20, 0, 20.00, 0, 0)
	got = Classify([]models.ReconciledLine{zeroPromo}, promoSet, ModePromotional, centTolerance())[0]
	if !got.IsPromotional || got.QtyStatus != models.QtyStatusPromo {
		t.Errorf("expected promotional with zero promo sales, got promo=%v status=%s",
			got.IsPromotional, got.QtyStatus)
	}
}

func TestApplyBreakageBoundsAndAttribution(t *testing.T) {
	tests := []struct {
		name          string
		breakageQty   float64
		settlementQty float64
		salesQty      float64
		expectApplied int64
	}{
		// Reported 8 against 5 settled, but fully sold: nothing attributed.
		{"no divergence means no attribution", 8, 5, 5, 0},
		{"bounded by settlement", 8, 5, 2, 5},
		{"below settlement passes through", 2, 10, 4, 2},
		{"negative breakage clipped", -3, 10, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := mergedLine(tt.settlementQty, tt.salesQty, 10.00, 10.00, 0.20)
			line.BreakageQty = decimal.NewFromFloat(tt.breakageQty)

			classified := Classify([]models.ReconciledLine{line}, nil, ModeStandard, centTolerance())
			got := ApplyBreakage(classified, true)[0]

			if !got.BreakageQty.Equal(decimal.NewFromInt(tt.expectApplied)) {
				t.Errorf("applied breakage: got %s, want %d", got.BreakageQty, tt.expectApplied)
			}

			wantNet := decimal.NewFromInt(tt.expectApplied).Mul(got.NetUnitPrice)
			if !got.BreakageValueNet.Equal(wantNet) {
				t.Errorf("breakage net value: got %s, want %s", got.BreakageValueNet, wantNet)
			}
			wantGross := decimal.NewFromInt(tt.expectApplied).Mul(got.UnitPrice)
			if !got.BreakageValueGross.Equal(wantGross) {
				t.Errorf("breakage gross value: got %s, want %s", got.BreakageValueGross, wantGross)
			}
		})
	}
}

func TestApplyBreakageWithoutSource(t *testing.T) {
	line := mergedLine(10, 4, 10.00, 10.00, 0)
	line.BreakageQty = decimal.NewFromInt(3) // stray value must be zeroed

	classified := Classify([]models.ReconciledLine{line}, nil, ModeStandard, centTolerance())
	got := ApplyBreakage(classified, false)[0]

	if !got.BreakageQty.Equal(decimal.Zero) || !got.BreakageValueNet.Equal(decimal.Zero) || !got.BreakageValueGross.Equal(decimal.Zero) {
		t.Errorf("expected zero breakage fields without a source, got qty=%s net=%s gross=%s",
			got.BreakageQty, got.BreakageValueNet, got.BreakageValueGross)
	}
}
