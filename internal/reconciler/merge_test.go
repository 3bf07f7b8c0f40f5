package reconciler

import (
	"testing"

	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func settlementLine(branch, product string, qty float64, price float64, discount float64) models.CanonicalLine {
	return models.CanonicalLine{
		Branch:       branch,
		ProductID:    product,
		Title:        "Title " + product,
		Quantity:     decimal.NewFromFloat(qty),
		UnitPrice:    decimal.NewFromFloat(price),
		DiscountRate: decimal.NewFromFloat(discount),
		Supplier:     "Supplier A",
	}
}

func secondaryLine(branch, product string, qty float64, unitValue float64) models.CanonicalLine {
	return models.CanonicalLine{
		Branch:    branch,
		ProductID: product,
		Quantity:  decimal.NewFromFloat(qty),
		UnitPrice: decimal.NewFromFloat(unitValue),
	}
}

func TestMergeAnchorsOnSettlement(t *testing.T) {
	settlement := []models.CanonicalLine{
		settlementLine("centro", "11111111", 10, 20.00, 0.10),
		settlementLine("centro", "22222222", 5, 15.00, 0),
	}
	sales := []models.CanonicalLine{
		secondaryLine("centro", "11111111", 7, 19.99),
		// Present only in sales, absent from settlement: must be excluded.
		secondaryLine("centro", "99999999", 3, 10.00),
	}

	merged := Merge(settlement, sales, nil, nil)

	if len(merged) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(merged))
	}

	first := merged[0]
	if first.ProductID != "11111111" {
		t.Fatalf("unexpected order: first product %s", first.ProductID)
	}
	if !first.SalesQty.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected sales qty 7, got %s", first.SalesQty)
	}
	if !first.SalesUnitValue.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("expected sales unit value 19.99, got %s", first.SalesUnitValue)
	}

	// No match in any secondary source: quantities default to zero, not nil.
	second := merged[1]
	if !second.SalesQty.Equal(decimal.Zero) || !second.PromoSalesQty.Equal(decimal.Zero) || !second.BreakageQty.Equal(decimal.Zero) {
		t.Errorf("expected zero secondary quantities, got sales=%s promo=%s breakage=%s",
			second.SalesQty, second.PromoSalesQty, second.BreakageQty)
	}
}

func TestMergeCarriesSettlementFields(t *testing.T) {
	settlement := []models.CanonicalLine{
		settlementLine("centro", "11111111", 10, 20.00, 0.10),
	}

	merged := Merge(settlement, nil, nil, nil)

	line := merged[0]
	if line.Title != "Title 11111111" {
		t.Errorf("expected title carried over, got %q", line.Title)
	}
	if line.Supplier != "Supplier A" {
		t.Errorf("expected supplier carried over, got %q", line.Supplier)
	}
	if !line.UnitPrice.Equal(decimal.NewFromFloat(20.00)) {
		t.Errorf("expected unit price 20.00, got %s", line.UnitPrice)
	}
	if !line.DiscountRate.Equal(decimal.NewFromFloat(0.10)) {
		t.Errorf("expected discount 0.10, got %s", line.DiscountRate)
	}
}

func TestMergeJoinsAllSecondarySources(t *testing.T) {
	settlement := []models.CanonicalLine{
		settlementLine("centro", "11111111", 10, 20.00, 0),
	}
	sales := []models.CanonicalLine{secondaryLine("centro", "11111111", 7, 20.00)}
	promo := []models.CanonicalLine{secondaryLine("centro", "11111111", 2, 0)}
	breakage := []models.CanonicalLine{secondaryLine("centro", "11111111", 1, 0)}

	merged := Merge(settlement, sales, promo, breakage)

	line := merged[0]
	if !line.SalesQty.Equal(decimal.NewFromInt(7)) {
		t.Errorf("sales qty: got %s", line.SalesQty)
	}
	if !line.PromoSalesQty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("promo qty: got %s", line.PromoSalesQty)
	}
	if !line.BreakageQty.Equal(decimal.NewFromInt(1)) {
		t.Errorf("breakage qty: got %s", line.BreakageQty)
	}
}

func TestMergeDeterministicOrder(t *testing.T) {
	settlement := []models.CanonicalLine{
		settlementLine("vila", "11111111", 1, 1, 0),
		settlementLine("centro", "22222222", 1, 1, 0),
		settlementLine("centro", "11111111", 1, 1, 0),
	}

	merged := Merge(settlement, nil, nil, nil)

	want := []models.LineKey{
		{Branch: "centro", ProductID: "11111111"},
		{Branch: "centro", ProductID: "22222222"},
		{Branch: "vila", ProductID: "11111111"},
	}
	for i, key := range want {
		if merged[i].Key() != key {
			t.Errorf("position %d: got %v, want %v", i, merged[i].Key(), key)
		}
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	settlement := []models.CanonicalLine{
		settlementLine("vila", "11111111", 1, 1, 0),
		settlementLine("centro", "11111111", 1, 1, 0),
	}

	Merge(settlement, nil, nil, nil)

	if settlement[0].Branch != "vila" {
		t.Error("Merge reordered its input slice")
	}
}
