package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanonicalLineValidate(t *testing.T) {
	valid := CanonicalLine{
		Branch:       "centro",
		ProductID:    "9788512345678",
		Title:        "Some Title",
		Quantity:     decimal.NewFromInt(10),
		UnitPrice:    decimal.NewFromFloat(20.00),
		DiscountRate: decimal.NewFromFloat(0.10),
		Supplier:     "Editora X",
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid line, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*CanonicalLine)
	}{
		{"short product id", func(l *CanonicalLine) { l.ProductID = "123" }},
		{"negative quantity", func(l *CanonicalLine) { l.Quantity = decimal.NewFromInt(-1) }},
		{"negative price", func(l *CanonicalLine) { l.UnitPrice = decimal.NewFromFloat(-0.01) }},
		{"discount above one", func(l *CanonicalLine) { l.DiscountRate = decimal.NewFromFloat(1.5) }},
		{"negative discount", func(l *CanonicalLine) { l.DiscountRate = decimal.NewFromFloat(-0.1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := valid
			tt.modify(&line)
			if err := line.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLineKeyLess(t *testing.T) {
	a := LineKey{Branch: "centro", ProductID: "11111111"}
	b := LineKey{Branch: "centro", ProductID: "22222222"}
	c := LineKey{Branch: "vila", ProductID: "11111111"}

	if !a.Less(b) || b.Less(a) {
		t.Error("expected product id to break ties within a branch")
	}
	if !a.Less(c) || c.Less(a) {
		t.Error("expected branch to order first")
	}
}

func TestOverrideMapNormalized(t *testing.T) {
	raw := OverrideMap{
		{Branch: " Centro ", ProductID: "978-85-123-4567-8"}: 3,
		{Branch: "vila", ProductID: "123"}:                   5, // invalid product, dropped
	}

	normalized := raw.Normalized()
	if len(normalized) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(normalized))
	}

	key := LineKey{Branch: "centro", ProductID: "9788512345678"}
	if normalized[key] != 3 {
		t.Errorf("expected override 3 under %v, got %d", key, normalized[key])
	}
}

func TestSortStates(t *testing.T) {
	states := []SettlementState{
		{ReconciledLine: ReconciledLine{Branch: "vila", ProductID: "11111111"}},
		{ReconciledLine: ReconciledLine{Branch: "centro", ProductID: "22222222"}},
		{ReconciledLine: ReconciledLine{Branch: "centro", ProductID: "11111111"}},
	}

	SortStates(states)

	got := []LineKey{states[0].Key(), states[1].Key(), states[2].Key()}
	want := []LineKey{
		{Branch: "centro", ProductID: "11111111"},
		{Branch: "centro", ProductID: "22222222"},
		{Branch: "vila", ProductID: "11111111"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
