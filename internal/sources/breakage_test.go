package sources

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testBreakageSchema() *BreakageSchema {
	return &BreakageSchema{
		BranchAnchor: CellRef{Row: 0, Col: 1},
		ProductLabel: "ISBN",
		ProductCol:   0,
		CountedCol:   1,
		StockCol:     2,
	}
}

func TestParseBreakage(t *testing.T) {
	table := &RawTable{Rows: [][]string{
		{"Filial:", "Centro"},
		{"ISBN", "Contado", "Estoque"},
		{"9781111111111", "8", "10"},
		{"9782222222222", "5", "3"},
		{"9781111111111", "1", "2"},
		{"invalid", "0", "0"},
	}}

	lines := ParseBreakage(table, testBreakageSchema())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if first.Branch != "centro" {
		t.Errorf("expected anchor branch centro, got %q", first.Branch)
	}
	// 10-8 plus 2-1 from the duplicate row.
	if !first.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected summed breakage 3, got %s", first.Quantity)
	}

	// Surplus row keeps its negative sum; the engine bounds it later.
	second := lines[1]
	if !second.Quantity.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("expected surplus -2, got %s", second.Quantity)
	}
}

func TestParseBreakageNoHeader(t *testing.T) {
	table := &RawTable{Rows: [][]string{
		{"Filial:", "Centro"},
		{"9781111111111", "8", "10"},
	}}

	lines := ParseBreakage(table, testBreakageSchema())
	if len(lines) != 0 {
		t.Errorf("expected empty result without a header row, got %d lines", len(lines))
	}
}

func TestParseBreakageEmptyTable(t *testing.T) {
	if lines := ParseBreakage(&RawTable{}, nil); len(lines) != 0 {
		t.Errorf("expected empty result, got %d lines", len(lines))
	}
}
