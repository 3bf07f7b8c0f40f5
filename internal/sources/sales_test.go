package sources

import (
	"testing"

	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func testSalesSchema() *SalesSchema {
	return &SalesSchema{
		SkipRows:     1,
		BranchCol:    0,
		ProductCol:   1,
		UnitValueCol: 2,
		QuantityCol:  3,
	}
}

func TestParseSales(t *testing.T) {
	table := &RawTable{Rows: [][]string{
		{"Filial", "Produto", "Vl. Venda", "Qtd"},
		{"Centro", "9781111111111", "18,00", "4"},
		{"Centro", "9781111111111", "17,50", "3"},
		{"Norte", "9782222222222", "30,00", "1"},
		{"Centro", "total", "", ""},
	}}

	lines := ParseSales(table, testSalesSchema())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if first.Branch != "centro" || first.ProductID != "9781111111111" {
		t.Fatalf("unexpected first key %s/%s", first.Branch, first.ProductID)
	}
	if !first.Quantity.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected summed sales quantity 7, got %s", first.Quantity)
	}
	if !first.UnitPrice.Equal(decimal.RequireFromString("18")) {
		t.Errorf("expected first-wins unit value 18, got %s", first.UnitPrice)
	}
}

func TestParseSalesWithoutUnitValueColumn(t *testing.T) {
	schema := testSalesSchema()
	schema.UnitValueCol = -1

	table := &RawTable{Rows: [][]string{
		{"Filial", "Produto", "Vl. Venda", "Qtd"},
		{"Centro", "9781111111111", "18,00", "4"},
	}}

	lines := ParseSales(table, schema)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].UnitPrice.IsZero() {
		t.Errorf("expected zero unit value when column is absent, got %s", lines[0].UnitPrice)
	}
}

func TestParseSalesEmptyTable(t *testing.T) {
	if lines := ParseSales(&RawTable{}, testSalesSchema()); len(lines) != 0 {
		t.Errorf("expected empty result, got %d lines", len(lines))
	}
	if lines := ParseSales(&RawTable{}, nil); len(lines) != 0 {
		t.Errorf("expected empty result with default schema, got %d lines", len(lines))
	}
}

func TestBranchGrossTotals(t *testing.T) {
	lines := []models.CanonicalLine{
		{Branch: "centro", ProductID: "9781111111111", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.RequireFromString("18")},
		{Branch: "centro", ProductID: "9782222222222", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("10.5")},
		{Branch: "norte", ProductID: "9783333333333", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("30")},
	}

	totals := BranchGrossTotals(lines)
	if len(totals) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(totals))
	}
	if !totals["centro"].Equal(decimal.RequireFromString("93")) {
		t.Errorf("expected centro total 93, got %s", totals["centro"])
	}
	if !totals["norte"].Equal(decimal.RequireFromString("30")) {
		t.Errorf("expected norte total 30, got %s", totals["norte"])
	}
}
