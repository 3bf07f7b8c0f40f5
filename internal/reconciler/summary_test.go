package reconciler

import (
	"testing"

	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func TestSummarizeGroupsByBranch(t *testing.T) {
	lines := []models.CanonicalLine{
		settlementLine("centro", "11111111", 10, 20.00, 0.10),
		settlementLine("centro", "22222222", 4, 10.00, 0),
		settlementLine("vila", "11111111", 6, 30.00, 0),
	}
	sales := []models.CanonicalLine{
		secondaryLine("centro", "11111111", 7, 20.00),
		secondaryLine("centro", "22222222", 4, 10.00),
		secondaryLine("vila", "11111111", 6, 30.00),
	}

	classified := Classify(Merge(lines, sales, nil, nil), nil, ModeStandard, centTolerance())
	states := Settle(classified, models.OverrideMap{
		{Branch: "centro", ProductID: "11111111"}: 2,
	}, StandardPolicy())

	summaries, totals := Summarize(states, nil)

	if len(summaries) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(summaries))
	}

	centro := summaries[0]
	if centro.Branch != "centro" {
		t.Fatalf("expected centro first, got %s", centro.Branch)
	}

	// centro: line 1 final = 7+2 = 9 at net 18.00, line 2 final = 4 at 10.00.
	wantNet := decimal.NewFromInt(9).Mul(decimal.NewFromInt(18)).Add(decimal.NewFromInt(40))
	if !centro.NetValueSettledTotal.Equal(wantNet) {
		t.Errorf("centro net settled: got %s, want %s", centro.NetValueSettledTotal, wantNet)
	}
	wantGross := decimal.NewFromInt(9).Mul(decimal.NewFromInt(20)).Add(decimal.NewFromInt(40))
	if !centro.GrossValueSettledTotal.Equal(wantGross) {
		t.Errorf("centro gross settled: got %s, want %s", centro.GrossValueSettledTotal, wantGross)
	}
	// Divergence 3 at net 18.00.
	if !centro.DivergenceValueTotal.Equal(decimal.NewFromInt(54)) {
		t.Errorf("centro divergence total: got %s, want 54", centro.DivergenceValueTotal)
	}
	// Manual settle 2 at net 18.00.
	if !centro.ManualSettleValueTotal.Equal(decimal.NewFromInt(36)) {
		t.Errorf("centro manual total: got %s, want 36", centro.ManualSettleValueTotal)
	}

	if !totals.NetDivergenceValue.Equal(decimal.NewFromInt(54)) {
		t.Errorf("grand divergence: got %s, want 54", totals.NetDivergenceValue)
	}
	if !totals.NetManualSettleValue.Equal(decimal.NewFromInt(36)) {
		t.Errorf("grand manual: got %s, want 36", totals.NetManualSettleValue)
	}
}

func TestSummarizeOuterJoinsGrossSales(t *testing.T) {
	lines := []models.CanonicalLine{
		settlementLine("centro", "11111111", 5, 10.00, 0),
	}
	classified := Classify(Merge(lines, nil, nil, nil), nil, ModeStandard, centTolerance())
	states := Settle(classified, nil, StandardPolicy())

	grossSales := map[string]decimal.Decimal{
		"centro": decimal.NewFromInt(1000),
		// Branch with sales but no settlement lines still gets a row.
		"Moema ": decimal.NewFromInt(250),
	}

	summaries, _ := Summarize(states, grossSales)

	if len(summaries) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(summaries))
	}

	byBranch := map[string]models.BranchSummary{}
	for _, s := range summaries {
		byBranch[s.Branch] = s
	}

	if !byBranch["centro"].GrossSalesTotal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("centro gross sales: got %s", byBranch["centro"].GrossSalesTotal)
	}

	moema, ok := byBranch["moema"]
	if !ok {
		t.Fatal("expected sales-only branch under its normalized name")
	}
	if !moema.GrossSalesTotal.Equal(decimal.NewFromInt(250)) {
		t.Errorf("moema gross sales: got %s", moema.GrossSalesTotal)
	}
	if !moema.NetValueSettledTotal.Equal(decimal.Zero) {
		t.Errorf("sales-only branch must have zero settled value, got %s", moema.NetValueSettledTotal)
	}

	// A branch with no matching sales total gets zero there.
	summaries, _ = Summarize(states, nil)
	if !summaries[0].GrossSalesTotal.Equal(decimal.Zero) {
		t.Errorf("expected zero gross sales without totals source, got %s", summaries[0].GrossSalesTotal)
	}
}

func TestSummarizeEmptyTable(t *testing.T) {
	summaries, totals := Summarize(nil, nil)

	if len(summaries) != 0 {
		t.Errorf("expected no summaries, got %d", len(summaries))
	}
	if !totals.NetDivergenceValue.Equal(decimal.Zero) || !totals.NetManualSettleValue.Equal(decimal.Zero) {
		t.Errorf("expected zero totals, got %+v", totals)
	}
}
