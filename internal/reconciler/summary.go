package reconciler

import (
	"sort"

	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Summarize reduces a settlement table to per-branch summaries and grand
// totals. The branch summaries are outer-joined against the independently
// supplied per-branch gross sales totals: a branch present only in the sales
// totals still gets a row, with zeroed settlement columns; a branch with no
// sales total gets zero there.
//
// The aggregation is derived purely from the current table, with no hidden
// running counters, so it can be requested at any time and after any number
// of recomputes.
func Summarize(states []models.SettlementState, grossSales map[string]decimal.Decimal) ([]models.BranchSummary, models.GrandTotals) {
	byBranch := make(map[string]*models.BranchSummary)
	totals := models.GrandTotals{
		NetDivergenceValue:   decimal.Zero,
		NetManualSettleValue: decimal.Zero,
	}

	for i := range states {
		s := &states[i]

		summary, ok := byBranch[s.Branch]
		if !ok {
			summary = newBranchSummary(s.Branch)
			byBranch[s.Branch] = summary
		}

		summary.NetValueSettledTotal = summary.NetValueSettledTotal.Add(s.NetValueSettled)
		summary.GrossValueSettledTotal = summary.GrossValueSettledTotal.Add(s.GrossValueSettled)
		summary.DivergenceValueTotal = summary.DivergenceValueTotal.Add(s.DivergenceValueNet)
		summary.ManualSettleValueTotal = summary.ManualSettleValueTotal.Add(s.NetValueToSettle)

		totals.NetDivergenceValue = totals.NetDivergenceValue.Add(s.DivergenceValueNet)
		totals.NetManualSettleValue = totals.NetManualSettleValue.Add(s.NetValueToSettle)
	}

	for branch, total := range grossSales {
		branch = models.NormalizeBranch(branch)
		summary, ok := byBranch[branch]
		if !ok {
			summary = newBranchSummary(branch)
			byBranch[branch] = summary
		}
		summary.GrossSalesTotal = summary.GrossSalesTotal.Add(total)
	}

	out := make([]models.BranchSummary, 0, len(byBranch))
	for _, summary := range byBranch {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Branch < out[j].Branch
	})

	return out, totals
}

func newBranchSummary(branch string) *models.BranchSummary {
	return &models.BranchSummary{
		Branch:                 branch,
		NetValueSettledTotal:   decimal.Zero,
		GrossValueSettledTotal: decimal.Zero,
		DivergenceValueTotal:   decimal.Zero,
		ManualSettleValueTotal: decimal.Zero,
		GrossSalesTotal:        decimal.Zero,
	}
}
