// Package sources converts raw tabular inputs (settlement uploads, sales
// extracts, promotional-sales extracts, inventory-breakage sheets and their
// database equivalents) into the canonical line schema consumed by the
// reconciliation engine.
//
// Adapters share the failure semantics required by the engine: rows with an
// invalid product key are dropped, unparsable numeric cells coerce to zero,
// and an absent source yields an empty but correctly-typed result so the
// downstream join never fails on a missing key. Each origin's layout is
// described by an explicit schema value (header labels, fixed positions,
// anchor cells) rather than probed ad hoc.
package sources

import (
	"strings"

	"consignment-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// RawTable is a row-oriented table as read from a spreadsheet, CSV file or
// query result: no header semantics, ragged rows allowed.
type RawTable struct {
	Rows [][]string
}

// Cell returns the trimmed cell at (row, col), or "" when the coordinates
// fall outside the table. Spreadsheet exports are ragged; out-of-range reads
// are expected, not errors.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// IsEmpty reports whether the table has no rows.
func (t *RawTable) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// CellRef addresses a fixed anchor cell near the top of a document, such as
// the branch or supplier name cells of an export.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// parseDecimal coerces a raw cell to a decimal, defaulting to zero on parse
// failure. Currency symbols and thousand separators common in exported
// sheets are stripped first; a decimal comma is accepted when no decimal
// point is present.
func parseDecimal(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			// "1.234,56" style: dots are thousand separators.
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// headerRowIndex scans the table for the first row containing the marker
// label (case-insensitive, exact cell match after trimming) and returns its
// index, or -1 when no row qualifies.
func headerRowIndex(table *RawTable, marker string) int {
	marker = strings.ToUpper(strings.TrimSpace(marker))
	for i, row := range table.Rows {
		for _, cell := range row {
			if strings.ToUpper(strings.TrimSpace(cell)) == marker {
				return i
			}
		}
	}
	return -1
}

// columnIndex locates the column whose header cell contains the given label,
// or -1 when absent. Substring matching tolerates the suffix variations the
// source systems append to column names.
func columnIndex(header []string, label string) int {
	for i, cell := range header {
		if strings.Contains(strings.TrimSpace(cell), label) {
			return i
		}
	}
	return -1
}

// accumulator collapses duplicate (branch, product) rows under the
// deterministic aggregation policy shared by every adapter: quantities sum,
// while price, discount, title and supplier keep the first observed value.
type accumulator struct {
	order []models.LineKey
	lines map[models.LineKey]*models.CanonicalLine
}

func newAccumulator() *accumulator {
	return &accumulator{lines: make(map[models.LineKey]*models.CanonicalLine)}
}

func (a *accumulator) add(line models.CanonicalLine) {
	key := line.Key()
	if existing, ok := a.lines[key]; ok {
		existing.Quantity = existing.Quantity.Add(line.Quantity)
		return
	}

	a.order = append(a.order, key)
	copied := line
	a.lines[key] = &copied
}

// result returns the collapsed lines in first-seen order.
func (a *accumulator) result() []models.CanonicalLine {
	out := make([]models.CanonicalLine, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.lines[key])
	}
	return out
}
