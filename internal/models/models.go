// Package models defines the canonical data model shared by every stage of
// the consignment reconciliation pipeline: normalized join keys, the
// per-source canonical line schema, the merged reconciled line, the mutable
// settlement state layered on top of it, and the summary rollups.
//
// All quantities, prices and monetary values use decimal.Decimal to avoid
// the float rounding artifacts that plague settlement spreadsheets.
package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// QtyStatus classifies the quantity position of a reconciled line.
type QtyStatus string

const (
	// QtyStatusOK means the settled quantity is fully covered by sales.
	QtyStatusOK QtyStatus = "OK"
	// QtyStatusDivergent means more was settled than sold.
	QtyStatusDivergent QtyStatus = "DIVERGENT"
	// QtyStatusPromo marks a promotional line, settled under promo rules.
	QtyStatusPromo QtyStatus = "PROMO"
)

// String returns the string representation of QtyStatus.
func (s QtyStatus) String() string {
	return string(s)
}

// IsValid checks if the quantity status is one of the known values.
func (s QtyStatus) IsValid() bool {
	return s == QtyStatusOK || s == QtyStatusDivergent || s == QtyStatusPromo
}

// PriceStatus classifies the unit-price position of a reconciled line.
type PriceStatus string

const (
	// PriceStatusOK means settlement and sales prices agree within tolerance.
	PriceStatusOK PriceStatus = "OK"
	// PriceStatusDivergent means the prices differ beyond tolerance.
	PriceStatusDivergent PriceStatus = "DIVERGENT"
)

// String returns the string representation of PriceStatus.
func (s PriceStatus) String() string {
	return string(s)
}

// LineKey is the normalized (branch, product) join key used by every source
// and by operator overrides. Keys must be produced via NormalizeKey so that
// rows from different origins compare equal.
type LineKey struct {
	Branch    string `json:"branch"`
	ProductID string `json:"product_id"`
}

// String returns a human-readable representation of the key.
func (k LineKey) String() string {
	return fmt.Sprintf("%s/%s", k.Branch, k.ProductID)
}

// Less provides the deterministic ordering used for table output:
// branch first, then product id.
func (k LineKey) Less(other LineKey) bool {
	if k.Branch != other.Branch {
		return k.Branch < other.Branch
	}
	return k.ProductID < other.ProductID
}

// MarshalText encodes the key as "branch|product_id" so that maps keyed by
// LineKey survive a JSON round trip. The pipe cannot occur in either part:
// branches are lowercased names and product ids are digit strings.
func (k LineKey) MarshalText() ([]byte, error) {
	return []byte(k.Branch + "|" + k.ProductID), nil
}

// UnmarshalText decodes a key written by MarshalText.
func (k *LineKey) UnmarshalText(text []byte) error {
	branch, productID, ok := strings.Cut(string(text), "|")
	if !ok {
		return fmt.Errorf("malformed line key %q", text)
	}
	k.Branch = branch
	k.ProductID = productID
	return nil
}

// CanonicalLine is the schema every source adapter emits: one row per
// normalized (branch, product) pair with duplicate source rows already
// collapsed (quantities summed, price/title/supplier first-wins).
//
// UnitPrice, DiscountRate and Supplier are populated by the settlement
// source only; for the sales source UnitPrice carries the per-unit sales
// figure used for the price check. Secondary sources leave them zero.
type CanonicalLine struct {
	Branch       string          `json:"branch"`
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Supplier     string          `json:"supplier,omitempty"`
}

// Key returns the normalized join key of the line.
func (l *CanonicalLine) Key() LineKey {
	return LineKey{Branch: l.Branch, ProductID: l.ProductID}
}

// Validate performs basic invariant checks on a canonical line.
func (l *CanonicalLine) Validate() error {
	if _, ok := NormalizeProductID(l.ProductID); !ok {
		return fmt.Errorf("product id %q is not a valid normalized identifier", l.ProductID)
	}
	if l.Quantity.IsNegative() {
		return fmt.Errorf("quantity cannot be negative, got %s", l.Quantity)
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("unit price cannot be negative, got %s", l.UnitPrice)
	}
	if l.DiscountRate.IsNegative() || l.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("discount rate must be in [0,1], got %s", l.DiscountRate)
	}
	return nil
}

// ReconciledLine is the immutable result of merging the four canonical
// sources for one (branch, product) pair and classifying its divergences.
// Quantities from sources with no matching row default to zero, never nil.
type ReconciledLine struct {
	Branch    string `json:"branch"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Supplier  string `json:"supplier"`

	SettlementQty decimal.Decimal `json:"settlement_qty"`
	SalesQty      decimal.Decimal `json:"sales_qty"`
	PromoSalesQty decimal.Decimal `json:"promo_sales_qty"`
	BreakageQty   decimal.Decimal `json:"breakage_qty"`

	UnitPrice      decimal.Decimal `json:"unit_price"`
	SalesUnitValue decimal.Decimal `json:"sales_unit_value"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`

	IsPromotional   bool            `json:"is_promotional"`
	QtyDivergence   decimal.Decimal `json:"qty_divergence"`
	QtyStatus       QtyStatus       `json:"qty_status"`
	PriceDivergence decimal.Decimal `json:"price_divergence"`
	PriceStatus     PriceStatus     `json:"price_status"`

	NetUnitPrice       decimal.Decimal `json:"net_unit_price"`
	DivergenceValueNet decimal.Decimal `json:"divergence_value_net"`
	BreakageValueNet   decimal.Decimal `json:"breakage_value_net"`
	BreakageValueGross decimal.Decimal `json:"breakage_value_gross"`
}

// Key returns the normalized join key of the line.
func (l *ReconciledLine) Key() LineKey {
	return LineKey{Branch: l.Branch, ProductID: l.ProductID}
}

// SettlementState layers the operator-editable settlement decision on top of
// an immutable ReconciledLine. It is always re-derived deterministically from
// the line plus the current OverrideMap and is never persisted independently
// of that pair.
type SettlementState struct {
	ReconciledLine

	QtyToSettle int64 `json:"qty_to_settle"`
	FinalQty    int64 `json:"final_qty"`

	NetValueToSettle  decimal.Decimal `json:"net_value_to_settle"`
	GrossValueSettled decimal.Decimal `json:"gross_value_settled"`
	NetValueSettled   decimal.Decimal `json:"net_value_settled"`
}

// OverrideMap carries operator-entered settlement quantities keyed by the
// same normalized join key as ReconciledLine. Entries whose key matches no
// line are silently ignored.
type OverrideMap map[LineKey]int64

// Normalized returns a copy of the map with every key passed through the key
// normalizer, so callers may build it from raw operator input.
func (m OverrideMap) Normalized() OverrideMap {
	out := make(OverrideMap, len(m))
	for k, v := range m {
		nk, ok := NormalizeKey(k.Branch, k.ProductID)
		if !ok {
			continue
		}
		out[nk] = v
	}
	return out
}

// BranchSummary is the per-branch rollup of a settlement table, outer joined
// against an independently computed per-branch gross sales total.
type BranchSummary struct {
	Branch                 string          `json:"branch"`
	NetValueSettledTotal   decimal.Decimal `json:"net_value_settled_total"`
	GrossValueSettledTotal decimal.Decimal `json:"gross_value_settled_total"`
	DivergenceValueTotal   decimal.Decimal `json:"divergence_value_total"`
	ManualSettleValueTotal decimal.Decimal `json:"manual_settle_value_total"`
	GrossSalesTotal        decimal.Decimal `json:"gross_sales_total"`
}

// GrandTotals carries the two table-wide scalars reported alongside the
// branch summaries.
type GrandTotals struct {
	NetDivergenceValue   decimal.Decimal `json:"net_divergence_value"`
	NetManualSettleValue decimal.Decimal `json:"net_manual_settle_value"`
}

// SortLines orders canonical lines by (branch, product) for deterministic
// output.
func SortLines(lines []CanonicalLine) {
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Key().Less(lines[j].Key())
	})
}

// SortStates orders settlement states by (branch, product) for deterministic
// output.
func SortStates(states []SettlementState) {
	sort.Slice(states, func(i, j int) bool {
		return states[i].Key().Less(states[j].Key())
	})
}
