// Package reconciler implements the consignment reconciliation engine: the
// multi-source merge, divergence classification, breakage integration,
// settlement calculation and summary aggregation stages.
//
// The engine is synchronous and stateless between invocations. Every stage is
// a pure function returning a new table value; a table handed to the next
// stage is never mutated in place, so a settlement table can be recomputed
// from the same inputs any number of times with identical results.
//
// Data flows strictly one direction:
//
//	source adapters -> Merge -> Classify -> ApplyBreakage -> Settle (+ overrides) -> Summarize
//
// Settle is the only stage re-entered after the session is built: it runs
// again on every operator edit, always from the immutable reconciled table
// plus the current override map.
package reconciler

import (
	"fmt"

	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/pkg/errors"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Mode selects between the two reconciliation workflows.
type Mode string

const (
	// ModeStandard reconciles settlement against regular sales; promotional
	// items require recorded promotional sales to be marked as such.
	ModeStandard Mode = "standard"
	// ModePromotional reconciles the promotional workflow: membership in the
	// promo set alone marks an item promotional, divergence is measured
	// against promotional sales, and the price check does not apply.
	ModePromotional Mode = "promotional"
)

// IsValid checks if the mode is one of the known values.
func (m Mode) IsValid() bool {
	return m == ModeStandard || m == ModePromotional
}

// Config holds configuration options for the reconciliation engine.
type Config struct {
	// PriceTolerance is the absolute unit-price difference below which the
	// settlement and sales prices are considered equal. Floating prices
	// routinely differ by sub-cent rounding; anything larger is a genuine
	// pricing discrepancy.
	PriceTolerance decimal.Decimal

	Mode Mode
}

// DefaultConfig returns the default engine configuration: standard mode with
// a one-cent price tolerance.
func DefaultConfig() *Config {
	return &Config{
		PriceTolerance: decimal.NewFromFloat(0.01),
		Mode:           ModeStandard,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.PriceTolerance.IsNegative() {
		return fmt.Errorf("price tolerance cannot be negative, got %s", c.PriceTolerance)
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	return nil
}

// Inputs carries one reconciliation session's canonical source tables.
// Settlement is mandatory; the remaining sources degrade to an all-zero
// contribution when nil or empty.
type Inputs struct {
	Settlement []models.CanonicalLine
	Sales      []models.CanonicalLine
	PromoSales []models.CanonicalLine
	Breakage   []models.CanonicalLine

	// PromoProducts is the set of normalized product ids flagged as part of
	// a promotional action.
	PromoProducts map[string]struct{}
}

// Engine runs the reconciliation pipeline.
type Engine struct {
	config *Config
	logger logger.Logger
}

// NewEngine creates a reconciliation engine with the given configuration.
// A nil config selects DefaultConfig.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "engine", config, err)
	}

	return &Engine{
		config: config,
		logger: logger.WithComponent("engine"),
	}, nil
}

// BuildTable runs the once-per-session stages: merge, divergence
// classification and breakage integration. It returns a hard error only when
// the settlement source is empty, since settlement is authoritative for which
// (branch, product) pairs exist.
func (e *Engine) BuildTable(inputs *Inputs) ([]models.ReconciledLine, error) {
	if inputs == nil || len(inputs.Settlement) == 0 {
		return nil, errors.ReconciliationError(errors.CodeNoReconcilableData, "merge", nil)
	}

	merged := Merge(inputs.Settlement, inputs.Sales, inputs.PromoSales, inputs.Breakage)
	classified := Classify(merged, inputs.PromoProducts, e.config.Mode, e.config.PriceTolerance)
	table := ApplyBreakage(classified, len(inputs.Breakage) > 0)

	e.logger.WithFields(logger.Fields{
		"mode":             e.config.Mode,
		"settlement_lines": len(inputs.Settlement),
		"sales_lines":      len(inputs.Sales),
		"promo_lines":      len(inputs.PromoSales),
		"breakage_lines":   len(inputs.Breakage),
		"reconciled_lines": len(table),
	}).Info("Reconciliation table built")

	return table, nil
}

// Settle derives the settlement state for every reconciled line from the
// current override map under the given policy. See the settle stage docs for
// the derivation rules.
func (e *Engine) Settle(table []models.ReconciledLine, overrides models.OverrideMap, policy SettlementPolicy) []models.SettlementState {
	return Settle(table, overrides, policy)
}

// Resettle recomputes settlement states from their embedded reconciled lines.
// It is the recompute entry point used after an operator edit: the previously
// persisted table is discarded and re-derived from the same immutable lines
// plus the new override map, so repeated application is idempotent.
func (e *Engine) Resettle(states []models.SettlementState, overrides models.OverrideMap, policy SettlementPolicy) []models.SettlementState {
	lines := make([]models.ReconciledLine, len(states))
	for i := range states {
		lines[i] = states[i].ReconciledLine
	}
	return Settle(lines, overrides, policy)
}

// Summarize reduces a settlement table to per-branch and grand totals.
func (e *Engine) Summarize(states []models.SettlementState, grossSales map[string]decimal.Decimal) ([]models.BranchSummary, models.GrandTotals) {
	return Summarize(states, grossSales)
}

// DefaultPolicy returns the settlement policy matching the engine's mode.
func (e *Engine) DefaultPolicy() SettlementPolicy {
	if e.config.Mode == ModePromotional {
		return PromotionalPolicy()
	}
	return StandardPolicy()
}
