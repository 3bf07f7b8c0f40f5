// Package reporter renders settlement tables and their summaries.
//
// Supported output formats:
//   - Console: human-readable tabular output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: flat line-level export for spreadsheet applications
//   - XLSX: a styled workbook with one sheet per view
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(nil)
//	err = generator.GenerateReport(report, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"consignment-reconciliation-service/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// Report bundles everything one rendering consumes: the settled table, its
// per-branch rollup and grand totals, plus session metadata.
type Report struct {
	SessionID   string                   `json:"session_id,omitempty"`
	Mode        string                   `json:"mode"`
	Supplier    string                   `json:"supplier,omitempty"`
	GeneratedAt time.Time                `json:"generated_at"`
	Table       []models.SettlementState `json:"table"`
	Summaries   []models.BranchSummary   `json:"summaries"`
	Totals      models.GrandTotals       `json:"totals"`
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeOKLines    bool `json:"include_ok_lines"`
	IncludeSummaries  bool `json:"include_summaries"`
	IncludePriceCheck bool `json:"include_price_check"`

	// Console formatting options
	MaxLines int `json:"max_lines"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeOKLines:    false,
		IncludeSummaries:  true,
		IncludePriceCheck: true,
		MaxLines:          50,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxLines < 1 {
		return fmt.Errorf("max lines must be at least 1, got %d", c.MaxLines)
	}
	return nil
}

// ReportGenerator renders settlement reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the report to the provided writer
func (rg *ReportGenerator) GenerateReport(report *Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	case FormatXLSX:
		return rg.generateWorkbook(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// visibleLines applies the OK-line filter.
func (rg *ReportGenerator) visibleLines(report *Report) []models.SettlementState {
	if rg.config.IncludeOKLines {
		return report.Table
	}
	lines := make([]models.SettlementState, 0, len(report.Table))
	for _, line := range report.Table {
		if line.QtyStatus != models.QtyStatusOK || line.PriceStatus == models.PriceStatusDivergent {
			lines = append(lines, line)
		}
	}
	return lines
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(report *Report, writer io.Writer) error {
	fmt.Fprintf(writer, "CONSIGNMENT SETTLEMENT REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Mode: %s\n", report.Mode)
	if report.Supplier != "" {
		fmt.Fprintf(writer, "Supplier: %s\n", report.Supplier)
	}
	if report.SessionID != "" {
		fmt.Fprintf(writer, "Session: %s\n", report.SessionID)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== LINE OVERVIEW ===\n")
	rg.printStatusCounts(report.Table, writer)
	fmt.Fprintf(writer, "\n")

	lines := rg.visibleLines(report)
	fmt.Fprintf(writer, "=== SETTLEMENT LINES ===\n")
	rg.printLineList(lines, writer)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeSummaries && len(report.Summaries) > 0 {
		fmt.Fprintf(writer, "=== BRANCH SUMMARY ===\n")
		rg.printBranchSummaries(report.Summaries, writer)
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "=== GRAND TOTALS ===\n")
	fmt.Fprintf(writer, "Estimated Net Divergence Value: %s\n", report.Totals.NetDivergenceValue.StringFixed(2))
	fmt.Fprintf(writer, "Net Manual Settlement Value:    %s\n", report.Totals.NetManualSettleValue.StringFixed(2))

	return nil
}

func (rg *ReportGenerator) printStatusCounts(table []models.SettlementState, writer io.Writer) {
	counts := make(map[models.QtyStatus]int)
	priceDivergent := 0
	for _, line := range table {
		counts[line.QtyStatus]++
		if line.PriceStatus == models.PriceStatusDivergent {
			priceDivergent++
		}
	}

	fmt.Fprintf(writer, "Total Lines:     %d\n", len(table))
	fmt.Fprintf(writer, "  OK:            %d\n", counts[models.QtyStatusOK])
	fmt.Fprintf(writer, "  Divergent:     %d\n", counts[models.QtyStatusDivergent])
	fmt.Fprintf(writer, "  Promotional:   %d\n", counts[models.QtyStatusPromo])
	if rg.config.IncludePriceCheck {
		fmt.Fprintf(writer, "Price Divergent: %d\n", priceDivergent)
	}
}

func (rg *ReportGenerator) printLineList(lines []models.SettlementState, writer io.Writer) {
	if len(lines) == 0 {
		fmt.Fprintf(writer, "No lines to display.\n")
		return
	}

	for i, line := range lines {
		fmt.Fprintf(writer, "  %d. %s/%s %q\n", i+1, line.Branch, line.ProductID, line.Title)
		fmt.Fprintf(writer, "     settled=%s sold=%s divergence=%s status=%s\n",
			line.SettlementQty.StringFixed(0),
			line.SalesQty.StringFixed(0),
			line.QtyDivergence.StringFixed(0),
			line.QtyStatus)
		fmt.Fprintf(writer, "     to_settle=%d final=%d net_value_to_settle=%s\n",
			line.QtyToSettle, line.FinalQty, line.NetValueToSettle.StringFixed(2))
		if rg.config.IncludePriceCheck && line.PriceStatus == models.PriceStatusDivergent {
			fmt.Fprintf(writer, "     price divergence: %s (listed %s)\n",
				line.PriceDivergence.StringFixed(2), line.UnitPrice.StringFixed(2))
		}

		// Limit output for very long tables
		if i >= rg.config.MaxLines-1 && len(lines) > rg.config.MaxLines {
			fmt.Fprintf(writer, "  ... and %d more\n", len(lines)-rg.config.MaxLines)
			break
		}
	}
}

func (rg *ReportGenerator) printBranchSummaries(summaries []models.BranchSummary, writer io.Writer) {
	for _, s := range summaries {
		fmt.Fprintf(writer, "%s:\n", s.Branch)
		fmt.Fprintf(writer, "  Gross Sales Total:     %s\n", s.GrossSalesTotal.StringFixed(2))
		fmt.Fprintf(writer, "  Divergence Value:      %s\n", s.DivergenceValueTotal.StringFixed(2))
		fmt.Fprintf(writer, "  Manual Settle Value:   %s\n", s.ManualSettleValueTotal.StringFixed(2))
		fmt.Fprintf(writer, "  Net Value Settled:     %s\n", s.NetValueSettledTotal.StringFixed(2))
		fmt.Fprintf(writer, "  Gross Value Settled:   %s\n", s.GrossValueSettledTotal.StringFixed(2))
	}
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(report *Report, writer io.Writer) error {
	output := map[string]interface{}{
		"session_id":   report.SessionID,
		"mode":         report.Mode,
		"supplier":     report.Supplier,
		"generated_at": report.GeneratedAt,
		"table":        rg.visibleLines(report),
		"totals":       report.Totals,
	}
	if rg.config.IncludeSummaries {
		output["summaries"] = report.Summaries
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// csvHeader is the line-level CSV/XLSX column layout.
var csvHeader = []string{
	"Branch",
	"Product_ID",
	"Title",
	"Settlement_Qty",
	"Sales_Qty",
	"Promo_Sales_Qty",
	"Breakage_Qty",
	"Qty_Divergence",
	"Qty_Status",
	"Price_Status",
	"Unit_Price",
	"Net_Unit_Price",
	"Qty_To_Settle",
	"Final_Qty",
	"Net_Value_To_Settle",
	"Gross_Value_Settled",
	"Net_Value_Settled",
}

func lineRecord(line *models.SettlementState) []string {
	return []string{
		line.Branch,
		line.ProductID,
		line.Title,
		line.SettlementQty.String(),
		line.SalesQty.String(),
		line.PromoSalesQty.String(),
		line.BreakageQty.String(),
		line.QtyDivergence.String(),
		string(line.QtyStatus),
		string(line.PriceStatus),
		line.UnitPrice.StringFixed(2),
		line.NetUnitPrice.StringFixed(2),
		fmt.Sprintf("%d", line.QtyToSettle),
		fmt.Sprintf("%d", line.FinalQty),
		line.NetValueToSettle.StringFixed(2),
		line.GrossValueSettled.StringFixed(2),
		line.NetValueSettled.StringFixed(2),
	}
}

// generateCSVReport generates a flat line-level CSV export
func (rg *ReportGenerator) generateCSVReport(report *Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for i := range report.Table {
		line := &report.Table[i]
		if !rg.config.IncludeOKLines && line.QtyStatus == models.QtyStatusOK &&
			line.PriceStatus != models.PriceStatusDivergent {
			continue
		}
		if err := csvWriter.Write(lineRecord(line)); err != nil {
			return fmt.Errorf("failed to write line record: %w", err)
		}
	}

	return nil
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
