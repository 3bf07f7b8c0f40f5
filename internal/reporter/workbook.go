package reporter

import (
	"fmt"
	"io"

	"consignment-reconciliation-service/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetLines     = "Settlement"
	sheetSummaries = "Branch Summary"
)

// generateWorkbook renders the report as an xlsx workbook with a settlement
// sheet and, when enabled, a branch summary sheet.
func (rg *ReportGenerator) generateWorkbook(report *Report, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetLines); err != nil {
		return fmt.Errorf("failed to create settlement sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, sheetLines, 1, toInterfaces(csvHeader)); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(csvHeader))
	if err := f.SetCellStyle(sheetLines, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	rowIdx := 2
	for i := range report.Table {
		line := &report.Table[i]
		if !rg.config.IncludeOKLines && line.QtyStatus == models.QtyStatusOK &&
			line.PriceStatus != models.PriceStatusDivergent {
			continue
		}
		if err := writeRow(f, sheetLines, rowIdx, toInterfaces(lineRecord(line))); err != nil {
			return err
		}
		rowIdx++
	}

	if rg.config.IncludeSummaries {
		if err := rg.writeSummarySheet(f, report); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (rg *ReportGenerator) writeSummarySheet(f *excelize.File, report *Report) error {
	if _, err := f.NewSheet(sheetSummaries); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header := []interface{}{
		"Branch",
		"Gross_Sales_Total",
		"Divergence_Value_Total",
		"Manual_Settle_Value_Total",
		"Net_Value_Settled_Total",
		"Gross_Value_Settled_Total",
	}
	if err := writeRow(f, sheetSummaries, 1, header); err != nil {
		return err
	}

	row := 2
	for _, s := range report.Summaries {
		record := []interface{}{
			s.Branch,
			s.GrossSalesTotal.StringFixed(2),
			s.DivergenceValueTotal.StringFixed(2),
			s.ManualSettleValueTotal.StringFixed(2),
			s.NetValueSettledTotal.StringFixed(2),
			s.GrossValueSettledTotal.StringFixed(2),
		}
		if err := writeRow(f, sheetSummaries, row, record); err != nil {
			return err
		}
		row++
	}

	totals := []interface{}{
		"TOTAL",
		"",
		report.Totals.NetDivergenceValue.StringFixed(2),
		report.Totals.NetManualSettleValue.StringFixed(2),
		"",
		"",
	}
	return writeRow(f, sheetSummaries, row+1, totals)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toInterfaces(record []string) []interface{} {
	out := make([]interface{}, len(record))
	for i, v := range record {
		out[i] = v
	}
	return out
}
