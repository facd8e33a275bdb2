package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"stocktake/internal/domain/opname"
)

const reconciliationSheet = "Reconciliation"

var reconciliationHeader = []string{
	"Location", "Code", "Material", "Unit",
	"System Qty", "Physical Qty", "Difference", "Adjusted",
}

// ExportReconciliation renders a finalize report as an xlsx workbook.
func ExportReconciliation(report *opname.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(reconciliationSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	// Title block
	f.SetCellValue(reconciliationSheet, "A1", "Stock Opname "+report.RunNumber)
	f.SetCellValue(reconciliationSheet, "A2", "Date")
	f.SetCellValue(reconciliationSheet, "B2", report.Date.Format("2006-01-02"))
	f.SetCellValue(reconciliationSheet, "A3", "Locations counted")
	f.SetCellValue(reconciliationSheet, "B3", report.LocationCount)
	f.SetCellValue(reconciliationSheet, "A4", "Adjustments posted")
	f.SetCellValue(reconciliationSheet, "B4", report.AdjustmentCount)

	const headerRow = 6
	for col, title := range reconciliationHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		f.SetCellValue(reconciliationSheet, cell, title)
		f.SetCellStyle(reconciliationSheet, cell, cell, headerStyle)
	}

	for i, row := range report.Rows {
		adjusted := ""
		if row.Adjusted {
			adjusted = "yes"
		}
		values := []any{
			row.LocationName, row.MaterialCode, row.MaterialName, row.Unit,
			row.SystemQty.Float64(), row.PhysicalQty.Float64(), row.Diff.Float64(),
			adjusted,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, headerRow+1+i)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			f.SetCellValue(reconciliationSheet, cell, v)
		}
	}

	f.SetColWidth(reconciliationSheet, "A", "A", 24)
	f.SetColWidth(reconciliationSheet, "C", "C", 32)
	f.SetColWidth(reconciliationSheet, "E", "G", 14)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}
