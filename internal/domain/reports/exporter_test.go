package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/opname"
)

func qty(t *testing.T, s string) types.Quantity {
	t.Helper()
	q, err := types.ParseQuantity(s)
	require.NoError(t, err)
	return q
}

func TestExportReconciliation(t *testing.T) {
	report := &opname.Report{
		RunNumber: "OPN-2026-00042",
		Date:      time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		Rows: []opname.ReconciliationRow{
			{
				LocationID:   id.New(),
				LocationName: "Main Warehouse",
				MaterialID:   id.New(),
				MaterialCode: "MAT-00001",
				MaterialName: "Wheat Flour",
				Unit:         "kg",
				SystemQty:    qty(t, "100"),
				PhysicalQty:  qty(t, "97.5"),
				Diff:         qty(t, "-2.5"),
				Adjusted:     true,
			},
			{
				LocationID:   id.New(),
				LocationName: "Main Warehouse",
				MaterialID:   id.New(),
				MaterialCode: "MAT-00002",
				MaterialName: "Salt",
				Unit:         "kg",
				SystemQty:    qty(t, "20"),
				PhysicalQty:  qty(t, "20"),
				Diff:         0,
				Adjusted:     false,
			},
		},
		AdjustmentCount: 1,
		LocationCount:   1,
		GeneratedAt:     time.Now(),
	}

	data, err := ExportReconciliation(report)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Reconciliation"}, f.GetSheetList())

	title, err := f.GetCellValue("Reconciliation", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Stock Opname OPN-2026-00042", title)

	date, err := f.GetCellValue("Reconciliation", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-29", date)

	header, err := f.GetCellValue("Reconciliation", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Location", header)

	material, err := f.GetCellValue("Reconciliation", "C7")
	require.NoError(t, err)
	assert.Equal(t, "Wheat Flour", material)

	physical, err := f.GetCellValue("Reconciliation", "F7")
	require.NoError(t, err)
	assert.Equal(t, "97.5", physical)

	adjusted, err := f.GetCellValue("Reconciliation", "H7")
	require.NoError(t, err)
	assert.Equal(t, "yes", adjusted)

	// Zero-diff rows still appear, just not flagged as adjusted.
	adjusted, err = f.GetCellValue("Reconciliation", "H8")
	require.NoError(t, err)
	assert.Equal(t, "", adjusted)
}

func TestExportReconciliation_EmptyReport(t *testing.T) {
	report := &opname.Report{
		RunNumber: "OPN-2026-00001",
		Date:      time.Now(),
	}

	data, err := ExportReconciliation(report)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Reconciliation", "H6")
	require.NoError(t, err)
	assert.Equal(t, "Adjusted", header)
}
