package opname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

func qty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func newItem(name string, system types.Quantity) *InventoryItem {
	return NewInventoryItem(id.New(), "M-001", name, "pcs", system)
}

func TestCalculator_CommitSumsRows(t *testing.T) {
	tests := []struct {
		name string
		qtys []string
		want types.Quantity
	}{
		{"single row", []string{"40"}, qty("40")},
		{"two rows", []string{"40", "58"}, qty("98")},
		{"blank treated as zero", []string{"40", "", "58"}, qty("98")},
		{"garbage treated as zero", []string{"abc", "12.5"}, qty("12.5")},
		{"fractions accumulate", []string{"0.1", "0.2", "0.3"}, qty("0.6")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newItem("Widget", qty("100"))
			calc := NewCalculator(item)

			for i, q := range tt.qtys {
				if i > 0 {
					calc.AddRow()
				}
				rows := calc.Rows()
				v := q
				calc.UpdateRow(rows[len(rows)-1].ID, nil, &v)
			}

			calc.Commit(item)

			require.NotNil(t, item.PhysicalStock)
			assert.Equal(t, tt.want, *item.PhysicalStock)
			assert.True(t, item.HasBreakdown)
			assert.True(t, item.IsModified)
			assert.Len(t, item.Breakdown, len(tt.qtys))
		})
	}
}

func TestCalculator_OpenSeedsManualEntry(t *testing.T) {
	item := newItem("Widget", qty("100"))
	item.SetPhysicalStock(qty("42"))

	calc := NewCalculator(item)
	rows := calc.Rows()

	require.Len(t, rows, 1)
	assert.Equal(t, "Count 1", rows[0].Label)
	assert.Equal(t, qty("42"), calc.Total())
}

func TestCalculator_OpenSeedsExistingBreakdown(t *testing.T) {
	item := newItem("Widget", qty("100"))
	item.Breakdown = []BreakdownRow{
		{ID: 1, Label: "Pallet A", Qty: qty("40")},
		{ID: 2, Label: "Pallet B", Qty: qty("58")},
	}
	item.HasBreakdown = true

	calc := NewCalculator(item)

	require.Len(t, calc.Rows(), 2)
	assert.Equal(t, qty("98"), calc.Total())
}

func TestCalculator_RemoveLastRowResetsInsteadOfDeleting(t *testing.T) {
	item := newItem("Widget", qty("100"))
	calc := NewCalculator(item)
	v := "50"
	calc.UpdateRow(1, nil, &v)
	require.Equal(t, qty("50"), calc.Total())

	calc.RemoveRow(1)

	rows := calc.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.Quantity(0), calc.Total())

	calc.Commit(item)
	require.NotNil(t, item.PhysicalStock)
	assert.True(t, item.PhysicalStock.IsZero())
}

func TestCalculator_RemoveRow(t *testing.T) {
	item := newItem("Widget", qty("100"))
	calc := NewCalculator(item)
	a := "10"
	calc.UpdateRow(1, nil, &a)
	calc.AddRow()
	b := "20"
	calc.UpdateRow(2, nil, &b)

	calc.RemoveRow(1)

	rows := calc.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ID)
	assert.Equal(t, qty("20"), calc.Total())
}

func TestCalculator_AddRowLabels(t *testing.T) {
	item := newItem("Widget", qty("0"))
	calc := NewCalculator(item)
	calc.AddRow()
	calc.AddRow()

	rows := calc.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "Count 2", rows[1].Label)
	assert.Equal(t, "Count 3", rows[2].Label)
}

func TestDirectEntryClearsBreakdownFlag(t *testing.T) {
	item := newItem("Widget", qty("100"))
	calc := NewCalculator(item)
	v := "98"
	calc.UpdateRow(1, nil, &v)
	calc.Commit(item)
	require.True(t, item.HasBreakdown)

	item.SetPhysicalStock(qty("97"))

	assert.False(t, item.HasBreakdown)
	assert.Equal(t, qty("97"), *item.PhysicalStock)
	assert.True(t, item.IsModified)
}
