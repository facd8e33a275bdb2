package opname

import (
	"fmt"

	"stocktake/internal/core/types"
)

// Calculator lets an operator express a physical count as a sum of
// labeled parts (pallets, bins) and commit that sum as the item's
// physical stock. It works purely in memory; nothing is persisted until
// the caller saves a draft.
//
// Row quantities are kept as raw text while editing so partially typed
// input never blocks the operator; non-numeric text counts as 0 in the
// running total.
type Calculator struct {
	rows   []workingRow
	nextID int
}

type workingRow struct {
	id    int
	label string
	qty   string
}

// WorkingRow is the editable view of one calculator row.
type WorkingRow struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Qty   string `json:"qty"`
}

// NewCalculator opens the calculator for an item. An existing breakdown
// is used as the starting rows; otherwise a single row carries the
// item's current count so a prior manual entry is never silently
// discarded.
func NewCalculator(item *InventoryItem) *Calculator {
	c := &Calculator{}

	if item.HasBreakdown && len(item.Breakdown) > 0 {
		for _, r := range item.Breakdown {
			c.rows = append(c.rows, workingRow{id: r.ID, label: r.Label, qty: r.Qty.String()})
			if r.ID > c.nextID {
				c.nextID = r.ID
			}
		}
		return c
	}

	seed := "0"
	if item.PhysicalStock != nil {
		seed = item.PhysicalStock.String()
	}
	c.rows = []workingRow{{id: 1, label: "Count 1", qty: seed}}
	c.nextID = 1
	return c
}

// AddRow appends a new row with a sequential label and zero quantity.
func (c *Calculator) AddRow() {
	c.nextID++
	c.rows = append(c.rows, workingRow{
		id:    c.nextID,
		label: fmt.Sprintf("Count %d", len(c.rows)+1),
		qty:   "0",
	})
}

// RemoveRow deletes the row. The last remaining row is reset to zero
// instead of removed; a breakdown always has at least one row.
func (c *Calculator) RemoveRow(rowID int) {
	if len(c.rows) == 1 {
		if c.rows[0].id == rowID {
			c.rows[0].qty = "0"
		}
		return
	}

	for i, r := range c.rows {
		if r.id == rowID {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			return
		}
	}
}

// UpdateRow changes a row's label and/or quantity text. Unknown row IDs
// are ignored.
func (c *Calculator) UpdateRow(rowID int, label, qty *string) {
	for i := range c.rows {
		if c.rows[i].id != rowID {
			continue
		}
		if label != nil {
			c.rows[i].label = *label
		}
		if qty != nil {
			c.rows[i].qty = *qty
		}
		return
	}
}

// ReplaceRows swaps in a full set of rows, assigning IDs where the
// caller left them zero.
func (c *Calculator) ReplaceRows(rows []WorkingRow) {
	if len(rows) == 0 {
		return
	}

	c.rows = c.rows[:0]
	maxID := 0
	for _, r := range rows {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	for _, r := range rows {
		rowID := r.ID
		if rowID == 0 {
			maxID++
			rowID = maxID
		}
		c.rows = append(c.rows, workingRow{id: rowID, label: r.Label, qty: r.Qty})
	}
	c.nextID = maxID
}

// Rows returns the current working rows for display.
func (c *Calculator) Rows() []WorkingRow {
	out := make([]WorkingRow, len(c.rows))
	for i, r := range c.rows {
		out[i] = WorkingRow{ID: r.id, Label: r.label, Qty: r.qty}
	}
	return out
}

// Total sums the rows left to right, coercing blank or non-numeric
// quantities to zero.
func (c *Calculator) Total() types.Quantity {
	var total types.Quantity
	for _, r := range c.rows {
		total += types.ParseLenient(r.qty)
	}
	return total
}

// Commit writes the summed total and a normalized copy of the rows back
// to the item. This is the only way an item gains a breakdown.
func (c *Calculator) Commit(item *InventoryItem) {
	total := c.Total()

	normalized := make([]BreakdownRow, len(c.rows))
	for i, r := range c.rows {
		normalized[i] = BreakdownRow{
			ID:    r.id,
			Label: r.label,
			Qty:   types.ParseLenient(r.qty),
		}
	}

	item.PhysicalStock = &total
	item.Breakdown = normalized
	item.HasBreakdown = true
	item.IsModified = true
}
