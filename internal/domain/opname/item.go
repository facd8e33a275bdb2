// Package opname implements the stock opname (physical count)
// reconciliation workflow: building the counting sheet from the live
// stock snapshot and saved drafts, the breakdown calculator, draft
// persistence and the finalize step that emits adjustment transactions.
package opname

import (
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

// BreakdownRow is a labeled sub-count entered in the calculator.
type BreakdownRow struct {
	ID    int            `json:"id"`
	Label string         `json:"label"`
	Qty   types.Quantity `json:"qty"`
}

// InventoryItem is one line of the counting sheet for a location.
// SystemStock is frozen at load time; PhysicalStock nil means the
// material has not been counted yet.
type InventoryItem struct {
	MaterialID   id.ID  `json:"materialId"`
	MaterialCode string `json:"materialCode"`
	MaterialName string `json:"materialName"`
	Unit         string `json:"unit"`

	SystemStock   types.Quantity  `json:"systemStock"`
	PhysicalStock *types.Quantity `json:"physicalStock,omitempty"`

	Breakdown    []BreakdownRow `json:"breakdown"`
	HasBreakdown bool           `json:"hasBreakdown"`
	IsModified   bool           `json:"isModified"`
}

// NewInventoryItem creates an uncounted item with a single empty
// breakdown row ready for editing.
func NewInventoryItem(materialID id.ID, code, name, unit string, systemStock types.Quantity) *InventoryItem {
	return &InventoryItem{
		MaterialID:   materialID,
		MaterialCode: code,
		MaterialName: name,
		Unit:         unit,
		SystemStock:  systemStock,
		Breakdown:    []BreakdownRow{{ID: 1, Label: "Count 1", Qty: 0}},
	}
}

// Counted reports whether a physical count has been entered.
func (i *InventoryItem) Counted() bool {
	return i.PhysicalStock != nil
}

// SetPhysicalStock records a directly entered count. Direct entry and
// breakdown entry are mutually exclusive, so any breakdown flag is
// cleared.
func (i *InventoryItem) SetPhysicalStock(qty types.Quantity) {
	i.PhysicalStock = &qty
	i.HasBreakdown = false
	i.IsModified = true
}

// Diff returns physical minus system. The second result is false when
// the item has not been counted.
func (i *InventoryItem) Diff() (types.Quantity, bool) {
	if i.PhysicalStock == nil {
		return 0, false
	}
	return *i.PhysicalStock - i.SystemStock, true
}
