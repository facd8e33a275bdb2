package dto

import (
	"time"

	"stocktake/internal/domain/opname"
)

// --- Request DTOs ---

// LoadSheetRequest selects the location and day to count.
type LoadSheetRequest struct {
	LocationID string `json:"locationId" binding:"required"`
	// Date defaults to today when omitted (RFC3339 or YYYY-MM-DD).
	Date string `json:"date"`
}

// AddManualItemRequest adds a material missing from the snapshot.
type AddManualItemRequest struct {
	MaterialID string `json:"materialId" binding:"required"`
}

// SetCountRequest records a directly entered count.
type SetCountRequest struct {
	Qty string `json:"qty" binding:"required"`
}

// BreakdownRowRequest is one calculator row. Qty stays a raw string;
// blanks and partial input are summed as zero.
type BreakdownRowRequest struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Qty   string `json:"qty"`
}

// ApplyBreakdownRequest replaces a material's breakdown rows.
type ApplyBreakdownRequest struct {
	Rows []BreakdownRowRequest `json:"rows" binding:"required"`
}

// WorkingRows converts request rows to calculator rows.
func (r *ApplyBreakdownRequest) WorkingRows() []opname.WorkingRow {
	rows := make([]opname.WorkingRow, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = opname.WorkingRow{ID: row.ID, Label: row.Label, Qty: row.Qty}
	}
	return rows
}

// --- Response DTOs ---

// BreakdownRowResponse is one committed breakdown row.
type BreakdownRowResponse struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Qty   string `json:"qty"`
}

// InventoryItemResponse is one row of the counting sheet.
type InventoryItemResponse struct {
	MaterialID    string                 `json:"materialId"`
	MaterialCode  string                 `json:"materialCode"`
	MaterialName  string                 `json:"materialName"`
	Unit          string                 `json:"unit"`
	SystemStock   string                 `json:"systemStock"`
	PhysicalStock *string                `json:"physicalStock,omitempty"`
	Breakdown     []BreakdownRowResponse `json:"breakdown,omitempty"`
	HasBreakdown  bool                   `json:"hasBreakdown"`
	IsModified    bool                   `json:"isModified"`
}

// FromInventoryItem creates response DTO from a sheet item.
func FromInventoryItem(it *opname.InventoryItem) InventoryItemResponse {
	resp := InventoryItemResponse{
		MaterialID:   it.MaterialID.String(),
		MaterialCode: it.MaterialCode,
		MaterialName: it.MaterialName,
		Unit:         it.Unit,
		SystemStock:  it.SystemStock.String(),
		HasBreakdown: it.HasBreakdown,
		IsModified:   it.IsModified,
	}
	if it.PhysicalStock != nil {
		s := it.PhysicalStock.String()
		resp.PhysicalStock = &s
	}
	for _, row := range it.Breakdown {
		resp.Breakdown = append(resp.Breakdown, BreakdownRowResponse{
			ID:    row.ID,
			Label: row.Label,
			Qty:   row.Qty.String(),
		})
	}
	return resp
}

// SheetResponse is the loaded counting sheet.
type SheetResponse struct {
	LocationID string                  `json:"locationId"`
	Date       time.Time               `json:"date"`
	Items      []InventoryItemResponse `json:"items"`
	// CountedBy names the operator holding the advisory lock, empty
	// when this session holds it.
	CountedBy string `json:"countedBy,omitempty"`
}

// DraftResponse summarizes a saved draft event.
type DraftResponse struct {
	ID         string    `json:"id"`
	LocationID string    `json:"locationId"`
	Date       time.Time `json:"date"`
	ItemCount  int       `json:"itemCount"`
	AuthoredBy string    `json:"authoredBy"`
	SavedAt    time.Time `json:"savedAt"`
}

// FromDraft creates response DTO from a draft event.
func FromDraft(d *opname.Draft) DraftResponse {
	return DraftResponse{
		ID:         d.ID.String(),
		LocationID: d.LocationID.String(),
		Date:       d.Date,
		ItemCount:  d.ItemCount,
		AuthoredBy: d.AuthoredBy.String(),
		SavedAt:    d.SavedAt,
	}
}

// ReconciliationRowResponse is one row of the finalize report.
type ReconciliationRowResponse struct {
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName"`
	MaterialID   string `json:"materialId"`
	MaterialCode string `json:"materialCode"`
	MaterialName string `json:"materialName"`
	Unit         string `json:"unit"`
	SystemQty    string `json:"systemQty"`
	PhysicalQty  string `json:"physicalQty"`
	Diff         string `json:"diff"`
	Adjusted     bool   `json:"adjusted"`
}

// ReportResponse is the outcome of a finalize run.
type ReportResponse struct {
	RunNumber       string                      `json:"runNumber"`
	Date            time.Time                   `json:"date"`
	Rows            []ReconciliationRowResponse `json:"rows"`
	AdjustmentCount int                         `json:"adjustmentCount"`
	LocationCount   int                         `json:"locationCount"`
	GeneratedBy     string                      `json:"generatedBy"`
	GeneratedAt     time.Time                   `json:"generatedAt"`
}

// FromReport creates response DTO from a finalize report.
func FromReport(r *opname.Report) ReportResponse {
	resp := ReportResponse{
		RunNumber:       r.RunNumber,
		Date:            r.Date,
		AdjustmentCount: r.AdjustmentCount,
		LocationCount:   r.LocationCount,
		GeneratedBy:     r.GeneratedBy.String(),
		GeneratedAt:     r.GeneratedAt,
	}
	for _, row := range r.Rows {
		resp.Rows = append(resp.Rows, ReconciliationRowResponse{
			LocationID:   row.LocationID.String(),
			LocationName: row.LocationName,
			MaterialID:   row.MaterialID.String(),
			MaterialCode: row.MaterialCode,
			MaterialName: row.MaterialName,
			Unit:         row.Unit,
			SystemQty:    row.SystemQty.String(),
			PhysicalQty:  row.PhysicalQty.String(),
			Diff:         row.Diff.String(),
			Adjusted:     row.Adjusted,
		})
	}
	return resp
}
