// Package ledger provides the stock transaction ledger: the append-only
// record of material movements from which on-hand stock is derived.
package ledger

import (
	"context"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

// Direction of a stock transaction.
type Direction string

const (
	// DirectionIn increases stock at the location.
	DirectionIn Direction = "IN"

	// DirectionOut decreases stock at the location.
	DirectionOut Direction = "OUT"
)

// Valid reports whether the direction is one of the known values.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Well-known transaction reasons. Reason is free text; these are the
// values the system itself writes.
const (
	ReasonReceipt    = "Receipt"
	ReasonIssue      = "Issue"
	ReasonTransfer   = "Transfer"
	ReasonAdjustment = "Adjustment"
)

// StockTransaction is a single ledger entry. Quantity is always
// positive; Direction carries the sign.
type StockTransaction struct {
	ID         id.ID          `db:"id" json:"id"`
	MaterialID id.ID          `db:"material_id" json:"materialId"`
	LocationID id.ID          `db:"location_id" json:"locationId"`
	Direction  Direction      `db:"direction" json:"direction"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	Reason     string         `db:"reason" json:"reason"`

	// Reference groups transactions produced by one operation,
	// e.g. all adjustments of a reconciliation run.
	Reference *string `db:"reference" json:"reference,omitempty"`

	// Narrative is free text for audit, e.g. the counted vs recorded
	// quantities behind an adjustment.
	Narrative *string `db:"narrative" json:"narrative,omitempty"`

	CreatedBy id.ID     `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewTransaction creates a transaction with a fresh ID and timestamp.
func NewTransaction(materialID, locationID id.ID, dir Direction, qty types.Quantity, reason string, createdBy id.ID) *StockTransaction {
	return &StockTransaction{
		ID:         id.New(),
		MaterialID: materialID,
		LocationID: locationID,
		Direction:  dir,
		Quantity:   qty,
		Reason:     reason,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate checks the transaction invariants.
func (t *StockTransaction) Validate(ctx context.Context) error {
	if id.IsNil(t.MaterialID) {
		return apperror.NewValidation("material is required").WithDetail("field", "materialId")
	}
	if id.IsNil(t.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if !t.Direction.Valid() {
		return apperror.NewValidation("direction must be IN or OUT").WithDetail("field", "direction")
	}
	if !t.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if t.Reason == "" {
		return apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	return nil
}

// SignedQuantity returns the quantity with the direction applied.
func (t *StockTransaction) SignedQuantity() types.Quantity {
	if t.Direction == DirectionOut {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// StockBalance is the derived on-hand quantity of a material at a
// location, together with the date of the earliest contributing receipt.
type StockBalance struct {
	MaterialID      id.ID          `db:"material_id" json:"materialId"`
	MaterialCode    string         `db:"material_code" json:"materialCode"`
	MaterialName    string         `db:"material_name" json:"materialName"`
	Unit            string         `db:"unit" json:"unit"`
	LocationID      id.ID          `db:"location_id" json:"locationId"`
	Quantity        types.Quantity `db:"quantity" json:"quantity"`
	OldestStockDate *time.Time     `db:"oldest_stock_date" json:"oldestStockDate,omitempty"`
}
