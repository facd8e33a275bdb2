package dto

import (
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/ledger"
)

// --- Request DTOs ---

// PostTransactionRequest is the request body for posting a stock
// transaction. Quantity is a decimal string to avoid float coercion.
type PostTransactionRequest struct {
	MaterialID string `json:"materialId" binding:"required"`
	LocationID string `json:"locationId" binding:"required"`
	Direction  string `json:"direction" binding:"required"`
	Quantity   string `json:"quantity" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
	Narrative  string `json:"narrative"`
}

// ToEntity converts DTO to a ledger transaction. CreatedBy is filled
// by the service from the request context.
func (r *PostTransactionRequest) ToEntity() (*ledger.StockTransaction, error) {
	materialID, err := id.Parse(r.MaterialID)
	if err != nil {
		return nil, apperror.NewValidation("invalid materialId").WithDetail("field", "materialId")
	}
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return nil, apperror.NewValidation("invalid locationId").WithDetail("field", "locationId")
	}
	qty, err := types.ParseQuantity(r.Quantity)
	if err != nil {
		return nil, apperror.NewValidation("invalid quantity").WithDetail("field", "quantity")
	}

	t := ledger.NewTransaction(materialID, locationID, ledger.Direction(r.Direction), qty, r.Reason, id.Nil())
	if r.Narrative != "" {
		t.Narrative = &r.Narrative
	}
	return t, nil
}

// TransferRequest is the request body for a location-to-location transfer.
type TransferRequest struct {
	MaterialID     string `json:"materialId" binding:"required"`
	FromLocationID string `json:"fromLocationId" binding:"required"`
	ToLocationID   string `json:"toLocationId" binding:"required"`
	Quantity       string `json:"quantity" binding:"required"`
}

// --- Response DTOs ---

// TransactionResponse is the response body for a ledger entry.
type TransactionResponse struct {
	ID         string    `json:"id"`
	MaterialID string    `json:"materialId"`
	LocationID string    `json:"locationId"`
	Direction  string    `json:"direction"`
	Quantity   string    `json:"quantity"`
	Reason     string    `json:"reason"`
	Reference  *string   `json:"reference,omitempty"`
	Narrative  *string   `json:"narrative,omitempty"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromTransaction creates response DTO from a ledger entry.
func FromTransaction(t *ledger.StockTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:         t.ID.String(),
		MaterialID: t.MaterialID.String(),
		LocationID: t.LocationID.String(),
		Direction:  string(t.Direction),
		Quantity:   t.Quantity.String(),
		Reason:     t.Reason,
		Reference:  t.Reference,
		Narrative:  t.Narrative,
		CreatedBy:  t.CreatedBy.String(),
		CreatedAt:  t.CreatedAt,
	}
}

// StockBalanceResponse is one row of a stock query.
type StockBalanceResponse struct {
	MaterialID      string     `json:"materialId"`
	MaterialCode    string     `json:"materialCode"`
	MaterialName    string     `json:"materialName"`
	Unit            string     `json:"unit"`
	LocationID      string     `json:"locationId"`
	Quantity        string     `json:"quantity"`
	OldestStockDate *time.Time `json:"oldestStockDate,omitempty"`
}

// FromStockBalance creates response DTO from a derived balance.
func FromStockBalance(b ledger.StockBalance) StockBalanceResponse {
	return StockBalanceResponse{
		MaterialID:      b.MaterialID.String(),
		MaterialCode:    b.MaterialCode,
		MaterialName:    b.MaterialName,
		Unit:            b.Unit,
		LocationID:      b.LocationID.String(),
		Quantity:        b.Quantity.String(),
		OldestStockDate: b.OldestStockDate,
	}
}
