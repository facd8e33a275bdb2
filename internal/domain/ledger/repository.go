package ledger

import (
	"context"
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

// Repository defines operations on the stock transaction ledger.
type Repository interface {
	// InsertTransactions batch inserts ledger entries. All entries land
	// in the caller's transaction or none do.
	InsertTransactions(ctx context.Context, txs []*StockTransaction) error

	// GetBalance returns the on-hand quantity for one material at one
	// location. Missing pair means zero.
	GetBalance(ctx context.Context, locationID, materialID id.ID) (types.Quantity, error)

	// GetBalanceForUpdate is GetBalance with the underlying rows locked,
	// for stock checks inside a transaction.
	GetBalanceForUpdate(ctx context.Context, locationID, materialID id.ID) (types.Quantity, error)

	// GetStockByLocation returns the stock snapshot of a location:
	// every material with a non-zero history there, with material
	// attributes joined in.
	GetStockByLocation(ctx context.Context, locationID id.ID) ([]StockBalance, error)

	// GetStockByMaterial returns balances of one material across locations.
	GetStockByMaterial(ctx context.Context, materialID id.ID) ([]StockBalance, error)

	// ListTransactions returns ledger entries matching the filter,
	// newest first.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*StockTransaction, error)
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	MaterialID *id.ID
	LocationID *id.ID
	Reference  *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}
