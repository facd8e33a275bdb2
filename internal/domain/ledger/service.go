package ledger

import (
	"context"
	"fmt"

	"stocktake/internal/core/apperror"
	appctx "stocktake/internal/core/context"
	"stocktake/internal/core/id"
	"stocktake/internal/core/tx"
	"stocktake/internal/core/types"
	"stocktake/pkg/logger"
)

// Service provides business operations on the stock ledger.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Post validates and records a single transaction. Outgoing quantities
// are checked against the locked balance first.
func (s *Service) Post(ctx context.Context, t *StockTransaction) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(t.CreatedBy) {
		t.CreatedBy = currentUser(ctx)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if t.Direction == DirectionOut {
			if err := s.checkAvailability(ctx, t.LocationID, t.MaterialID, t.Quantity); err != nil {
				return err
			}
		}

		if err := s.repo.InsertTransactions(ctx, []*StockTransaction{t}); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		logger.Info(ctx, "stock transaction posted",
			"id", t.ID,
			"material_id", t.MaterialID,
			"location_id", t.LocationID,
			"direction", t.Direction,
			"quantity", t.Quantity,
		)
		return nil
	})
}

// PostBatch records a set of transactions atomically. Used by the
// reconciliation finalize step; adjustments skip the availability check
// because a shortage adjustment is exactly what drives stock to the
// counted value.
func (s *Service) PostBatch(ctx context.Context, txs []*StockTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	for i, t := range txs {
		if err := t.Validate(ctx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if id.IsNil(t.CreatedBy) {
			t.CreatedBy = currentUser(ctx)
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertTransactions(ctx, txs); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}

		logger.Info(ctx, "stock transactions posted", "count", len(txs))
		return nil
	})
}

// Transfer moves quantity between locations as a paired OUT and IN
// sharing one reference.
func (s *Service) Transfer(ctx context.Context, materialID, fromID, toID id.ID, qty types.Quantity) error {
	if fromID == toID {
		return apperror.NewValidation("source and destination locations must differ")
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}

	userID := currentUser(ctx)
	ref := id.New().String()

	out := NewTransaction(materialID, fromID, DirectionOut, qty, ReasonTransfer, userID)
	out.Reference = &ref
	in := NewTransaction(materialID, toID, DirectionIn, qty, ReasonTransfer, userID)
	in.Reference = &ref

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkAvailability(ctx, fromID, materialID, qty); err != nil {
			return err
		}

		if err := s.repo.InsertTransactions(ctx, []*StockTransaction{out, in}); err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}

		logger.Info(ctx, "stock transferred",
			"material_id", materialID,
			"from", fromID,
			"to", toID,
			"quantity", qty,
		)
		return nil
	})
}

// GetStockByLocation returns the current stock snapshot of a location.
func (s *Service) GetStockByLocation(ctx context.Context, locationID id.ID) ([]StockBalance, error) {
	balances, err := s.repo.GetStockByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("get stock by location: %w", err)
	}
	return balances, nil
}

// GetStockByMaterial returns balances of a material across locations.
func (s *Service) GetStockByMaterial(ctx context.Context, materialID id.ID) ([]StockBalance, error) {
	balances, err := s.repo.GetStockByMaterial(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("get stock by material: %w", err)
	}
	return balances, nil
}

// GetBalance returns the on-hand quantity of one material at one location.
func (s *Service) GetBalance(ctx context.Context, locationID, materialID id.ID) (types.Quantity, error) {
	return s.repo.GetBalance(ctx, locationID, materialID)
}

// ListTransactions returns ledger history matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*StockTransaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListTransactions(ctx, filter)
}

// currentUser resolves the acting user's ID from context. The subject
// claim is a UUID; anything else degrades to the nil ID.
func currentUser(ctx context.Context) id.ID {
	uid, err := id.Parse(appctx.GetUserID(ctx))
	if err != nil {
		return id.Nil()
	}
	return uid
}

func (s *Service) checkAvailability(ctx context.Context, locationID, materialID id.ID, required types.Quantity) error {
	available, err := s.repo.GetBalanceForUpdate(ctx, locationID, materialID)
	if err != nil {
		return fmt.Errorf("get balance for %s: %w", materialID, err)
	}

	if available < required {
		return apperror.NewInsufficientStock(materialID.String(), required.Float64(), available.Float64())
	}

	return nil
}
