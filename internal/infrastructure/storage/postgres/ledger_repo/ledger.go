// Package ledger_repo provides the PostgreSQL implementation of the
// stock transaction ledger. Balances are derived by aggregating the
// transaction history; there is no separate balance table to drift out
// of sync.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/ledger"
	"stocktake/internal/infrastructure/storage/postgres"
)

const transactionsTable = "ledger_transactions"

var transactionCols = []string{
	"id", "material_id", "location_id", "direction", "quantity",
	"reason", "reference", "narrative", "created_by", "created_at",
}

// Repo implements ledger.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewRepo creates a new ledger repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// InsertTransactions batch inserts ledger entries. Uses COPY when a
// transaction is active, multi-row INSERT otherwise.
func (r *Repo) InsertTransactions(ctx context.Context, txs []*ledger.StockTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(txs))
		for _, t := range txs {
			rows = append(rows, []any{
				t.ID, t.MaterialID, t.LocationID, string(t.Direction), t.Quantity,
				t.Reason, t.Reference, t.Narrative, t.CreatedBy, t.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, transactionsTable, transactionCols, rows); err != nil {
			return fmt.Errorf("copy transactions: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(transactionsTable).Columns(transactionCols...)
	for _, t := range txs {
		q = q.Values(
			t.ID, t.MaterialID, t.LocationID, string(t.Direction), t.Quantity,
			t.Reason, t.Reference, t.Narrative, t.CreatedBy, t.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}

	return nil
}

// GetBalance returns the on-hand quantity for one material at one location.
func (r *Repo) GetBalance(ctx context.Context, locationID, materialID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(
			SUM(CASE WHEN direction = 'IN' THEN quantity ELSE -quantity END),
			0
		)
		FROM ledger_transactions
		WHERE location_id = $1
		  AND material_id = $2
	`

	var scaled int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, locationID, materialID).Scan(&scaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("calculate balance: %w", err)
	}

	return types.FromInt64Scaled(scaled), nil
}

// GetBalanceForUpdate serializes concurrent stock checks on the pair
// with a transaction-scoped advisory lock, then aggregates. Aggregates
// cannot carry FOR UPDATE, so the lock stands in for a row lock.
func (r *Repo) GetBalanceForUpdate(ctx context.Context, locationID, materialID id.ID) (types.Quantity, error) {
	querier := r.txManager.GetQuerier(ctx)

	_, err := querier.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`,
		locationID.String(), materialID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}

	return r.GetBalance(ctx, locationID, materialID)
}

// GetStockByLocation returns the stock snapshot of a location with
// material attributes joined in. Materials whose history nets to zero
// are filtered out.
func (r *Repo) GetStockByLocation(ctx context.Context, locationID id.ID) ([]ledger.StockBalance, error) {
	sql := `
		SELECT
			t.material_id,
			m.code AS material_code,
			m.name AS material_name,
			m.unit,
			t.location_id,
			SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE -t.quantity END) AS quantity,
			MIN(t.created_at) FILTER (WHERE t.direction = 'IN') AS oldest_stock_date
		FROM ledger_transactions t
		JOIN cat_materials m ON m.id = t.material_id
		WHERE t.location_id = $1
		GROUP BY t.material_id, m.code, m.name, m.unit, t.location_id
		HAVING SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE -t.quantity END) <> 0
		ORDER BY m.name
	`

	var balances []ledger.StockBalance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, locationID); err != nil {
		return nil, fmt.Errorf("select stock by location: %w", err)
	}

	return balances, nil
}

// GetStockByMaterial returns balances of one material across locations.
func (r *Repo) GetStockByMaterial(ctx context.Context, materialID id.ID) ([]ledger.StockBalance, error) {
	sql := `
		SELECT
			t.material_id,
			m.code AS material_code,
			m.name AS material_name,
			m.unit,
			t.location_id,
			SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE -t.quantity END) AS quantity,
			MIN(t.created_at) FILTER (WHERE t.direction = 'IN') AS oldest_stock_date
		FROM ledger_transactions t
		JOIN cat_materials m ON m.id = t.material_id
		WHERE t.material_id = $1
		GROUP BY t.material_id, m.code, m.name, m.unit, t.location_id
		HAVING SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE -t.quantity END) <> 0
		ORDER BY t.location_id
	`

	var balances []ledger.StockBalance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, materialID); err != nil {
		return nil, fmt.Errorf("select stock by material: %w", err)
	}

	return balances, nil
}

// ListTransactions returns ledger entries matching the filter, newest first.
func (r *Repo) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]*ledger.StockTransaction, error) {
	q := r.builder.
		Select(transactionCols...).
		From(transactionsTable)

	if filter.MaterialID != nil {
		q = q.Where(squirrel.Eq{"material_id": *filter.MaterialID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Reference != nil {
		q = q.Where(squirrel.Eq{"reference": *filter.Reference})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var txs []*ledger.StockTransaction
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &txs, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	return txs, nil
}
