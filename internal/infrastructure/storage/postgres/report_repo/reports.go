// Package report_repo provides PostgreSQL implementations for report
// repositories.
package report_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktake/internal/domain/reports"
	"stocktake/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetStockBalanceReport generates the stock balance report with material
// and location names joined in.
func (r *ReportRepo) GetStockBalanceReport(ctx context.Context, filter reports.StockBalanceReportFilter) (*reports.StockBalanceReport, error) {
	asOfDate := time.Now()
	if filter.AsOfDate != nil {
		asOfDate = *filter.AsOfDate
	}

	query := `
		WITH balance_data AS (
			SELECT
				t.location_id,
				t.material_id,
				SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE -t.quantity END) as quantity_scaled
			FROM ledger_transactions t
			WHERE t.created_at <= $1
	`
	args := []any{asOfDate}
	argIndex := 2

	if len(filter.LocationIDs) > 0 {
		placeholders := make([]string, len(filter.LocationIDs))
		for i, locID := range filter.LocationIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, locID)
			argIndex++
		}
		query += fmt.Sprintf(" AND t.location_id IN (%s)", strings.Join(placeholders, ","))
	}

	if len(filter.MaterialIDs) > 0 {
		placeholders := make([]string, len(filter.MaterialIDs))
		for i, matID := range filter.MaterialIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, matID)
			argIndex++
		}
		query += fmt.Sprintf(" AND t.material_id IN (%s)", strings.Join(placeholders, ","))
	}

	havingClause := "HAVING SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE -t.quantity END) != 0"
	if !filter.ExcludeZero {
		havingClause = ""
	}

	query += fmt.Sprintf(`
			GROUP BY t.location_id, t.material_id
			%s
		)
		SELECT
			bd.location_id,
			l.name as location_name,
			bd.material_id,
			m.code as material_code,
			m.name as material_name,
			m.unit,
			bd.quantity_scaled::float8 / 10000.0 as quantity
		FROM balance_data bd
		JOIN cat_locations l ON bd.location_id = l.id
		JOIN cat_materials m ON bd.material_id = m.id
		ORDER BY l.name, m.name
	`, havingClause)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var items []reports.StockBalanceReportItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, query, args...); err != nil {
		return nil, fmt.Errorf("stock balance report: %w", err)
	}

	var totalQuantity float64
	for _, item := range items {
		totalQuantity += item.Quantity
	}

	return &reports.StockBalanceReport{
		AsOfDate:      asOfDate,
		Items:         items,
		TotalItems:    len(items),
		TotalQuantity: totalQuantity,
	}, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
