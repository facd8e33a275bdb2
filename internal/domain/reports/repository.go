package reports

import "context"

// Repository defines data access for reports.
type Repository interface {
	// GetStockBalanceReport generates the stock balance report.
	GetStockBalanceReport(ctx context.Context, filter StockBalanceReportFilter) (*StockBalanceReport, error)
}
