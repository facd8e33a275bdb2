// Package reports provides report generation and export services.
package reports

import (
	"time"

	"stocktake/internal/core/id"
)

// StockBalanceReportFilter defines filter for the stock balance report.
type StockBalanceReportFilter struct {
	// AsOfDate - report date (defaults to now)
	AsOfDate *time.Time

	LocationIDs []id.ID
	MaterialIDs []id.ID

	// Exclude zero balances
	ExcludeZero bool

	Limit  int
	Offset int
}

// StockBalanceReportItem represents a single row in the balance report.
type StockBalanceReportItem struct {
	LocationID   id.ID   `json:"locationId"`
	LocationName string  `json:"locationName"`
	MaterialID   id.ID   `json:"materialId"`
	MaterialCode string  `json:"materialCode"`
	MaterialName string  `json:"materialName"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
}

// StockBalanceReport represents the full stock balance report.
type StockBalanceReport struct {
	AsOfDate   time.Time                `json:"asOfDate"`
	Items      []StockBalanceReportItem `json:"items"`
	TotalItems int                      `json:"totalItems"`

	TotalQuantity float64 `json:"totalQuantity"`
}
