package dto

import (
	"time"

	"stocktake/internal/domain/reports"
)

// StockBalanceReportItemResponse is a single report row.
type StockBalanceReportItemResponse struct {
	LocationID   string  `json:"locationId"`
	LocationName string  `json:"locationName"`
	MaterialID   string  `json:"materialId"`
	MaterialCode string  `json:"materialCode"`
	MaterialName string  `json:"materialName"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
}

// StockBalanceReportResponse is the stock balance report payload.
type StockBalanceReportResponse struct {
	AsOfDate      time.Time                        `json:"asOfDate"`
	Items         []StockBalanceReportItemResponse `json:"items"`
	TotalItems    int                              `json:"totalItems"`
	TotalQuantity float64                          `json:"totalQuantity"`
}

// FromStockBalanceReport creates response from the domain report.
func FromStockBalanceReport(r *reports.StockBalanceReport) *StockBalanceReportResponse {
	items := make([]StockBalanceReportItemResponse, len(r.Items))
	for i, it := range r.Items {
		items[i] = StockBalanceReportItemResponse{
			LocationID:   it.LocationID.String(),
			LocationName: it.LocationName,
			MaterialID:   it.MaterialID.String(),
			MaterialCode: it.MaterialCode,
			MaterialName: it.MaterialName,
			Unit:         it.Unit,
			Quantity:     it.Quantity,
		}
	}

	return &StockBalanceReportResponse{
		AsOfDate:      r.AsOfDate,
		Items:         items,
		TotalItems:    r.TotalItems,
		TotalQuantity: r.TotalQuantity,
	}
}
