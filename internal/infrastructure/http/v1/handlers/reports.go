package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/domain/reports"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves read-only reporting endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// StockBalance handles GET /reports/stock-balance.
//
// Query params: asOfDate (YYYY-MM-DD or RFC3339), locationIds and
// materialIds (comma-separated UUIDs), excludeZero, limit, offset.
func (h *ReportsHandler) StockBalance(c *gin.Context) {
	ctx := c.Request.Context()

	filter := reports.StockBalanceReportFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if v := c.Query("asOfDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.AsOfDate = &t
	}

	var err error
	if filter.LocationIDs, err = parseIDList(c.Query("locationIds")); err != nil {
		h.Error(c, apperror.NewValidation("invalid locationIds"))
		return
	}
	if filter.MaterialIDs, err = parseIDList(c.Query("materialIds")); err != nil {
		h.Error(c, apperror.NewValidation("invalid materialIds"))
		return
	}

	if v := c.Query("excludeZero"); v != "" {
		filter.ExcludeZero, err = strconv.ParseBool(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid excludeZero").WithDetail("value", v))
			return
		}
	}

	report, err := h.service.GetStockBalance(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockBalanceReport(report))
}

func parseIDList(s string) ([]id.ID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]id.ID, 0, len(parts))
	for _, p := range parts {
		parsed, err := id.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}
