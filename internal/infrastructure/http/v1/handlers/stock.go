package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/ledger"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// StockHandler serves the stock ledger routes: posting transactions and
// querying derived balances.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// PostTransaction handles POST /stock/transactions.
func (h *StockHandler) PostTransaction(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PostTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Post(ctx, t); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromTransaction(t))
}

// Transfer handles POST /stock/transactions/transfer.
func (h *StockHandler) Transfer(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	materialID, err := id.Parse(req.MaterialID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid materialId"))
		return
	}
	fromID, err := id.Parse(req.FromLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid fromLocationId"))
		return
	}
	toID, err := id.Parse(req.ToLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid toLocationId"))
		return
	}
	qty, err := types.ParseQuantity(req.Quantity)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid quantity").WithDetail("field", "quantity"))
		return
	}

	if err := h.service.Transfer(ctx, materialID, fromID, toID, qty); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "transfer posted")
}

// ListTransactions handles GET /stock/transactions.
func (h *StockHandler) ListTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	var filter ledger.TransactionFilter
	filter.Limit = h.ParseIntQuery(c, "limit", 100)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	if s := c.Query("materialId"); s != "" {
		parsed, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid materialId"))
			return
		}
		filter.MaterialID = &parsed
	}
	if s := c.Query("locationId"); s != "" {
		parsed, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId"))
			return
		}
		filter.LocationID = &parsed
	}
	if s := c.Query("reference"); s != "" {
		filter.Reference = &s
	}
	if s := c.Query("fromDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate, RFC3339 expected"))
			return
		}
		filter.FromDate = &t
	}
	if s := c.Query("toDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate, RFC3339 expected"))
			return
		}
		filter.ToDate = &t
	}

	txs, err := h.service.ListTransactions(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.TransactionResponse, len(txs))
	for i, t := range txs {
		items[i] = dto.FromTransaction(t)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: int64(len(items)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// GetStockByLocation handles GET /stock/locations/:id.
func (h *StockHandler) GetStockByLocation(c *gin.Context) {
	ctx := c.Request.Context()

	locationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	balances, err := h.service.GetStockByLocation(ctx, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockBalanceResponse, len(balances))
	for i, b := range balances {
		items[i] = dto.FromStockBalance(b)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetStockByMaterial handles GET /stock/materials/:id.
func (h *StockHandler) GetStockByMaterial(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	balances, err := h.service.GetStockByMaterial(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockBalanceResponse, len(balances))
	for i, b := range balances {
		items[i] = dto.FromStockBalance(b)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetBalance handles GET /stock/balance?locationId=&materialId=.
func (h *StockHandler) GetBalance(c *gin.Context) {
	ctx := c.Request.Context()

	locationID, err := id.Parse(c.Query("locationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId"))
		return
	}
	materialID, err := id.Parse(c.Query("materialId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid materialId"))
		return
	}

	qty, err := h.service.GetBalance(ctx, locationID, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locationId": locationID.String(),
		"materialId": materialID.String(),
		"quantity":   qty.String(),
	})
}
