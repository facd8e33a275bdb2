package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/catalogs/material"
	"stocktake/internal/domain/opname"
	"stocktake/internal/domain/reports"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// OpnameHandler serves the stocktake counting workflow: sheet loading,
// counting, draft saves and the admin finalize.
type OpnameHandler struct {
	*BaseHandler
	sessions  *opname.Manager
	service   *opname.Service
	materials *material.Service
}

// NewOpnameHandler creates a new opname handler.
func NewOpnameHandler(
	base *BaseHandler,
	sessions *opname.Manager,
	service *opname.Service,
	materials *material.Service,
) *OpnameHandler {
	return &OpnameHandler{
		BaseHandler: base,
		sessions:    sessions,
		service:     service,
		materials:   materials,
	}
}

func (h *OpnameHandler) session(c *gin.Context) *opname.Session {
	return h.sessions.Get(h.GetUserID(c))
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid date, YYYY-MM-DD or RFC3339 expected").
			WithDetail("value", s)
	}
	return t, nil
}

// LoadSheet handles POST /opname/sheet - select a location and load its
// counting sheet. A newer load supersedes an in-flight one; the stale
// result is dropped without an error response.
func (h *OpnameHandler) LoadSheet(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoadSheetRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId"))
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.Error(c, err)
		return
	}

	sess := h.session(c)
	items, err := sess.Load(ctx, locationID, date)
	if err != nil {
		if errors.Is(err, opname.ErrStaleLoad) {
			c.Status(http.StatusNoContent)
			return
		}
		h.Error(c, err)
		return
	}

	h.OK(c, h.sheetResponse(sess, locationID, date, items))
}

// GetSheet handles GET /opname/sheet - return the current sheet.
func (h *OpnameHandler) GetSheet(c *gin.Context) {
	sess := h.session(c)

	if sess.State() != opname.StateReady {
		h.Error(c, apperror.NewValidation("no location loaded"))
		return
	}

	h.OK(c, h.sheetResponse(sess, sess.Location(), sess.Date(), sess.Items()))
}

func (h *OpnameHandler) sheetResponse(sess *opname.Session, locationID id.ID, date time.Time, items []*opname.InventoryItem) dto.SheetResponse {
	resp := dto.SheetResponse{
		LocationID: locationID.String(),
		Date:       opname.Day(date),
		Items:      make([]dto.InventoryItemResponse, len(items)),
		CountedBy:  sess.CountedBy(),
	}
	for i, it := range items {
		resp.Items[i] = dto.FromInventoryItem(it)
	}
	return resp
}

// AddManualItem handles POST /opname/sheet/items - add a material that
// is physically present but missing from the system snapshot.
func (h *OpnameHandler) AddManualItem(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AddManualItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	materialID, err := id.Parse(req.MaterialID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid materialId"))
		return
	}

	m, err := h.materials.GetByID(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	item, err := h.session(c).AddManual(m.ID, m.Code, m.Name, m.Unit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromInventoryItem(item))
}

// SetCount handles PUT /opname/sheet/items/:materialId/count.
func (h *OpnameHandler) SetCount(c *gin.Context) {
	materialID, err := id.Parse(c.Param("materialId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid materialId"))
		return
	}

	var req dto.SetCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	qty, err := types.ParseQuantity(req.Qty)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid qty").WithDetail("field", "qty"))
		return
	}

	if err := h.session(c).SetCount(materialID, qty); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "count recorded")
}

// ApplyBreakdown handles PUT /opname/sheet/items/:materialId/breakdown -
// replace the material's breakdown rows; their sum becomes the count.
func (h *OpnameHandler) ApplyBreakdown(c *gin.Context) {
	materialID, err := id.Parse(c.Param("materialId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid materialId"))
		return
	}

	var req dto.ApplyBreakdownRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.session(c).ApplyBreakdown(materialID, req.WorkingRows()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "breakdown applied")
}

// SaveDraft handles POST /opname/draft - persist the counted items of
// the current sheet as a new draft event.
func (h *OpnameHandler) SaveDraft(c *gin.Context) {
	ctx := c.Request.Context()

	draft, err := h.session(c).SaveDraft(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromDraft(draft))
}

// ListDraftHistory handles GET /opname/drafts?locationId=&date=.
func (h *OpnameHandler) ListDraftHistory(c *gin.Context) {
	ctx := c.Request.Context()

	locationID, err := id.Parse(c.Query("locationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId"))
		return
	}

	date, err := parseDate(c.Query("date"))
	if err != nil {
		h.Error(c, err)
		return
	}

	drafts, err := h.service.ListDraftHistory(ctx, locationID, date)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DraftResponse, len(drafts))
	for i, d := range drafts {
		items[i] = dto.FromDraft(d)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DraftedLocations handles GET /opname/drafted-locations - the locations
// this session has saved drafts for since the last finalize.
func (h *OpnameHandler) DraftedLocations(c *gin.Context) {
	ids := h.session(c).DraftedLocations()

	items := make([]string, len(ids))
	for i, locID := range ids {
		items[i] = locID.String()
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Finalize handles POST /opname/finalize - reconcile all drafted
// locations for the sheet's date. Admin only. With ?format=xlsx the
// report is returned as a workbook download.
func (h *OpnameHandler) Finalize(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.session(c).Finalize(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if c.Query("format") == "xlsx" {
		h.writeReportWorkbook(c, report)
		return
	}

	h.OK(c, dto.FromReport(report))
}

// CloseSheet handles DELETE /opname/sheet - leave the current location
// and release the advisory lock.
func (h *OpnameHandler) CloseSheet(c *gin.Context) {
	h.session(c).Close(c.Request.Context())
	h.NoContent(c)
}

func (h *OpnameHandler) writeReportWorkbook(c *gin.Context, report *opname.Report) {
	data, err := reports.ExportReconciliation(report)
	if err != nil {
		h.Error(c, apperror.NewInternal(fmt.Errorf("export report: %w", err)))
		return
	}

	filename := fmt.Sprintf("opname-%s.xlsx", report.RunNumber)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
