package opname

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"stocktake/internal/core/apperror"
	appctx "stocktake/internal/core/context"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/catalogs/location"
	"stocktake/internal/domain/ledger"
	"stocktake/pkg/logger"
	"stocktake/pkg/numerator"
)

// StockReader supplies the as-of-now stock snapshot per location.
type StockReader interface {
	GetStockByLocation(ctx context.Context, locationID id.ID) ([]ledger.StockBalance, error)
}

// AdjustmentWriter records adjustment transactions as one atomic batch.
type AdjustmentWriter interface {
	PostBatch(ctx context.Context, txs []*ledger.StockTransaction) error
}

// LocationReader resolves location attributes for report rows.
type LocationReader interface {
	GetByID(ctx context.Context, locationID id.ID) (*location.Location, error)
}

// Service implements the reconciliation workflow against the ledger and
// the draft store.
type Service struct {
	stock       StockReader
	drafts      DraftStore
	adjustments AdjustmentWriter
	locations   LocationReader
	numerator   numerator.Generator

	// epsilon is the diff magnitude below which no adjustment is
	// emitted. One scaled unit by default (0.0001).
	epsilon types.Quantity
}

// NewService creates the reconciliation service.
func NewService(
	stock StockReader,
	drafts DraftStore,
	adjustments AdjustmentWriter,
	locations LocationReader,
	gen numerator.Generator,
	epsilon types.Quantity,
) *Service {
	if epsilon <= 0 {
		epsilon = 1
	}
	return &Service{
		stock:       stock,
		drafts:      drafts,
		adjustments: adjustments,
		locations:   locations,
		numerator:   gen,
		epsilon:     epsilon,
	}
}

// Epsilon returns the configured adjustment threshold.
func (s *Service) Epsilon() types.Quantity {
	return s.epsilon
}

// Load builds the counting sheet for a location: the live stock
// snapshot merged with the latest saved draft for the date.
//
// Materials in the snapshot without a draft entry come back uncounted.
// Materials in the draft but absent from the snapshot come back with
// zero system stock, so a recorded count is never dropped. The list is
// sorted by material name, case-insensitively, once at load.
func (s *Service) Load(ctx context.Context, locationID id.ID, date time.Time) ([]*InventoryItem, error) {
	if id.IsNil(locationID) {
		return nil, apperror.NewValidation("location is required")
	}

	snapshot, err := s.stock.GetStockByLocation(ctx, locationID)
	if err != nil {
		return nil, apperror.NewUnavailable("stock snapshot unavailable", err)
	}

	draft, err := s.drafts.GetLatest(ctx, locationID, Day(date))
	if err != nil {
		return nil, apperror.NewUnavailable("draft store unavailable", err)
	}

	draftItems := map[id.ID]DraftItem{}
	if draft != nil {
		draftItems = draft.ItemMap()
	}

	items := make([]*InventoryItem, 0, len(snapshot)+len(draftItems))

	for _, bal := range snapshot {
		item := NewInventoryItem(bal.MaterialID, bal.MaterialCode, bal.MaterialName, bal.Unit, bal.Quantity)
		if di, ok := draftItems[bal.MaterialID]; ok {
			applyDraftItem(item, di)
			delete(draftItems, bal.MaterialID)
		}
		items = append(items, item)
	}

	// Drafted materials no longer in the snapshot: system stock zero.
	for _, di := range draftItems {
		item := NewInventoryItem(di.MaterialID, di.MaterialCode, di.MaterialName, di.Unit, 0)
		applyDraftItem(item, di)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].MaterialName) < strings.ToLower(items[j].MaterialName)
	})

	logger.Debug(ctx, "counting sheet loaded",
		"location_id", locationID,
		"snapshot_items", len(snapshot),
		"items", len(items),
		"has_draft", draft != nil,
	)

	return items, nil
}

func applyDraftItem(item *InventoryItem, di DraftItem) {
	qty := di.Qty
	item.PhysicalStock = &qty
	item.IsModified = true
	item.HasBreakdown = di.HasBreakdown
	if len(di.Breakdown) > 0 {
		item.Breakdown = append([]BreakdownRow(nil), di.Breakdown...)
	}
}

// SaveDraft appends a new draft event with every counted item.
// Uncounted items are excluded; saving with nothing counted is a
// validation error and writes no event.
func (s *Service) SaveDraft(ctx context.Context, locationID id.ID, date time.Time, items []*InventoryItem) (*Draft, error) {
	if id.IsNil(locationID) {
		return nil, apperror.NewValidation("location is required")
	}

	counted := make([]DraftItem, 0, len(items))
	for _, it := range items {
		if !it.Counted() {
			continue
		}
		counted = append(counted, DraftItem{
			MaterialID:   it.MaterialID,
			MaterialCode: it.MaterialCode,
			MaterialName: it.MaterialName,
			Unit:         it.Unit,
			Qty:          *it.PhysicalStock,
			Breakdown:    append([]BreakdownRow(nil), it.Breakdown...),
			HasBreakdown: it.HasBreakdown,
		})
	}

	if len(counted) == 0 {
		return nil, apperror.NewValidation("nothing counted yet; enter at least one physical count before saving")
	}

	draft := &Draft{
		ID:         id.New(),
		LocationID: locationID,
		Date:       Day(date),
		Items:      counted,
		ItemCount:  len(counted),
		AuthoredBy: currentUser(ctx),
		SavedAt:    time.Now().UTC(),
	}

	if err := s.drafts.Append(ctx, draft); err != nil {
		return nil, apperror.NewUnavailable("draft save failed", err)
	}

	logger.Info(ctx, "opname draft saved",
		"draft_id", draft.ID,
		"location_id", locationID,
		"items", draft.ItemCount,
	)

	return draft, nil
}

// Finalize reconciles every drafted location for the date against the
// live ledger and emits adjustment transactions for diffs above the
// epsilon threshold. Admin only; the check runs before any I/O.
//
// The adjustment batch is atomic: on insert failure no report is
// produced and drafts stay untouched, so the whole run can be retried.
func (s *Service) Finalize(ctx context.Context, date time.Time) (*Report, error) {
	if !appctx.IsAdmin(ctx) {
		return nil, apperror.NewForbidden("finalize requires the admin role")
	}

	day := Day(date)

	latest, err := s.drafts.ListLatestByDate(ctx, day)
	if err != nil {
		return nil, apperror.NewUnavailable("draft store unavailable", err)
	}
	if len(latest) == 0 {
		return nil, apperror.NewValidation("no drafts to finalize for this date")
	}

	runNumber, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("OPN"), day)
	if err != nil {
		return nil, fmt.Errorf("generate run number: %w", err)
	}

	userID := currentUser(ctx)
	now := time.Now().UTC()

	var (
		rows        []ReconciliationRow
		adjustments []*ledger.StockTransaction
	)

	for _, draft := range latest {
		locName := draft.LocationID.String()
		if loc, err := s.locations.GetByID(ctx, draft.LocationID); err == nil {
			locName = loc.Name
		}

		// Fresh aggregation per location: other operators may have
		// transacted since the draft was saved.
		snapshot, err := s.stock.GetStockByLocation(ctx, draft.LocationID)
		if err != nil {
			return nil, apperror.NewUnavailable("stock snapshot unavailable", err)
		}
		system := make(map[id.ID]types.Quantity, len(snapshot))
		for _, bal := range snapshot {
			system[bal.MaterialID] = bal.Quantity
		}

		for _, item := range draft.Items {
			sysQty := system[item.MaterialID]
			diff := item.Qty - sysQty

			row := ReconciliationRow{
				LocationID:   draft.LocationID,
				LocationName: locName,
				MaterialID:   item.MaterialID,
				MaterialCode: item.MaterialCode,
				MaterialName: item.MaterialName,
				Unit:         item.Unit,
				SystemQty:    sysQty,
				PhysicalQty:  item.Qty,
				Diff:         diff,
			}

			if diff.Abs() > s.epsilon {
				row.Adjusted = true

				dir := ledger.DirectionIn
				if diff.IsNegative() {
					dir = ledger.DirectionOut
				}

				adj := ledger.NewTransaction(item.MaterialID, draft.LocationID, dir, diff.Abs(), ledger.ReasonAdjustment, userID)
				adj.Reference = &runNumber
				narrative := fmt.Sprintf("Stock opname %s: counted %s, recorded %s", runNumber, item.Qty, sysQty)
				adj.Narrative = &narrative
				adjustments = append(adjustments, adj)
			}

			rows = append(rows, row)
		}
	}

	if len(adjustments) > 0 {
		if err := s.adjustments.PostBatch(ctx, adjustments); err != nil {
			return nil, apperror.NewUnavailable("adjustment insert failed", err)
		}
	}

	report := &Report{
		RunNumber:       runNumber,
		Date:            day,
		Rows:            rows,
		AdjustmentCount: len(adjustments),
		LocationCount:   len(latest),
		GeneratedBy:     userID,
		GeneratedAt:     now,
	}

	logger.Info(ctx, "opname finalized",
		"run_number", runNumber,
		"locations", report.LocationCount,
		"rows", len(rows),
		"adjustments", report.AdjustmentCount,
	)

	return report, nil
}

// ListDraftHistory returns the event history for a location and date.
func (s *Service) ListDraftHistory(ctx context.Context, locationID id.ID, date time.Time) ([]*Draft, error) {
	events, err := s.drafts.ListEvents(ctx, locationID, Day(date))
	if err != nil {
		return nil, apperror.NewUnavailable("draft store unavailable", err)
	}
	return events, nil
}

func currentUser(ctx context.Context) id.ID {
	uid, err := id.Parse(appctx.GetUserID(ctx))
	if err != nil {
		return id.Nil()
	}
	return uid
}
