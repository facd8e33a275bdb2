package opname

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/core/apperror"
	appctx "stocktake/internal/core/context"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/catalogs/location"
	"stocktake/internal/domain/ledger"
	"stocktake/pkg/numerator"
)

// --- fakes ---

type fakeStock struct {
	byLocation map[id.ID][]ledger.StockBalance
	err        error
	calls      int
}

func (f *fakeStock) GetStockByLocation(_ context.Context, locationID id.ID) ([]ledger.StockBalance, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byLocation[locationID], nil
}

type fakeDraftStore struct {
	events []*Draft
	err    error
}

func (f *fakeDraftStore) Append(_ context.Context, d *Draft) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, d)
	return nil
}

func (f *fakeDraftStore) GetLatest(_ context.Context, locationID id.ID, date time.Time) (*Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	var latest *Draft
	for _, d := range f.events {
		if d.LocationID != locationID || !d.Date.Equal(date) {
			continue
		}
		if latest == nil || d.SavedAt.After(latest.SavedAt) {
			latest = d
		}
	}
	return latest, nil
}

func (f *fakeDraftStore) ListLatestByDate(_ context.Context, date time.Time) ([]*Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	latest := make(map[id.ID]*Draft)
	for _, d := range f.events {
		if !d.Date.Equal(date) {
			continue
		}
		if cur, ok := latest[d.LocationID]; !ok || d.SavedAt.After(cur.SavedAt) {
			latest[d.LocationID] = d
		}
	}
	out := make([]*Draft, 0, len(latest))
	for _, d := range latest {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID.String() < out[j].LocationID.String() })
	return out, nil
}

func (f *fakeDraftStore) ListEvents(_ context.Context, locationID id.ID, date time.Time) ([]*Draft, error) {
	var out []*Draft
	for _, d := range f.events {
		if d.LocationID == locationID && d.Date.Equal(date) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeLedger struct {
	batches [][]*ledger.StockTransaction
	err     error
}

func (f *fakeLedger) PostBatch(_ context.Context, txs []*ledger.StockTransaction) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, txs)
	return nil
}

type fakeLocations struct{}

func (fakeLocations) GetByID(_ context.Context, locationID id.ID) (*location.Location, error) {
	loc := location.NewLocation("L-001", "Main Warehouse")
	loc.ID = locationID
	return loc, nil
}

type fixture struct {
	svc    *Service
	stock  *fakeStock
	drafts *fakeDraftStore
	ledger *fakeLedger
}

func newFixture() *fixture {
	stock := &fakeStock{byLocation: make(map[id.ID][]ledger.StockBalance)}
	drafts := &fakeDraftStore{}
	lg := &fakeLedger{}
	svc := NewService(stock, drafts, lg, fakeLocations{}, &numerator.Mock{}, 1)
	return &fixture{svc: svc, stock: stock, drafts: drafts, ledger: lg}
}

func balance(materialID id.ID, name string, q types.Quantity) ledger.StockBalance {
	return ledger.StockBalance{
		MaterialID:   materialID,
		MaterialCode: "M-" + name,
		MaterialName: name,
		Unit:         "pcs",
		Quantity:     q,
	}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  id.New().String(),
		Name:    "Admin",
		IsAdmin: true,
	})
}

func operatorCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: id.New().String(),
		Name:   "Operator",
		Roles:  []string{appctx.RoleOperator},
	})
}

var testDay = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

// --- Load ---

func TestLoad_MergeCompleteness(t *testing.T) {
	f := newFixture()
	locID := id.New()

	matBoth := id.New()
	matSnapshotOnly := id.New()
	matDraftOnly := id.New()

	f.stock.byLocation[locID] = []ledger.StockBalance{
		balance(matBoth, "Widget", qty("100")),
		balance(matSnapshotOnly, "Bolt", qty("50")),
	}
	f.drafts.events = []*Draft{{
		ID:         id.New(),
		LocationID: locID,
		Date:       Day(testDay),
		SavedAt:    testDay,
		Items: []DraftItem{
			{MaterialID: matBoth, MaterialName: "Widget", Qty: qty("98")},
			{MaterialID: matDraftOnly, MaterialName: "Screw", Qty: qty("7")},
		},
	}}

	items, err := f.svc.Load(operatorCtx(), locID, testDay)
	require.NoError(t, err)
	require.Len(t, items, 3)

	byID := make(map[id.ID]*InventoryItem)
	for _, it := range items {
		byID[it.MaterialID] = it
	}

	both := byID[matBoth]
	require.NotNil(t, both.PhysicalStock)
	assert.Equal(t, qty("98"), *both.PhysicalStock)
	assert.Equal(t, qty("100"), both.SystemStock)
	assert.True(t, both.IsModified)

	snapOnly := byID[matSnapshotOnly]
	assert.Nil(t, snapOnly.PhysicalStock)
	assert.False(t, snapOnly.IsModified)

	draftOnly := byID[matDraftOnly]
	assert.True(t, draftOnly.SystemStock.IsZero())
	require.NotNil(t, draftOnly.PhysicalStock)
	assert.Equal(t, qty("7"), *draftOnly.PhysicalStock)
	assert.True(t, draftOnly.IsModified)
}

func TestLoad_SortsByNameCaseInsensitive(t *testing.T) {
	f := newFixture()
	locID := id.New()
	f.stock.byLocation[locID] = []ledger.StockBalance{
		balance(id.New(), "widget", qty("1")),
		balance(id.New(), "Bolt", qty("1")),
		balance(id.New(), "anchor", qty("1")),
	}

	items, err := f.svc.Load(operatorCtx(), locID, testDay)
	require.NoError(t, err)

	names := []string{items[0].MaterialName, items[1].MaterialName, items[2].MaterialName}
	assert.Equal(t, []string{"anchor", "Bolt", "widget"}, names)
}

func TestLoad_LastDraftWins(t *testing.T) {
	f := newFixture()
	locID := id.New()
	matOld := id.New()
	matNew := id.New()

	f.drafts.events = []*Draft{
		{
			ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay,
			Items: []DraftItem{{MaterialID: matOld, MaterialName: "Old", Qty: qty("5")}},
		},
		{
			ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay.Add(time.Hour),
			Items: []DraftItem{{MaterialID: matNew, MaterialName: "New", Qty: qty("9")}},
		},
	}

	items, err := f.svc.Load(operatorCtx(), locID, testDay)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, matNew, items[0].MaterialID)
	assert.Equal(t, qty("9"), *items[0].PhysicalStock)
}

func TestLoad_SnapshotUnavailable(t *testing.T) {
	f := newFixture()
	f.stock.err = errors.New("connection refused")

	_, err := f.svc.Load(operatorCtx(), id.New(), testDay)

	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}

// --- SaveDraft ---

func TestSaveDraft_ExcludesUncounted(t *testing.T) {
	f := newFixture()
	locID := id.New()

	counted := NewInventoryItem(id.New(), "M-1", "Widget", "pcs", qty("100"))
	counted.SetPhysicalStock(qty("98"))
	uncounted := NewInventoryItem(id.New(), "M-2", "Bolt", "pcs", qty("50"))

	draft, err := f.svc.SaveDraft(operatorCtx(), locID, testDay, []*InventoryItem{counted, uncounted})
	require.NoError(t, err)

	require.Len(t, draft.Items, 1)
	assert.Equal(t, counted.MaterialID, draft.Items[0].MaterialID)
	assert.Equal(t, 1, draft.ItemCount)
	assert.Len(t, f.drafts.events, 1)
}

func TestSaveDraft_NothingCountedRejected(t *testing.T) {
	f := newFixture()

	items := []*InventoryItem{
		NewInventoryItem(id.New(), "M-1", "Widget", "pcs", qty("100")),
	}

	_, err := f.svc.SaveDraft(operatorCtx(), id.New(), testDay, items)

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, f.drafts.events)
}

func TestSaveDraft_StoreFailureIsRetryable(t *testing.T) {
	f := newFixture()
	f.drafts.err = errors.New("timeout")

	item := NewInventoryItem(id.New(), "M-1", "Widget", "pcs", qty("100"))
	item.SetPhysicalStock(qty("98"))

	_, err := f.svc.SaveDraft(operatorCtx(), id.New(), testDay, []*InventoryItem{item})

	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}

// --- Finalize ---

func TestFinalize_RequiresAdmin(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Finalize(operatorCtx(), testDay)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
	// rejected before any I/O
	assert.Zero(t, f.stock.calls)
}

func TestFinalize_NoDrafts(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Finalize(adminCtx(), testDay)

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestFinalize_ZeroDiffEmitsReportButNoAdjustments(t *testing.T) {
	f := newFixture()
	locID := id.New()
	mat := id.New()

	f.stock.byLocation[locID] = []ledger.StockBalance{balance(mat, "Widget", qty("100"))}
	f.drafts.events = []*Draft{{
		ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay,
		Items: []DraftItem{{MaterialID: mat, MaterialName: "Widget", Qty: qty("100")}},
	}}

	report, err := f.svc.Finalize(adminCtx(), testDay)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.True(t, report.Rows[0].Diff.IsZero())
	assert.False(t, report.Rows[0].Adjusted)
	assert.Zero(t, report.AdjustmentCount)
	assert.Empty(t, f.ledger.batches)
}

func TestFinalize_AdjustmentSigns(t *testing.T) {
	tests := []struct {
		name     string
		system   string
		physical string
		wantDir  ledger.Direction
		wantQty  string
	}{
		{"surplus is IN", "100", "103", ledger.DirectionIn, "3"},
		{"shortage is OUT", "100", "98", ledger.DirectionOut, "2"},
		{"fractional shortage", "10", "9.75", ledger.DirectionOut, "0.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			locID := id.New()
			mat := id.New()

			f.stock.byLocation[locID] = []ledger.StockBalance{balance(mat, "Widget", qty(tt.system))}
			f.drafts.events = []*Draft{{
				ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay,
				Items: []DraftItem{{MaterialID: mat, MaterialName: "Widget", Qty: qty(tt.physical)}},
			}}

			report, err := f.svc.Finalize(adminCtx(), testDay)
			require.NoError(t, err)

			require.Len(t, f.ledger.batches, 1)
			require.Len(t, f.ledger.batches[0], 1)
			adj := f.ledger.batches[0][0]
			assert.Equal(t, tt.wantDir, adj.Direction)
			assert.Equal(t, qty(tt.wantQty), adj.Quantity)
			assert.Equal(t, ledger.ReasonAdjustment, adj.Reason)
			require.NotNil(t, adj.Reference)
			assert.Equal(t, report.RunNumber, *adj.Reference)
			require.NotNil(t, adj.Narrative)
		})
	}
}

func TestFinalize_DiffWithinEpsilonNotAdjusted(t *testing.T) {
	f := newFixture()
	locID := id.New()
	mat := id.New()

	f.stock.byLocation[locID] = []ledger.StockBalance{balance(mat, "Widget", qty("100"))}
	f.drafts.events = []*Draft{{
		ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay,
		Items: []DraftItem{{MaterialID: mat, MaterialName: "Widget", Qty: qty("100.0001")}},
	}}

	report, err := f.svc.Finalize(adminCtx(), testDay)
	require.NoError(t, err)

	assert.Zero(t, report.AdjustmentCount)
	assert.Empty(t, f.ledger.batches)
	require.Len(t, report.Rows, 1)
	assert.False(t, report.Rows[0].Adjusted)
}

func TestFinalize_BatchFailureProducesNoReport(t *testing.T) {
	f := newFixture()
	locID := id.New()
	mat := id.New()

	f.stock.byLocation[locID] = []ledger.StockBalance{balance(mat, "Widget", qty("100"))}
	f.drafts.events = []*Draft{{
		ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay,
		Items: []DraftItem{{MaterialID: mat, MaterialName: "Widget", Qty: qty("90")}},
	}}
	f.ledger.err = errors.New("deadlock")

	report, err := f.svc.Finalize(adminCtx(), testDay)

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperror.IsRetryable(err))
	// drafts untouched, a retry sees the same state
	assert.Len(t, f.drafts.events, 1)
}

func TestFinalize_LatestDraftPerLocationWins(t *testing.T) {
	f := newFixture()
	locID := id.New()
	mat := id.New()

	f.stock.byLocation[locID] = []ledger.StockBalance{balance(mat, "Widget", qty("100"))}
	f.drafts.events = []*Draft{
		{
			ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay,
			Items: []DraftItem{{MaterialID: mat, MaterialName: "Widget", Qty: qty("80")}},
		},
		{
			ID: id.New(), LocationID: locID, Date: Day(testDay), SavedAt: testDay.Add(time.Minute),
			Items: []DraftItem{{MaterialID: mat, MaterialName: "Widget", Qty: qty("99")}},
		},
	}

	report, err := f.svc.Finalize(adminCtx(), testDay)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, qty("99"), report.Rows[0].PhysicalQty)
	require.Len(t, f.ledger.batches, 1)
	assert.Equal(t, qty("1"), f.ledger.batches[0][0].Quantity)
	assert.Equal(t, ledger.DirectionOut, f.ledger.batches[0][0].Direction)
}

// --- end to end ---

func TestOpname_EndToEndScenario(t *testing.T) {
	f := newFixture()
	locID := id.New()
	widget := id.New()
	bolt := id.New()

	f.stock.byLocation[locID] = []ledger.StockBalance{
		balance(widget, "Widget", qty("100")),
		balance(bolt, "Bolt", qty("50")),
	}

	ctx := operatorCtx()

	// load the sheet and count Widget via breakdown
	items, err := f.svc.Load(ctx, locID, testDay)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var widgetItem *InventoryItem
	for _, it := range items {
		if it.MaterialID == widget {
			widgetItem = it
		}
	}
	require.NotNil(t, widgetItem)

	calc := NewCalculator(widgetItem)
	a, av := "Pallet A", "40"
	calc.UpdateRow(1, &a, &av)
	calc.AddRow()
	b, bv := "Pallet B", "58"
	calc.UpdateRow(2, &b, &bv)
	calc.Commit(widgetItem)
	require.Equal(t, qty("98"), *widgetItem.PhysicalStock)

	// draft carries Widget only; Bolt stays unset
	draft, err := f.svc.SaveDraft(ctx, locID, testDay, items)
	require.NoError(t, err)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, widget, draft.Items[0].MaterialID)

	// reload reflects the draft
	reloaded, err := f.svc.Load(ctx, locID, testDay)
	require.NoError(t, err)
	require.Len(t, reloaded, 2)
	for _, it := range reloaded {
		switch it.MaterialID {
		case widget:
			require.NotNil(t, it.PhysicalStock)
			assert.Equal(t, qty("98"), *it.PhysicalStock)
			assert.True(t, it.IsModified)
			assert.True(t, it.HasBreakdown)
			assert.Len(t, it.Breakdown, 2)
		case bolt:
			assert.Nil(t, it.PhysicalStock)
			assert.False(t, it.IsModified)
		}
	}

	// finalize emits one OUT adjustment of 2 for Widget
	report, err := f.svc.Finalize(adminCtx(), testDay)
	require.NoError(t, err)

	require.Len(t, f.ledger.batches, 1)
	require.Len(t, f.ledger.batches[0], 1)
	adj := f.ledger.batches[0][0]
	assert.Equal(t, widget, adj.MaterialID)
	assert.Equal(t, ledger.DirectionOut, adj.Direction)
	assert.Equal(t, qty("2"), adj.Quantity)

	// report covers drafted items only
	require.Len(t, report.Rows, 1)
	assert.Equal(t, qty("-2"), report.Rows[0].Diff)
	assert.Equal(t, 1, report.AdjustmentCount)
}
