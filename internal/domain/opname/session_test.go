package opname

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/ledger"
	"stocktake/pkg/numerator"
)

// blockingStock delays responses for one location until released, to
// drive in-flight load ordering from the test.
type blockingStock struct {
	mu         sync.Mutex
	byLocation map[id.ID][]ledger.StockBalance
	block      id.ID
	release    chan struct{}
}

func (f *blockingStock) GetStockByLocation(_ context.Context, locationID id.ID) ([]ledger.StockBalance, error) {
	if locationID == f.block {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byLocation[locationID], nil
}

func newSessionFixture(stock StockReader) (*Session, *fakeDraftStore, *fakeLedger) {
	drafts := &fakeDraftStore{}
	lg := &fakeLedger{}
	svc := NewService(stock, drafts, lg, fakeLocations{}, &numerator.Mock{}, 1)
	return NewSession(svc, nil, "op-1"), drafts, lg
}

func TestSession_StaleLoadDiscarded(t *testing.T) {
	locA := id.New()
	locB := id.New()
	stock := &blockingStock{
		byLocation: map[id.ID][]ledger.StockBalance{
			locA: {balance(id.New(), "SlowItem", qty("1"))},
			locB: {balance(id.New(), "FastItem", qty("2"))},
		},
		block:   locA,
		release: make(chan struct{}),
	}
	sess, _, _ := newSessionFixture(stock)
	ctx := operatorCtx()

	staleErr := make(chan error, 1)
	go func() {
		_, err := sess.Load(ctx, locA, testDay)
		staleErr <- err
	}()

	// wait for the first load to be in flight
	for sess.State() != StateLoading {
		time.Sleep(time.Millisecond)
	}

	items, err := sess.Load(ctx, locB, testDay)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "FastItem", items[0].MaterialName)

	close(stock.release)

	require.ErrorIs(t, <-staleErr, ErrStaleLoad)
	assert.Equal(t, locB, sess.Location())
	require.Len(t, sess.Items(), 1)
	assert.Equal(t, "FastItem", sess.Items()[0].MaterialName)
	assert.Equal(t, StateReady, sess.State())
}

func TestSession_LoadFailureReturnsToIdle(t *testing.T) {
	stock := &fakeStock{err: errors.New("down")}
	sess, _, _ := newSessionFixture(stock)

	_, err := sess.Load(operatorCtx(), id.New(), testDay)

	require.Error(t, err)
	assert.Equal(t, StateIdle, sess.State())
	assert.Empty(t, sess.Items())
}

func TestSession_AddManual(t *testing.T) {
	locID := id.New()
	existing := id.New()
	stock := &fakeStock{byLocation: map[id.ID][]ledger.StockBalance{
		locID: {balance(existing, "Widget", qty("10"))},
	}}
	sess, _, _ := newSessionFixture(stock)

	_, err := sess.Load(operatorCtx(), locID, testDay)
	require.NoError(t, err)

	item, err := sess.AddManual(id.New(), "M-9", "Gasket", "pcs")
	require.NoError(t, err)
	assert.True(t, item.SystemStock.IsZero())
	assert.True(t, item.IsModified)

	// prepended
	assert.Equal(t, item.MaterialID, sess.Items()[0].MaterialID)

	_, err = sess.AddManual(existing, "M-1", "Widget", "pcs")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestSession_SaveFailureKeepsItems(t *testing.T) {
	locID := id.New()
	mat := id.New()
	stock := &fakeStock{byLocation: map[id.ID][]ledger.StockBalance{
		locID: {balance(mat, "Widget", qty("10"))},
	}}
	sess, drafts, _ := newSessionFixture(stock)
	ctx := operatorCtx()

	_, err := sess.Load(ctx, locID, testDay)
	require.NoError(t, err)
	require.NoError(t, sess.SetCount(mat, qty("9")))

	drafts.err = errors.New("timeout")
	_, err = sess.SaveDraft(ctx)
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))

	// in-memory work survives, retry succeeds
	assert.Equal(t, StateReady, sess.State())
	require.NotNil(t, sess.Items()[0].PhysicalStock)
	assert.Equal(t, qty("9"), *sess.Items()[0].PhysicalStock)
	assert.False(t, sess.HasDraft(locID))

	drafts.err = nil
	_, err = sess.SaveDraft(ctx)
	require.NoError(t, err)
	assert.True(t, sess.HasDraft(locID))
}

func TestSession_FinalizeClearsDraftsAndReloads(t *testing.T) {
	locID := id.New()
	mat := id.New()
	stock := &fakeStock{byLocation: map[id.ID][]ledger.StockBalance{
		locID: {balance(mat, "Widget", qty("10"))},
	}}
	sess, _, lg := newSessionFixture(stock)
	ctx := adminCtx()

	_, err := sess.Load(ctx, locID, testDay)
	require.NoError(t, err)
	require.NoError(t, sess.SetCount(mat, qty("7")))
	_, err = sess.SaveDraft(ctx)
	require.NoError(t, err)
	require.True(t, sess.HasDraft(locID))

	report, err := sess.Finalize(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.AdjustmentCount)
	require.Len(t, lg.batches, 1)
	assert.False(t, sess.HasDraft(locID))
	assert.Equal(t, StateReady, sess.State())
}

func TestSession_FinalizeRejectedForOperator(t *testing.T) {
	locID := id.New()
	stock := &fakeStock{byLocation: map[id.ID][]ledger.StockBalance{
		locID: {balance(id.New(), "Widget", qty("10"))},
	}}
	sess, _, _ := newSessionFixture(stock)
	ctx := operatorCtx()

	_, err := sess.Load(ctx, locID, testDay)
	require.NoError(t, err)

	_, err = sess.Finalize(ctx)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestSession_SetCountUnknownMaterial(t *testing.T) {
	locID := id.New()
	stock := &fakeStock{byLocation: map[id.ID][]ledger.StockBalance{
		locID: {balance(id.New(), "Widget", qty("10"))},
	}}
	sess, _, _ := newSessionFixture(stock)

	_, err := sess.Load(operatorCtx(), locID, testDay)
	require.NoError(t, err)

	err = sess.SetCount(id.New(), types.Quantity(5))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSession_ApplyBreakdown(t *testing.T) {
	locID := id.New()
	mat := id.New()
	stock := &fakeStock{byLocation: map[id.ID][]ledger.StockBalance{
		locID: {balance(mat, "Widget", qty("100"))},
	}}
	sess, _, _ := newSessionFixture(stock)

	_, err := sess.Load(operatorCtx(), locID, testDay)
	require.NoError(t, err)

	err = sess.ApplyBreakdown(mat, []WorkingRow{
		{Label: "Pallet A", Qty: "40"},
		{Label: "Pallet B", Qty: "58"},
	})
	require.NoError(t, err)

	item := sess.Items()[0]
	require.NotNil(t, item.PhysicalStock)
	assert.Equal(t, qty("98"), *item.PhysicalStock)
	assert.True(t, item.HasBreakdown)
	assert.Len(t, item.Breakdown, 2)
}
