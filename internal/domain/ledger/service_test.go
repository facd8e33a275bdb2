package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/core/apperror"
	appctx "stocktake/internal/core/context"
	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

type fakeRepo struct {
	inserted [][]*StockTransaction
	balances map[string]types.Quantity
	err      error
}

func balanceKey(locationID, materialID id.ID) string {
	return locationID.String() + ":" + materialID.String()
}

func (f *fakeRepo) InsertTransactions(_ context.Context, txs []*StockTransaction) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, txs)
	return nil
}

func (f *fakeRepo) GetBalance(_ context.Context, locationID, materialID id.ID) (types.Quantity, error) {
	return f.balances[balanceKey(locationID, materialID)], nil
}

func (f *fakeRepo) GetBalanceForUpdate(ctx context.Context, locationID, materialID id.ID) (types.Quantity, error) {
	return f.GetBalance(ctx, locationID, materialID)
}

func (f *fakeRepo) GetStockByLocation(_ context.Context, _ id.ID) ([]StockBalance, error) {
	return nil, nil
}

func (f *fakeRepo) GetStockByMaterial(_ context.Context, _ id.ID) ([]StockBalance, error) {
	return nil, nil
}

func (f *fakeRepo) ListTransactions(_ context.Context, _ TransactionFilter) ([]*StockTransaction, error) {
	return nil, nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func mustQty(t *testing.T, s string) types.Quantity {
	t.Helper()
	q, err := types.ParseQuantity(s)
	require.NoError(t, err)
	return q
}

func userContext(userID id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: userID.String(),
	})
}

func TestService_Post_FillsCreatedByFromContext(t *testing.T) {
	repo := &fakeRepo{balances: map[string]types.Quantity{}}
	svc := NewService(repo, passthroughTx{})

	userID := id.New()
	tx := NewTransaction(id.New(), id.New(), DirectionIn, mustQty(t, "5"), ReasonReceipt, id.Nil())

	require.NoError(t, svc.Post(userContext(userID), tx))

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, userID, repo.inserted[0][0].CreatedBy)
}

func TestService_Post_OutRequiresAvailableStock(t *testing.T) {
	materialID := id.New()
	locationID := id.New()

	repo := &fakeRepo{balances: map[string]types.Quantity{
		balanceKey(locationID, materialID): mustQty(t, "3"),
	}}
	svc := NewService(repo, passthroughTx{})

	tx := NewTransaction(materialID, locationID, DirectionOut, mustQty(t, "5"), ReasonIssue, id.New())
	err := svc.Post(context.Background(), tx)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Empty(t, repo.inserted)
}

func TestService_Post_RejectsInvalidTransaction(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, passthroughTx{})

	tx := NewTransaction(id.New(), id.New(), Direction("SIDEWAYS"), mustQty(t, "1"), ReasonReceipt, id.New())
	err := svc.Post(context.Background(), tx)

	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}

func TestService_Transfer(t *testing.T) {
	materialID := id.New()
	from := id.New()
	to := id.New()

	repo := &fakeRepo{balances: map[string]types.Quantity{
		balanceKey(from, materialID): mustQty(t, "10"),
	}}
	svc := NewService(repo, passthroughTx{})

	require.NoError(t, svc.Transfer(userContext(id.New()), materialID, from, to, mustQty(t, "4")))

	require.Len(t, repo.inserted, 1)
	pair := repo.inserted[0]
	require.Len(t, pair, 2)

	assert.Equal(t, DirectionOut, pair[0].Direction)
	assert.Equal(t, from, pair[0].LocationID)
	assert.Equal(t, DirectionIn, pair[1].Direction)
	assert.Equal(t, to, pair[1].LocationID)

	require.NotNil(t, pair[0].Reference)
	require.NotNil(t, pair[1].Reference)
	assert.Equal(t, *pair[0].Reference, *pair[1].Reference)
}

func TestService_Transfer_SameLocationRejected(t *testing.T) {
	svc := NewService(&fakeRepo{}, passthroughTx{})

	loc := id.New()
	err := svc.Transfer(context.Background(), id.New(), loc, loc, mustQty(t, "1"))

	require.Error(t, err)
}

func TestService_Transfer_InsufficientStock(t *testing.T) {
	materialID := id.New()
	from := id.New()

	repo := &fakeRepo{balances: map[string]types.Quantity{
		balanceKey(from, materialID): mustQty(t, "1"),
	}}
	svc := NewService(repo, passthroughTx{})

	err := svc.Transfer(context.Background(), materialID, from, id.New(), mustQty(t, "2"))

	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}

func TestService_PostBatch_Empty(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, passthroughTx{})

	require.NoError(t, svc.PostBatch(context.Background(), nil))
	assert.Empty(t, repo.inserted)
}
