package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/domain"
)

func TestHistoryService_RecordOrMerge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 5), testNow)
	require.NoError(t, err)

	first, err := env.history.RecordOrMerge(ctx, o.ID, domain.ActionReturn, []domain.HistoryItem{{ItemTypeID: "pole", Quantity: 1}})
	require.NoError(t, err)
	second, err := env.history.RecordOrMerge(ctx, o.ID, domain.ActionReturn, []domain.HistoryItem{
		{ItemTypeID: "pole", Quantity: 2},
		{ItemTypeID: "plank", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Timestamp, second.Timestamp)

	entries, err := env.history.QueryByOrder(ctx, o.ID, domain.ActionReturn)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, domain.SameItems(entries[0].Items, []domain.HistoryItem{
		{ItemTypeID: "pole", Quantity: 3},
		{ItemTypeID: "plank", Quantity: 1},
	}))

	got, err := env.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.HistoryIDs, 2)
	assert.Contains(t, got.HistoryIDs, first.ID)

	rent, err := env.history.RecordOrMerge(ctx, o.ID, domain.ActionRent, []domain.HistoryItem{{ItemTypeID: "pole", Quantity: 7}})
	require.NoError(t, err)
	require.Len(t, rent.Items, 1)
	assert.Equal(t, int32(7), rent.Items[0].Quantity)
}

func TestHistoryService_RecordOrMergeEdgeCases(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 5), testNow)
	require.NoError(t, err)

	entry, err := env.history.RecordOrMerge(ctx, o.ID, domain.ActionLoss, []domain.HistoryItem{{ItemTypeID: "pole", Quantity: 0}})
	require.NoError(t, err)
	assert.Nil(t, entry)
	loss, err := env.history.QueryByOrder(ctx, o.ID, domain.ActionLoss)
	require.NoError(t, err)
	assert.Empty(t, loss)

	_, err = env.history.RecordOrMerge(ctx, o.ID, domain.ActionType("repair"), []domain.HistoryItem{{ItemTypeID: "pole", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.history.RecordOrMerge(ctx, "missing", domain.ActionReturn, []domain.HistoryItem{{ItemTypeID: "pole", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.history.QueryByOrder(ctx, "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.history.GetSiteHistory(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHistoryService_RebuildHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	env.addStock(t, "plank", 10, 3000, 50)

	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 4, "plank", 2), testNow)
	require.NoError(t, err)
	_, err = env.orders.ReturnItems(ctx, o.ID, []domain.ReturnRequest{{ItemTypeID: "pole", Quantity: 2}})
	require.NoError(t, err)
	_, err = env.orders.RecordLoss(ctx, o.ID, "plank", 1, 400, testNow)
	require.NoError(t, err)

	n, err := env.history.RebuildHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "consistent journal needs no repair")

	// Corrupt the journal directly in storage.
	ret, err := env.mem.History().GetByOrderAndAction(ctx, o.ID, domain.ActionReturn)
	require.NoError(t, err)
	ret.Items[0].Quantity = 9
	require.NoError(t, env.mem.History().Update(ctx, ret))
	loss, err := env.mem.History().GetByOrderAndAction(ctx, o.ID, domain.ActionLoss)
	require.NoError(t, err)
	require.NoError(t, env.mem.History().Delete(ctx, loss.ID))

	n, err = env.history.RebuildHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	entries, err := env.history.GetOrderHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	derived := domain.HistoryFromOrder(mustOrder(t, env, o.ID))
	for _, e := range entries {
		assert.True(t, domain.SameItems(e.Items, derived[e.ActionType]), "action %s", e.ActionType)
	}

	got := mustOrder(t, env, o.ID)
	assert.Len(t, got.HistoryIDs, 3)
	for _, e := range entries {
		assert.Contains(t, got.HistoryIDs, e.ID)
	}

	n, err = env.history.RebuildHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHistoryService_RebuildSiteHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)

	a, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 2), testNow)
	require.NoError(t, err)
	_, err = env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 3), testNow)
	require.NoError(t, err)

	rent, err := env.mem.History().GetByOrderAndAction(ctx, a.ID, domain.ActionRent)
	require.NoError(t, err)
	require.NoError(t, env.mem.History().Delete(ctx, rent.ID))

	n, err := env.history.RebuildSiteHistory(ctx, "site-1")
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	hist, err := env.history.GetSiteHistory(ctx, "site-1")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func mustOrder(t *testing.T, env *testEnv, id string) *domain.Order {
	t.Helper()
	o, err := env.orders.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o
}
