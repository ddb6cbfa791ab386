package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository"
	"siterent-backend/internal/repository/memory"
)

func TestSiteLedgerService_IncreaseDecrease(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.sites.Increase(ctx, "site-1", 100)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.mem.WithTx(ctx, func(tx repository.Tx) error {
		_, err := tx.Sites().Ensure(ctx, "site-1", "cust-1", "SR")
		return err
	}))

	due, err := env.sites.Increase(ctx, "site-1", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), due)

	due, err = env.sites.Decrease(ctx, "site-1", 300)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), due, "negative balances are kept")

	_, err = env.sites.Increase(ctx, "site-1", -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSiteLedgerService_InvoiceNumbersArePerSite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)

	a1, err := env.orders.CreateOrder(ctx, "site-a", "cust-1", lines("pole", 1), testNow)
	require.NoError(t, err)
	b1, err := env.orders.CreateOrder(ctx, "site-b", "cust-2", lines("pole", 1), testNow)
	require.NoError(t, err)
	a2, err := env.orders.CreateOrder(ctx, "site-a", "cust-1", lines("pole", 1), testNow)
	require.NoError(t, err)

	assert.Equal(t, "SR-1", a1.InvoiceNumber)
	assert.Equal(t, "SR-1", b1.InvoiceNumber)
	assert.Equal(t, "SR-2", a2.InvoiceNumber)

	next, err := env.sites.NextInvoiceNumber(ctx, "site-a")
	require.NoError(t, err)
	assert.Equal(t, "SR-3", next)

	sites, err := env.sites.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "site-a", sites[0].SiteID)
}

func TestSiteLedgerService_RecomputeRepairsDrift(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)

	_, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 3), testNow)
	require.NoError(t, err)
	_, err = env.payments.AddPayment(ctx, domain.NewPayment{
		SiteID: "site-1", CustomerID: "cust-1", AmountCents: 50,
		Method: domain.PaymentMethodBankTransfer, Type: "advance",
	})
	require.NoError(t, err)

	rec, err := env.sites.RecomputeSiteBalance(ctx, "site-1")
	require.NoError(t, err)
	assert.False(t, rec.Repaired)
	assert.Equal(t, int64(250), rec.ComputedCents)

	require.NoError(t, env.mem.Sites().SetDue(ctx, "site-1", 999))

	rec, err = env.sites.RecomputeSiteBalance(ctx, "site-1")
	require.NoError(t, err)
	assert.True(t, rec.Repaired)
	assert.Equal(t, int64(999), rec.StoredCents)
	assert.Equal(t, int64(749), rec.DriftCents)
	assert.Equal(t, int64(250), env.due(t, "site-1"))

	_, err = env.sites.RecomputeSiteBalance(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSiteLedgerService_ReconcileAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)

	for _, site := range []string{"site-a", "site-b", "site-c"} {
		_, err := env.orders.CreateOrder(ctx, site, "cust-1", lines("pole", 1), testNow)
		require.NoError(t, err)
	}
	require.NoError(t, env.mem.Sites().SetDue(ctx, "site-b", 0))

	results, err := env.sites.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	repaired := 0
	for _, r := range results {
		if r.Repaired {
			repaired++
			assert.Equal(t, "site-b", r.SiteID)
		}
	}
	assert.Equal(t, 1, repaired)
	assert.Equal(t, int64(100), env.due(t, "site-b"))
}

func TestSiteLedgerService_BalanceReadThroughCache(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	cache := new(mockCache)
	opts := testOptions()
	opts.Cache = cache
	svc := NewSiteLedgerService(mem, opts)

	require.NoError(t, mem.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Sites().Ensure(ctx, "site-1", "cust-1", "SR"); err != nil {
			return err
		}
		_, err := tx.Sites().AdjustDue(ctx, "site-1", 400)
		return err
	}))

	cache.On("GetSiteBalance", mock.Anything, "site-1").Return(nil, false).Once()
	cache.On("SetSiteBalance", mock.Anything, &domain.SiteBalance{SiteID: "site-1", DueAmountCents: 400}).Return().Once()

	b, err := svc.GetSiteBalance(ctx, "site-1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), b.DueAmountCents)

	cache.On("GetSiteBalance", mock.Anything, "site-1").Return(&domain.SiteBalance{SiteID: "site-1", DueAmountCents: 1}, true).Once()
	b, err = svc.GetSiteBalance(ctx, "site-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.DueAmountCents)

	cache.On("InvalidateSites", mock.Anything, []string{"site-1"}).Return().Once()
	_, err = svc.Decrease(ctx, "site-1", 100)
	require.NoError(t, err)

	cache.AssertExpectations(t)
}
