package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/config"
	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository/memory"
	"siterent-backend/internal/service"
)

type jobsEnv struct {
	mem    *memory.Store
	runner *JobRunner
	orders service.OrderService
	sites  service.SiteLedgerService
}

func newJobsEnv(t *testing.T) *jobsEnv {
	t.Helper()
	mem := memory.NewStore()
	opts := service.Options{InvoicePrefix: "SR"}
	sites := service.NewSiteLedgerService(mem, opts)
	runner := NewJobRunner(&Services{
		Sites:   sites,
		History: service.NewHistoryService(mem, opts),
	}, config.SchedulerConfig{})

	_, err := service.NewStockService(mem, opts).AddStock(context.Background(), "pole", 20, 5000, 100)
	require.NoError(t, err)
	return &jobsEnv{mem: mem, runner: runner, orders: service.NewOrderService(mem, opts), sites: sites}
}

func TestReconcileBalances_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	env := newJobsEnv(t)
	_, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", []domain.LineRequest{{ItemTypeID: "pole", Quantity: 4}}, time.Time{})
	require.NoError(t, err)
	require.NoError(t, env.mem.Sites().SetDue(ctx, "site-1", 1))

	env.runner.ReconcileBalances()

	b, err := env.sites.GetSiteBalance(ctx, "site-1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), b.DueAmountCents)
}

func TestRepairHistories_RestoresMissingEntries(t *testing.T) {
	ctx := context.Background()
	env := newJobsEnv(t)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", []domain.LineRequest{{ItemTypeID: "pole", Quantity: 4}}, time.Time{})
	require.NoError(t, err)
	rent, err := env.mem.History().GetByOrderAndAction(ctx, o.ID, domain.ActionRent)
	require.NoError(t, err)
	require.NoError(t, env.mem.History().Delete(ctx, rent.ID))

	env.runner.RepairHistories()

	restored, err := env.mem.History().GetByOrderAndAction(ctx, o.ID, domain.ActionRent)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Len(t, restored.Items, 1)
	assert.Equal(t, int32(4), restored.Items[0].Quantity)
}

func TestRunWithRecovery_SwallowsPanic(t *testing.T) {
	env := newJobsEnv(t)
	ran := false
	assert.NotPanics(t, func() {
		env.runner.runWithRecovery("boom", func() {
			ran = true
			panic("boom")
		})
	})
	assert.True(t, ran)
}
