package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository/memory"
)

func newPayment(siteID string, orderID *string, amount int64) domain.NewPayment {
	return domain.NewPayment{
		SiteID:      siteID,
		OrderID:     orderID,
		CustomerID:  "cust-1",
		AmountCents: amount,
		Method:      domain.PaymentMethodCash,
		Type:        "partial",
	}
}

func TestPaymentService_AddPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 4), testNow)
	require.NoError(t, err)

	orderID := o.ID
	p, err := env.payments.AddPayment(ctx, newPayment("site-1", &orderID, 150))
	require.NoError(t, err)
	assert.Equal(t, testNow, p.Date)
	assert.Equal(t, int64(250), env.due(t, "site-1"))

	got := mustOrder(t, env, o.ID)
	assert.Equal(t, int64(150), got.PaidCents)
	assert.False(t, got.PaymentDone)
	assert.Equal(t, []string{p.ID}, got.PaymentIDs)

	_, err = env.payments.AddPayment(ctx, newPayment("site-1", &orderID, 250))
	require.NoError(t, err)
	got = mustOrder(t, env, o.ID)
	assert.True(t, got.PaymentDone)
	assert.Equal(t, int64(0), env.due(t, "site-1"))

	byOrder, err := env.payments.ListPaymentsByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)
}

func TestPaymentService_AddPaymentCreatesSite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	paidOn := testNow.Add(-24 * time.Hour)

	in := newPayment("site-new", nil, 500)
	in.Date = &paidOn
	p, err := env.payments.AddPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, paidOn, p.Date)
	assert.Equal(t, int64(-500), env.due(t, "site-new"))

	list, err := env.payments.ListPaymentsBySite(ctx, "site-new")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPaymentService_AddPaymentValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 1), testNow)
	require.NoError(t, err)
	orderID := o.ID
	missing := "missing"

	cases := map[string]func(in *domain.NewPayment){
		"ZeroAmount":    func(in *domain.NewPayment) { in.AmountCents = 0 },
		"UnknownMethod": func(in *domain.NewPayment) { in.Method = "Barter" },
		"BlankType":     func(in *domain.NewPayment) { in.Type = "  " },
		"NoSite":        func(in *domain.NewPayment) { in.SiteID = "" },
		"OtherSite":     func(in *domain.NewPayment) { in.SiteID = "site-2" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := newPayment("site-1", &orderID, 100)
			mutate(&in)
			_, err := env.payments.AddPayment(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err = env.payments.AddPayment(ctx, newPayment("site-1", &missing, 100))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(100), env.due(t, "site-1"))
}

func TestPaymentService_EditPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 4), testNow)
	require.NoError(t, err)
	orderID := o.ID
	p, err := env.payments.AddPayment(ctx, newPayment("site-1", &orderID, 100))
	require.NoError(t, err)

	amount := int64(400)
	method := domain.PaymentMethodUPI
	remarks := "corrected"
	p, err = env.payments.EditPayment(ctx, p.ID, domain.PaymentUpdate{AmountCents: &amount, Method: &method, Remarks: &remarks})
	require.NoError(t, err)
	assert.Equal(t, int64(400), p.AmountCents)
	assert.Equal(t, domain.PaymentMethodUPI, p.Method)
	assert.Equal(t, int64(0), env.due(t, "site-1"))
	assert.True(t, mustOrder(t, env, o.ID).PaymentDone)

	amount = 300
	_, err = env.payments.EditPayment(ctx, p.ID, domain.PaymentUpdate{AmountCents: &amount})
	require.NoError(t, err)
	assert.Equal(t, int64(100), env.due(t, "site-1"))
	assert.Equal(t, int64(300), mustOrder(t, env, o.ID).PaidCents)

	bad := int64(-5)
	_, err = env.payments.EditPayment(ctx, p.ID, domain.PaymentUpdate{AmountCents: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.payments.EditPayment(ctx, "missing", domain.PaymentUpdate{AmountCents: &amount})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentService_DeletePayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 2), testNow)
	require.NoError(t, err)
	orderID := o.ID
	p, err := env.payments.AddPayment(ctx, newPayment("site-1", &orderID, 200))
	require.NoError(t, err)
	require.True(t, mustOrder(t, env, o.ID).PaymentDone)

	require.NoError(t, env.payments.DeletePayment(ctx, p.ID))
	assert.Equal(t, int64(200), env.due(t, "site-1"))

	got := mustOrder(t, env, o.ID)
	assert.Zero(t, got.PaidCents)
	assert.False(t, got.PaymentDone)
	assert.Empty(t, got.PaymentIDs)

	_, err = env.payments.GetPayment(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rec, err := env.sites.RecomputeSiteBalance(ctx, "site-1")
	require.NoError(t, err)
	assert.Zero(t, rec.DriftCents)
}

func TestPaymentService_EditAndDeleteLockThePayment(t *testing.T) {
	ctx := context.Background()
	store := &lockRecordingStore{Store: memory.NewStore()}
	env := newTestEnvWithStore(t, store, store.Store, testOptions())
	env.addStock(t, "pole", 10, 5000, 100)
	o, err := env.orders.CreateOrder(ctx, "site-1", "cust-1", lines("pole", 4), testNow)
	require.NoError(t, err)
	orderID := o.ID
	p, err := env.payments.AddPayment(ctx, newPayment("site-1", &orderID, 100))
	require.NoError(t, err)

	// Each edit is charged against the amount stored by the previous one.
	for _, amount := range []int64{300, 200} {
		amount := amount
		_, err = env.payments.EditPayment(ctx, p.ID, domain.PaymentUpdate{AmountCents: &amount})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(200), env.due(t, "site-1"))
	assert.Equal(t, int64(200), mustOrder(t, env, o.ID).PaidCents)

	require.NoError(t, env.payments.DeletePayment(ctx, p.ID))
	assert.Equal(t, int64(400), env.due(t, "site-1"))
	assert.Equal(t, int64(0), mustOrder(t, env, o.ID).PaidCents)

	assert.Equal(t, []string{"lock:" + p.ID, "lock:" + p.ID, "lock:" + p.ID}, paymentReads(store, p.ID))
}

func paymentReads(store *lockRecordingStore, paymentID string) []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	var out []string
	for _, r := range store.reads {
		if strings.HasSuffix(r, ":"+paymentID) {
			out = append(out, r)
		}
	}
	return out
}

func TestPaymentService_AddPaymentRejectsOtherCustomer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.payments.AddPayment(ctx, newPayment("site-1", nil, 100))
	require.NoError(t, err)

	in := newPayment("site-1", nil, 50)
	in.CustomerID = "cust-2"
	_, err = env.payments.AddPayment(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(-100), env.due(t, "site-1"))

	list, err := env.payments.ListPaymentsBySite(ctx, "site-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
