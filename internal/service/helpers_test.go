package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository"
	"siterent-backend/internal/repository/memory"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store    repository.Store
	mem      *memory.Store
	stock    StockService
	orders   OrderService
	history  HistoryService
	sites    SiteLedgerService
	payments PaymentService
}

func testOptions() Options {
	var n int64
	return Options{
		InvoicePrefix: "SR",
		MaxRetries:    2,
		Now:           func() time.Time { return testNow },
		NewID:         func() string { return fmt.Sprintf("id-%d", atomic.AddInt64(&n, 1)) },
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := memory.NewStore()
	return newTestEnvWithStore(t, mem, mem, testOptions())
}

func newTestEnvWithStore(t *testing.T, store repository.Store, mem *memory.Store, opts Options) *testEnv {
	t.Helper()
	return &testEnv{
		store:    store,
		mem:      mem,
		stock:    NewStockService(store, opts),
		orders:   NewOrderService(store, opts),
		history:  NewHistoryService(store, opts),
		sites:    NewSiteLedgerService(store, opts),
		payments: NewPaymentService(store, opts),
	}
}

func (e *testEnv) addStock(t *testing.T, itemTypeID string, qty int32, unitPrice, rate int64) {
	t.Helper()
	_, err := e.stock.AddStock(context.Background(), itemTypeID, qty, unitPrice, rate)
	require.NoError(t, err)
}

func (e *testEnv) stockOf(t *testing.T, itemTypeID string) domain.StockEntry {
	t.Helper()
	s, err := e.stock.GetStock(context.Background(), itemTypeID)
	require.NoError(t, err)
	require.True(t, s.Consistent(), "stock %s inconsistent: %+v", itemTypeID, s)
	return *s
}

func (e *testEnv) due(t *testing.T, siteID string) int64 {
	t.Helper()
	b, err := e.sites.GetSiteBalance(context.Background(), siteID)
	require.NoError(t, err)
	return b.DueAmountCents
}

func lines(kv ...any) []domain.LineRequest {
	var out []domain.LineRequest
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, domain.LineRequest{ItemTypeID: kv[i].(string), Quantity: int32(kv[i+1].(int))})
	}
	return out
}

// faultyStore fails every history write inside a transaction.
type faultyStore struct {
	*memory.Store
	err error
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(faultyTx{Tx: tx, err: f.err})
	})
}

type faultyTx struct {
	repository.Tx
	err error
}

func (t faultyTx) History() repository.HistoryRepository {
	return failingHistory{HistoryRepository: t.Tx.History(), err: t.err}
}

type failingHistory struct {
	repository.HistoryRepository
	err error
}

func (h failingHistory) Create(context.Context, *domain.HistoryEntry) error { return h.err }
func (h failingHistory) Update(context.Context, *domain.HistoryEntry) error { return h.err }

// conflictStore reports a storage conflict for the first failures transactions.
type conflictStore struct {
	*memory.Store
	failures int32
	calls    int32
}

func (c *conflictStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if atomic.AddInt32(&c.calls, 1) <= c.failures {
		return domain.Conflict("order", "", "simulated serialization failure")
	}
	return c.Store.WithTx(ctx, fn)
}

// mockCache records cache traffic.
type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetSiteBalance(ctx context.Context, siteID string) (*domain.SiteBalance, bool) {
	args := m.Called(ctx, siteID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.SiteBalance), args.Bool(1)
}

func (m *mockCache) SetSiteBalance(ctx context.Context, b *domain.SiteBalance) {
	m.Called(ctx, b)
}

func (m *mockCache) GetStockList(ctx context.Context) ([]domain.StockEntry, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]domain.StockEntry), args.Bool(1)
}

func (m *mockCache) SetStockList(ctx context.Context, entries []domain.StockEntry) {
	m.Called(ctx, entries)
}

func (m *mockCache) InvalidateSites(ctx context.Context, siteIDs ...string) {
	m.Called(ctx, siteIDs)
}

func (m *mockCache) InvalidateStock(ctx context.Context) {
	m.Called(ctx)
}

// lockRecordingStore notes every stock and payment read made inside a
// transaction, tagged "lock" or "plain".
type lockRecordingStore struct {
	*memory.Store
	mu    sync.Mutex
	reads []string
}

func (l *lockRecordingStore) record(kind, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads = append(l.reads, kind+":"+id)
}

func (l *lockRecordingStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return l.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(lockRecordingTx{Tx: tx, rec: l})
	})
}

type lockRecordingTx struct {
	repository.Tx
	rec *lockRecordingStore
}

func (t lockRecordingTx) Stock() repository.StockRepository {
	return recordingStock{StockRepository: t.Tx.Stock(), rec: t.rec}
}

func (t lockRecordingTx) Payments() repository.PaymentRepository {
	return recordingPayments{PaymentRepository: t.Tx.Payments(), rec: t.rec}
}

type recordingStock struct {
	repository.StockRepository
	rec *lockRecordingStore
}

func (r recordingStock) Get(ctx context.Context, id string) (*domain.StockEntry, error) {
	r.rec.record("plain", id)
	return r.StockRepository.Get(ctx, id)
}

func (r recordingStock) GetForUpdate(ctx context.Context, id string) (*domain.StockEntry, error) {
	r.rec.record("lock", id)
	return r.StockRepository.GetForUpdate(ctx, id)
}

type recordingPayments struct {
	repository.PaymentRepository
	rec *lockRecordingStore
}

func (r recordingPayments) Get(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	r.rec.record("plain", id)
	return r.PaymentRepository.Get(ctx, id)
}

func (r recordingPayments) GetForUpdate(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	r.rec.record("lock", id)
	return r.PaymentRepository.GetForUpdate(ctx, id)
}
