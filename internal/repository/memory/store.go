// Package memory is an in-process implementation of repository.Store used by
// tests and local development. Transactions are serialized by one mutex and
// rolled back by restoring a snapshot taken when the transaction began.
package memory

import (
	"context"
	"sync"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository"
)

type state struct {
	stock    map[string]domain.StockEntry
	orders   map[string]*domain.Order
	history  map[string]domain.HistoryEntry
	sites    map[string]domain.SiteLedger
	payments map[string]domain.PaymentRecord
}

func newState() *state {
	return &state{
		stock:    make(map[string]domain.StockEntry),
		orders:   make(map[string]*domain.Order),
		history:  make(map[string]domain.HistoryEntry),
		sites:    make(map[string]domain.SiteLedger),
		payments: make(map[string]domain.PaymentRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v.Clone()
	}
	for k, v := range s.history {
		c.history[k] = cloneHistory(v)
	}
	for k, v := range s.sites {
		c.sites[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = clonePayment(v)
	}
	return c
}

func cloneHistory(h domain.HistoryEntry) domain.HistoryEntry {
	h.Items = append([]domain.HistoryItem(nil), h.Items...)
	return h
}

func clonePayment(p domain.PaymentRecord) domain.PaymentRecord {
	if p.OrderID != nil {
		id := *p.OrderID
		p.OrderID = &id
	}
	return p
}

// Store is a repository.Store held entirely in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	stock    *stockRepo
	orders   *orderRepo
	history  *historyRepo
	sites    *siteRepo
	payments *paymentRepo
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
	s.stock = &stockRepo{s: s}
	s.orders = &orderRepo{s: s}
	s.history = &historyRepo{s: s}
	s.sites = &siteRepo{s: s}
	s.payments = &paymentRepo{s: s}
	return s
}

// SetClock replaces the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Stock() repository.StockRepository { return s.stock }
func (s *Store) Orders() repository.OrderRepository { return s.orders }
func (s *Store) History() repository.HistoryRepository { return s.history }
func (s *Store) Sites() repository.SiteLedgerRepository { return s.sites }
func (s *Store) Payments() repository.PaymentRepository { return s.payments }

// WithTx runs fn with exclusive access to the store. Any error returned by
// fn restores the state as it was before fn ran.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &txView{
		stock:    &stockRepo{s: s, inTx: true},
		orders:   &orderRepo{s: s, inTx: true},
		history:  &historyRepo{s: s, inTx: true},
		sites:    &siteRepo{s: s, inTx: true},
		payments: &paymentRepo{s: s, inTx: true},
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.st = snapshot
				panic(r)
			}
		}()
		return fn(tx)
	}()
	if err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// guard locks the store for calls made outside a transaction. Inside WithTx
// the lock is already held.
func (s *Store) guard(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type txView struct {
	stock    *stockRepo
	orders   *orderRepo
	history  *historyRepo
	sites    *siteRepo
	payments *paymentRepo
}

func (t *txView) Stock() repository.StockRepository { return t.stock }
func (t *txView) Orders() repository.OrderRepository { return t.orders }
func (t *txView) History() repository.HistoryRepository { return t.history }
func (t *txView) Sites() repository.SiteLedgerRepository { return t.sites }
func (t *txView) Payments() repository.PaymentRepository { return t.payments }
