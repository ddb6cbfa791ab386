package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

type historyService struct {
	store repository.Store
	tx    *txRunner
	now   func() time.Time
	newID func() string
}

func NewHistoryService(store repository.Store, opts Options) HistoryService {
	return newHistoryService(store, opts.withDefaults())
}

func newHistoryService(store repository.Store, opts Options) *historyService {
	return &historyService{
		store: store,
		tx:    &txRunner{store: store, maxRetries: opts.MaxRetries},
		now:   opts.Now,
		newID: opts.NewID,
	}
}

func hasQuantity(items []domain.HistoryItem) bool {
	for _, it := range items {
		if it.Quantity != 0 {
			return true
		}
	}
	return false
}

// recordOrMerge folds items into the (order, action) entry, creating it on
// first use. The entry id is linked on order; the caller persists order.
// A list without any quantity is a no-op and returns nil.
func (s *historyService) recordOrMerge(ctx context.Context, tx repository.Tx, order *domain.Order, action domain.ActionType, items []domain.HistoryItem, at time.Time) (*domain.HistoryEntry, error) {
	if !action.Valid() {
		return nil, domain.Validationf("action_type", "unknown action %q", action)
	}
	if !hasQuantity(items) {
		return nil, nil
	}
	if at.IsZero() {
		at = s.now()
	}

	entry, err := tx.History().GetByOrderAndAction(ctx, order.ID, action)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		entry = &domain.HistoryEntry{
			ID:         s.newID(),
			OrderID:    order.ID,
			ActionType: action,
			Items:      domain.MergeHistoryItems(action, nil, items),
			Timestamp:  at,
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		entry.Items = domain.MergeHistoryItems(action, entry.Items, items)
		if err := tx.History().Update(ctx, entry); err != nil {
			return nil, err
		}
	}

	order.LinkHistory(entry.ID)
	return entry, nil
}

// rewrite replaces the content of the (order, action) entry. An empty item
// list removes the entry and its link.
func (s *historyService) rewrite(ctx context.Context, tx repository.Tx, order *domain.Order, action domain.ActionType, items []domain.HistoryItem, at time.Time) (*domain.HistoryEntry, error) {
	entry, err := tx.History().GetByOrderAndAction(ctx, order.ID, action)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	exists := err == nil

	if len(items) == 0 {
		if exists {
			if err := tx.History().Delete(ctx, entry.ID); err != nil {
				return nil, err
			}
			unlinkHistory(order, entry.ID)
		}
		return nil, nil
	}

	if !exists {
		if at.IsZero() {
			at = s.now()
		}
		entry = &domain.HistoryEntry{
			ID:         s.newID(),
			OrderID:    order.ID,
			ActionType: action,
			Items:      items,
			Timestamp:  at,
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return nil, err
		}
	} else {
		entry.Items = items
		if err := tx.History().Update(ctx, entry); err != nil {
			return nil, err
		}
	}
	order.LinkHistory(entry.ID)
	return entry, nil
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unlinkHistory(order *domain.Order, historyID string) {
	out := order.HistoryIDs[:0]
	for _, id := range order.HistoryIDs {
		if id != historyID {
			out = append(out, id)
		}
	}
	order.HistoryIDs = out
}

func (s *historyService) RecordOrMerge(ctx context.Context, orderID string, action domain.ActionType, items []domain.HistoryItem) (*domain.HistoryEntry, error) {
	logger.EnterMethod("HistoryService.RecordOrMerge", "order_id", orderID, "action", action)
	var entry *domain.HistoryEntry
	err := s.tx.run(ctx, "HistoryService.RecordOrMerge", func(tx repository.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := len(order.HistoryIDs)
		entry, err = s.recordOrMerge(ctx, tx, order, action, items, s.now())
		if err != nil {
			return err
		}
		if len(order.HistoryIDs) != before {
			return tx.Orders().Update(ctx, order)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("HistoryService.RecordOrMerge", err, "order_id", orderID)
		return nil, err
	}
	logger.ExitMethod("HistoryService.RecordOrMerge", "order_id", orderID)
	return entry, nil
}

func (s *historyService) QueryByOrder(ctx context.Context, orderID string, action domain.ActionType) ([]domain.HistoryEntry, error) {
	if action != "" && !action.Valid() {
		return nil, domain.Validationf("action_type", "unknown action %q", action)
	}
	if _, err := s.store.Orders().Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.History().ListByOrder(ctx, orderID, action)
}

func (s *historyService) GetOrderHistory(ctx context.Context, orderID string) ([]domain.HistoryEntry, error) {
	return s.QueryByOrder(ctx, orderID, "")
}

func (s *historyService) GetSiteHistory(ctx context.Context, siteID string) ([]domain.HistoryEntry, error) {
	if siteID == "" {
		return nil, domain.Validationf("site_id", "is required")
	}
	return s.store.History().ListBySite(ctx, siteID)
}

func latest(times ...*time.Time) time.Time {
	var out time.Time
	for _, t := range times {
		if t != nil && t.After(out) {
			out = *t
		}
	}
	return out
}

// rebuild makes the journal of one order match its line state and returns
// how many entries were created, rewritten or removed.
func (s *historyService) rebuild(ctx context.Context, tx repository.Tx, order *domain.Order) (int, error) {
	derived := domain.HistoryFromOrder(order)
	repaired := 0
	keep := make(map[string]bool, 3)

	for _, action := range []domain.ActionType{domain.ActionRent, domain.ActionReturn, domain.ActionLoss} {
		want := derived[action]
		cur, err := tx.History().GetByOrderAndAction(ctx, order.ID, action)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		if err == nil && domain.SameItems(cur.Items, want) {
			keep[cur.ID] = true
			continue
		}
		if err != nil && len(want) == 0 {
			continue
		}

		at := order.OrderDate
		for _, it := range want {
			if t := latest(it.ReturnedAt); action != domain.ActionRent && t.After(at) {
				at = t
			}
		}
		entry, err := s.rewrite(ctx, tx, order, action, want, at)
		if err != nil {
			return 0, fmt.Errorf("failed to rebuild %s entry of order %s: %w", action, order.ID, err)
		}
		if entry != nil {
			keep[entry.ID] = true
		}
		repaired++
	}

	// Drop links to entries that no longer exist.
	ids := make([]string, 0, len(keep))
	for _, id := range order.HistoryIDs {
		if keep[id] {
			ids = append(ids, id)
			delete(keep, id)
		}
	}
	for id := range keep {
		ids = append(ids, id)
	}
	if !sameIDs(ids, order.HistoryIDs) {
		repaired++
	}
	order.HistoryIDs = ids
	return repaired, nil
}

// RebuildHistory reconstructs the journal of an order from its line items.
func (s *historyService) RebuildHistory(ctx context.Context, orderID string) (int, error) {
	logger.EnterMethod("HistoryService.RebuildHistory", "order_id", orderID)
	var repaired int
	err := s.tx.run(ctx, "HistoryService.RebuildHistory", func(tx repository.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		repaired, err = s.rebuild(ctx, tx, order)
		if err != nil {
			return err
		}
		if repaired > 0 {
			return tx.Orders().Update(ctx, order)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("HistoryService.RebuildHistory", err, "order_id", orderID)
		return 0, err
	}
	if repaired > 0 {
		logger.Info("Order history rebuilt", "order_id", orderID, "repaired", repaired)
	}
	logger.ExitMethod("HistoryService.RebuildHistory", "order_id", orderID, "repaired", repaired)
	return repaired, nil
}

// RebuildSiteHistory rebuilds every order of a site, one transaction per order.
func (s *historyService) RebuildSiteHistory(ctx context.Context, siteID string) (int, error) {
	orders, err := s.store.Orders().ListBySite(ctx, siteID)
	if err != nil {
		return 0, err
	}
	total := 0
	var errs []error
	for _, o := range orders {
		n, err := s.RebuildHistory(ctx, o.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", o.ID, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}
