package memory

import (
	"context"
	"sort"

	"siterent-backend/internal/domain"
)

type historyRepo struct {
	s    *Store
	inTx bool
}

func (r *historyRepo) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	defer r.s.guard(r.inTx)()
	for _, h := range r.s.st.history {
		if h.OrderID == entry.OrderID && h.ActionType == entry.ActionType {
			return domain.Conflict("history", h.ID, "entry for order and action already exists")
		}
	}
	entry.CreatedOn = r.s.now()
	r.s.st.history[entry.ID] = cloneHistory(*entry)
	return nil
}

func (r *historyRepo) Update(ctx context.Context, entry *domain.HistoryEntry) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.history[entry.ID]; !ok {
		return domain.NotFound("history", entry.ID)
	}
	r.s.st.history[entry.ID] = cloneHistory(*entry)
	return nil
}

func (r *historyRepo) GetByOrderAndAction(ctx context.Context, orderID string, action domain.ActionType) (*domain.HistoryEntry, error) {
	defer r.s.guard(r.inTx)()
	for _, h := range r.s.st.history {
		if h.OrderID == orderID && h.ActionType == action {
			c := cloneHistory(h)
			return &c, nil
		}
	}
	return nil, domain.NotFound("history", orderID+"/"+string(action))
}

func sortHistory(out []domain.HistoryEntry) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
}

func (r *historyRepo) ListByOrder(ctx context.Context, orderID string, action domain.ActionType) ([]domain.HistoryEntry, error) {
	defer r.s.guard(r.inTx)()
	out := make([]domain.HistoryEntry, 0)
	for _, h := range r.s.st.history {
		if h.OrderID == orderID && (action == "" || h.ActionType == action) {
			out = append(out, cloneHistory(h))
		}
	}
	sortHistory(out)
	return out, nil
}

func (r *historyRepo) ListBySite(ctx context.Context, siteID string) ([]domain.HistoryEntry, error) {
	defer r.s.guard(r.inTx)()
	out := make([]domain.HistoryEntry, 0)
	for _, h := range r.s.st.history {
		if o, ok := r.s.st.orders[h.OrderID]; ok && o.SiteID == siteID {
			out = append(out, cloneHistory(h))
		}
	}
	sortHistory(out)
	return out, nil
}

func (r *historyRepo) Delete(ctx context.Context, id string) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.history[id]; !ok {
		return domain.NotFound("history", id)
	}
	delete(r.s.st.history, id)
	return nil
}

func (r *historyRepo) DeleteByOrder(ctx context.Context, orderID string) error {
	defer r.s.guard(r.inTx)()
	for id, h := range r.s.st.history {
		if h.OrderID == orderID {
			delete(r.s.st.history, id)
		}
	}
	return nil
}
