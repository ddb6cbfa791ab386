package memory

import (
	"context"
	"sort"

	"siterent-backend/internal/domain"
)

type orderRepo struct {
	s    *Store
	inTx bool
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.orders[order.ID]; ok {
		return domain.Conflict("order", order.ID, "order already exists")
	}
	now := r.s.now()
	order.CreatedOn = now
	order.UpdatedOn = now
	order.Version = 1
	r.s.st.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	defer r.s.guard(r.inTx)()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, domain.NotFound("order", id)
	}
	return o.Clone(), nil
}

// GetForUpdate is Get: the transaction already holds the store lock.
func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.Get(ctx, id)
}

func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	defer r.s.guard(r.inTx)()
	cur, ok := r.s.st.orders[order.ID]
	if !ok {
		return domain.NotFound("order", order.ID)
	}
	if cur.Version != order.Version {
		return domain.Conflict("order", order.ID, "order was modified concurrently")
	}
	order.Version++
	order.UpdatedOn = r.s.now()
	r.s.st.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.orders[id]; !ok {
		return domain.NotFound("order", id)
	}
	delete(r.s.st.orders, id)
	return nil
}

func (r *orderRepo) list(match func(o *domain.Order) bool) []domain.Order {
	out := make([]domain.Order, 0)
	for _, o := range r.s.st.orders {
		if match(o) {
			out = append(out, *o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.After(out[j].OrderDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *orderRepo) ListBySite(ctx context.Context, siteID string) ([]domain.Order, error) {
	defer r.s.guard(r.inTx)()
	return r.list(func(o *domain.Order) bool { return o.SiteID == siteID }), nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	defer r.s.guard(r.inTx)()
	return r.list(func(o *domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *orderRepo) SumCostBySite(ctx context.Context, siteID string) (int64, error) {
	defer r.s.guard(r.inTx)()
	var total int64
	for _, o := range r.s.st.orders {
		if o.SiteID == siteID {
			total += o.TotalCostCents
		}
	}
	return total, nil
}
