package memory

import (
	"context"
	"sort"

	"siterent-backend/internal/domain"
)

type paymentRepo struct {
	s    *Store
	inTx bool
}

func (r *paymentRepo) Create(ctx context.Context, p *domain.PaymentRecord) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.payments[p.ID]; ok {
		return domain.Conflict("payment", p.ID, "payment already exists")
	}
	now := r.s.now()
	p.CreatedOn = now
	p.UpdatedOn = now
	r.s.st.payments[p.ID] = clonePayment(*p)
	return nil
}

func (r *paymentRepo) Get(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	defer r.s.guard(r.inTx)()
	p, ok := r.s.st.payments[id]
	if !ok {
		return nil, domain.NotFound("payment", id)
	}
	c := clonePayment(p)
	return &c, nil
}

// GetForUpdate is Get: the store lock already serialises transactions.
func (r *paymentRepo) GetForUpdate(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	return r.Get(ctx, id)
}

func (r *paymentRepo) Update(ctx context.Context, p *domain.PaymentRecord) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.payments[p.ID]; !ok {
		return domain.NotFound("payment", p.ID)
	}
	p.UpdatedOn = r.s.now()
	r.s.st.payments[p.ID] = clonePayment(*p)
	return nil
}

func (r *paymentRepo) Delete(ctx context.Context, id string) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.payments[id]; !ok {
		return domain.NotFound("payment", id)
	}
	delete(r.s.st.payments, id)
	return nil
}

func (r *paymentRepo) list(match func(p domain.PaymentRecord) bool) []domain.PaymentRecord {
	out := make([]domain.PaymentRecord, 0)
	for _, p := range r.s.st.payments {
		if match(p) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *paymentRepo) ListBySite(ctx context.Context, siteID string) ([]domain.PaymentRecord, error) {
	defer r.s.guard(r.inTx)()
	return r.list(func(p domain.PaymentRecord) bool { return p.SiteID == siteID }), nil
}

func (r *paymentRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentRecord, error) {
	defer r.s.guard(r.inTx)()
	return r.list(func(p domain.PaymentRecord) bool { return p.OrderID != nil && *p.OrderID == orderID }), nil
}

func (r *paymentRepo) UnlinkOrder(ctx context.Context, orderID string) error {
	defer r.s.guard(r.inTx)()
	for id, p := range r.s.st.payments {
		if p.OrderID != nil && *p.OrderID == orderID {
			p.OrderID = nil
			p.UpdatedOn = r.s.now()
			r.s.st.payments[id] = p
		}
	}
	return nil
}

func (r *paymentRepo) SumBySite(ctx context.Context, siteID string) (int64, error) {
	defer r.s.guard(r.inTx)()
	var total int64
	for _, p := range r.s.st.payments {
		if p.SiteID == siteID {
			total += p.AmountCents
		}
	}
	return total, nil
}
