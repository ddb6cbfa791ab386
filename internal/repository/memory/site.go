package memory

import (
	"context"
	"sort"

	"siterent-backend/internal/domain"
)

type siteRepo struct {
	s    *Store
	inTx bool
}

func (r *siteRepo) Ensure(ctx context.Context, siteID, customerID, invoicePrefix string) (*domain.SiteLedger, error) {
	defer r.s.guard(r.inTx)()
	if l, ok := r.s.st.sites[siteID]; ok {
		if customerID != "" && l.CustomerID != customerID {
			return nil, domain.Validationf("customer_id", "site %s belongs to customer %s, not %s", siteID, l.CustomerID, customerID)
		}
		return &l, nil
	}
	now := r.s.now()
	l := domain.SiteLedger{
		SiteID:        siteID,
		CustomerID:    customerID,
		InvoicePrefix: invoicePrefix,
		CreatedOn:     now,
		UpdatedOn:     now,
	}
	r.s.st.sites[siteID] = l
	return &l, nil
}

func (r *siteRepo) Get(ctx context.Context, siteID string) (*domain.SiteLedger, error) {
	defer r.s.guard(r.inTx)()
	l, ok := r.s.st.sites[siteID]
	if !ok {
		return nil, domain.NotFound("site", siteID)
	}
	return &l, nil
}

func (r *siteRepo) List(ctx context.Context) ([]domain.SiteLedger, error) {
	defer r.s.guard(r.inTx)()
	out := make([]domain.SiteLedger, 0, len(r.s.st.sites))
	for _, l := range r.s.st.sites {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out, nil
}

func (r *siteRepo) AdjustDue(ctx context.Context, siteID string, deltaCents int64) (int64, error) {
	defer r.s.guard(r.inTx)()
	l, ok := r.s.st.sites[siteID]
	if !ok {
		return 0, domain.NotFound("site", siteID)
	}
	l.DueAmountCents += deltaCents
	l.UpdatedOn = r.s.now()
	r.s.st.sites[siteID] = l
	return l.DueAmountCents, nil
}

func (r *siteRepo) SetDue(ctx context.Context, siteID string, dueCents int64) error {
	defer r.s.guard(r.inTx)()
	l, ok := r.s.st.sites[siteID]
	if !ok {
		return domain.NotFound("site", siteID)
	}
	l.DueAmountCents = dueCents
	l.UpdatedOn = r.s.now()
	r.s.st.sites[siteID] = l
	return nil
}

func (r *siteRepo) NextInvoiceCounter(ctx context.Context, siteID string) (int64, string, error) {
	defer r.s.guard(r.inTx)()
	l, ok := r.s.st.sites[siteID]
	if !ok {
		return 0, "", domain.NotFound("site", siteID)
	}
	l.InvoiceCounter++
	l.UpdatedOn = r.s.now()
	r.s.st.sites[siteID] = l
	return l.InvoiceCounter, l.InvoicePrefix, nil
}
