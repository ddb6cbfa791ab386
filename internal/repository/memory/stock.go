package memory

import (
	"context"
	"sort"

	"siterent-backend/internal/domain"
)

type stockRepo struct {
	s    *Store
	inTx bool
}

func (r *stockRepo) Create(ctx context.Context, entry *domain.StockEntry) error {
	defer r.s.guard(r.inTx)()
	if _, ok := r.s.st.stock[entry.ItemTypeID]; ok {
		return domain.Validationf("item_type_id", "stock entry %s already exists", entry.ItemTypeID)
	}
	now := r.s.now()
	entry.CreatedOn = now
	entry.UpdatedOn = now
	r.s.st.stock[entry.ItemTypeID] = *entry
	return nil
}

func (r *stockRepo) Get(ctx context.Context, itemTypeID string) (*domain.StockEntry, error) {
	defer r.s.guard(r.inTx)()
	e, ok := r.s.st.stock[itemTypeID]
	if !ok {
		return nil, domain.NotFound("stock", itemTypeID)
	}
	return &e, nil
}

func (r *stockRepo) GetForUpdate(ctx context.Context, itemTypeID string) (*domain.StockEntry, error) {
	return r.Get(ctx, itemTypeID)
}

func (r *stockRepo) List(ctx context.Context) ([]domain.StockEntry, error) {
	defer r.s.guard(r.inTx)()
	out := make([]domain.StockEntry, 0, len(r.s.st.stock))
	for _, e := range r.s.st.stock {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemTypeID < out[j].ItemTypeID })
	return out, nil
}

// mutate applies fn to the stored entry and persists it when fn succeeds.
func (r *stockRepo) mutate(itemTypeID string, fn func(e *domain.StockEntry) error) (*domain.StockEntry, error) {
	defer r.s.guard(r.inTx)()
	e, ok := r.s.st.stock[itemTypeID]
	if !ok {
		return nil, domain.NotFound("stock", itemTypeID)
	}
	if err := fn(&e); err != nil {
		return nil, err
	}
	e.UpdatedOn = r.s.now()
	r.s.st.stock[itemTypeID] = e
	out := e
	return &out, nil
}

func (r *stockRepo) Reserve(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	return r.mutate(itemTypeID, func(e *domain.StockEntry) error {
		if e.AvailableQuantity < qty {
			return domain.StockError(domain.ErrInsufficientStock, "stock", itemTypeID, itemTypeID, qty, e.AvailableQuantity)
		}
		e.AvailableQuantity -= qty
		e.OnRentQuantity += qty
		return nil
	})
}

func (r *stockRepo) Release(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	return r.mutate(itemTypeID, func(e *domain.StockEntry) error {
		if e.OnRentQuantity < qty {
			return domain.StockError(domain.ErrOverReturn, "stock", itemTypeID, itemTypeID, qty, e.OnRentQuantity)
		}
		e.OnRentQuantity -= qty
		e.AvailableQuantity += qty
		return nil
	})
}

func (r *stockRepo) WriteOff(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	return r.mutate(itemTypeID, func(e *domain.StockEntry) error {
		if e.OnRentQuantity < qty {
			return domain.StockError(domain.ErrOverReturn, "stock", itemTypeID, itemTypeID, qty, e.OnRentQuantity)
		}
		e.OnRentQuantity -= qty
		e.TotalQuantity -= qty
		return nil
	})
}

func (r *stockRepo) AddQuantity(ctx context.Context, itemTypeID string, delta int32) (*domain.StockEntry, error) {
	return r.mutate(itemTypeID, func(e *domain.StockEntry) error {
		if e.AvailableQuantity+delta < 0 {
			return domain.Validationf("total_quantity", "cannot remove %d units of %s, only %d available", -delta, itemTypeID, e.AvailableQuantity)
		}
		e.AvailableQuantity += delta
		e.TotalQuantity += delta
		return nil
	})
}

func (r *stockRepo) UpdatePricing(ctx context.Context, itemTypeID string, unitPriceCents, rentalRateCents int64) error {
	_, err := r.mutate(itemTypeID, func(e *domain.StockEntry) error {
		e.UnitPriceCents = unitPriceCents
		e.RentalRateCents = rentalRateCents
		return nil
	})
	return err
}

func (r *stockRepo) Delete(ctx context.Context, itemTypeID string) error {
	defer r.s.guard(r.inTx)()
	e, ok := r.s.st.stock[itemTypeID]
	if !ok {
		return domain.NotFound("stock", itemTypeID)
	}
	if e.OnRentQuantity > 0 {
		return domain.StockError(domain.ErrHasOpenItems, "stock", itemTypeID, itemTypeID, 0, e.OnRentQuantity)
	}
	delete(r.s.st.stock, itemTypeID)
	return nil
}
