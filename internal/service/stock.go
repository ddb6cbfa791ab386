package service

import (
	"context"
	"errors"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

type stockService struct {
	store repository.Store
	tx    *txRunner
	cache Cache
}

func NewStockService(store repository.Store, opts Options) StockService {
	return newStockService(store, opts.withDefaults())
}

func newStockService(store repository.Store, opts Options) *stockService {
	return &stockService{
		store: store,
		tx:    &txRunner{store: store, maxRetries: opts.MaxRetries},
		cache: opts.Cache,
	}
}

func validateStockArgs(itemTypeID string, qty int32) error {
	if itemTypeID == "" {
		return domain.Validationf("item_type_id", "is required")
	}
	if qty <= 0 {
		return domain.Validationf("quantity", "must be positive, got %d", qty)
	}
	return nil
}

// The tx-scoped operations below are shared with the order service so that
// a stock move and the order write land in the same transaction.

func (s *stockService) reserve(ctx context.Context, tx repository.Tx, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	if err := validateStockArgs(itemTypeID, qty); err != nil {
		return nil, err
	}
	return tx.Stock().Reserve(ctx, itemTypeID, qty)
}

func (s *stockService) release(ctx context.Context, tx repository.Tx, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	if err := validateStockArgs(itemTypeID, qty); err != nil {
		return nil, err
	}
	return tx.Stock().Release(ctx, itemTypeID, qty)
}

func (s *stockService) adjustForLoss(ctx context.Context, tx repository.Tx, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	if err := validateStockArgs(itemTypeID, qty); err != nil {
		return nil, err
	}
	return tx.Stock().WriteOff(ctx, itemTypeID, qty)
}

func (s *stockService) changeReservation(ctx context.Context, tx repository.Tx, itemTypeID string, oldQty, newQty int32) (*domain.StockEntry, error) {
	if oldQty < 0 || newQty < 0 {
		return nil, domain.Validationf("quantity", "must not be negative")
	}
	switch diff := newQty - oldQty; {
	case diff > 0:
		return s.reserve(ctx, tx, itemTypeID, diff)
	case diff < 0:
		return s.release(ctx, tx, itemTypeID, -diff)
	default:
		return tx.Stock().Get(ctx, itemTypeID)
	}
}

// mutate runs a single-entry stock change in its own transaction.
func (s *stockService) mutate(ctx context.Context, op string, fn func(tx repository.Tx) (*domain.StockEntry, error)) (*domain.StockEntry, error) {
	logger.EnterMethod(op)
	var out *domain.StockEntry
	err := s.tx.run(ctx, op, func(tx repository.Tx) error {
		e, err := fn(tx)
		out = e
		return err
	})
	if err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}
	s.cache.InvalidateStock(ctx)
	logger.ExitMethod(op, "item_type_id", out.ItemTypeID, "available", out.AvailableQuantity, "on_rent", out.OnRentQuantity)
	return out, nil
}

func (s *stockService) Reserve(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	return s.mutate(ctx, "StockService.Reserve", func(tx repository.Tx) (*domain.StockEntry, error) {
		return s.reserve(ctx, tx, itemTypeID, qty)
	})
}

func (s *stockService) Release(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	return s.mutate(ctx, "StockService.Release", func(tx repository.Tx) (*domain.StockEntry, error) {
		return s.release(ctx, tx, itemTypeID, qty)
	})
}

func (s *stockService) AdjustForLoss(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	return s.mutate(ctx, "StockService.AdjustForLoss", func(tx repository.Tx) (*domain.StockEntry, error) {
		return s.adjustForLoss(ctx, tx, itemTypeID, qty)
	})
}

func (s *stockService) ChangeReservation(ctx context.Context, itemTypeID string, oldQty, newQty int32) (*domain.StockEntry, error) {
	return s.mutate(ctx, "StockService.ChangeReservation", func(tx repository.Tx) (*domain.StockEntry, error) {
		return s.changeReservation(ctx, tx, itemTypeID, oldQty, newQty)
	})
}

// AddStock creates the entry for a new item type or tops up an existing one.
// Non-zero prices overwrite the stored ones.
func (s *stockService) AddStock(ctx context.Context, itemTypeID string, qty int32, unitPriceCents, rentalRateCents int64) (*domain.StockEntry, error) {
	if itemTypeID == "" {
		return nil, domain.Validationf("item_type_id", "is required")
	}
	if qty < 0 {
		return nil, domain.Validationf("quantity", "must not be negative, got %d", qty)
	}
	if unitPriceCents < 0 || rentalRateCents < 0 {
		return nil, domain.Validationf("price", "must not be negative")
	}

	return s.mutate(ctx, "StockService.AddStock", func(tx repository.Tx) (*domain.StockEntry, error) {
		cur, err := tx.Stock().GetForUpdate(ctx, itemTypeID)
		if errors.Is(err, domain.ErrNotFound) {
			entry := &domain.StockEntry{
				ItemTypeID:        itemTypeID,
				TotalQuantity:     qty,
				AvailableQuantity: qty,
				UnitPriceCents:    unitPriceCents,
				RentalRateCents:   rentalRateCents,
			}
			if err := tx.Stock().Create(ctx, entry); err != nil {
				return nil, err
			}
			return entry, nil
		}
		if err != nil {
			return nil, err
		}

		if unitPriceCents > 0 || rentalRateCents > 0 {
			unit, rate := cur.UnitPriceCents, cur.RentalRateCents
			if unitPriceCents > 0 {
				unit = unitPriceCents
			}
			if rentalRateCents > 0 {
				rate = rentalRateCents
			}
			if err := tx.Stock().UpdatePricing(ctx, itemTypeID, unit, rate); err != nil {
				return nil, err
			}
		}
		if qty > 0 {
			return tx.Stock().AddQuantity(ctx, itemTypeID, qty)
		}
		return tx.Stock().Get(ctx, itemTypeID)
	})
}

// EditStock changes the total and prices. The total may not drop below the
// quantity currently on rent.
func (s *stockService) EditStock(ctx context.Context, itemTypeID string, update domain.StockUpdate) (*domain.StockEntry, error) {
	if itemTypeID == "" {
		return nil, domain.Validationf("item_type_id", "is required")
	}
	if update.TotalQuantity != nil && *update.TotalQuantity < 0 {
		return nil, domain.Validationf("total_quantity", "must not be negative")
	}
	if (update.UnitPriceCents != nil && *update.UnitPriceCents < 0) || (update.RentalRateCents != nil && *update.RentalRateCents < 0) {
		return nil, domain.Validationf("price", "must not be negative")
	}

	return s.mutate(ctx, "StockService.EditStock", func(tx repository.Tx) (*domain.StockEntry, error) {
		cur, err := tx.Stock().GetForUpdate(ctx, itemTypeID)
		if err != nil {
			return nil, err
		}

		if update.UnitPriceCents != nil || update.RentalRateCents != nil {
			unit, rate := cur.UnitPriceCents, cur.RentalRateCents
			if update.UnitPriceCents != nil {
				unit = *update.UnitPriceCents
			}
			if update.RentalRateCents != nil {
				rate = *update.RentalRateCents
			}
			if err := tx.Stock().UpdatePricing(ctx, itemTypeID, unit, rate); err != nil {
				return nil, err
			}
		}

		if update.TotalQuantity != nil {
			newTotal := *update.TotalQuantity
			if newTotal < cur.OnRentQuantity {
				return nil, domain.Validationf("total_quantity", "%d is below the %d units of %s on rent", newTotal, cur.OnRentQuantity, itemTypeID)
			}
			if delta := newTotal - cur.TotalQuantity; delta != 0 {
				return tx.Stock().AddQuantity(ctx, itemTypeID, delta)
			}
		}
		return tx.Stock().Get(ctx, itemTypeID)
	})
}

func (s *stockService) DeleteStock(ctx context.Context, itemTypeID string) error {
	logger.EnterMethod("StockService.DeleteStock", "item_type_id", itemTypeID)
	err := s.tx.run(ctx, "StockService.DeleteStock", func(tx repository.Tx) error {
		return tx.Stock().Delete(ctx, itemTypeID)
	})
	if err != nil {
		logger.ExitMethodWithError("StockService.DeleteStock", err, "item_type_id", itemTypeID)
		return err
	}
	s.cache.InvalidateStock(ctx)
	logger.ExitMethod("StockService.DeleteStock", "item_type_id", itemTypeID)
	return nil
}

func (s *stockService) GetStock(ctx context.Context, itemTypeID string) (*domain.StockEntry, error) {
	return s.store.Stock().Get(ctx, itemTypeID)
}

func (s *stockService) ListStock(ctx context.Context) ([]domain.StockEntry, error) {
	if entries, ok := s.cache.GetStockList(ctx); ok {
		return entries, nil
	}
	entries, err := s.store.Stock().List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetStockList(ctx, entries)
	return entries, nil
}
