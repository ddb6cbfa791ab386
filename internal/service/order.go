package service

import (
	"context"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

type orderService struct {
	store   repository.Store
	tx      *txRunner
	stock   *stockService
	history *historyService
	sites   *siteLedgerService
	cache   Cache
	now     func() time.Time
	newID   func() string
}

func NewOrderService(store repository.Store, opts Options) OrderService {
	opts = opts.withDefaults()
	return &orderService{
		store:   store,
		tx:      &txRunner{store: store, maxRetries: opts.MaxRetries},
		stock:   newStockService(store, opts),
		history: newHistoryService(store, opts),
		sites:   newSiteLedgerService(store, opts),
		cache:   opts.Cache,
		now:     opts.Now,
		newID:   opts.NewID,
	}
}

func validateLines(lines []domain.LineRequest) error {
	if len(lines) == 0 {
		return domain.Validationf("items", "at least one line item is required")
	}
	for i, l := range lines {
		if l.ItemTypeID == "" {
			return domain.Validationf("items", "line %d: item_type_id is required", i)
		}
		if l.Quantity <= 0 {
			return domain.Validationf("items", "line %d (%s): quantity must be positive, got %d", i, l.ItemTypeID, l.Quantity)
		}
	}
	return nil
}

func rentItems(o *domain.Order) []domain.HistoryItem {
	return domain.HistoryFromOrder(o)[domain.ActionRent]
}

// afterCommit drops the cached views touched by an order mutation.
func (s *orderService) afterCommit(ctx context.Context, siteID string) {
	s.cache.InvalidateSites(ctx, siteID)
	s.cache.InvalidateStock(ctx)
}

// CreateOrder reserves every line, assigns the next invoice number of the
// site, journals the rent and charges the site. Any failing line aborts
// the whole order.
func (s *orderService) CreateOrder(ctx context.Context, siteID, customerID string, lines []domain.LineRequest, orderDate time.Time) (*domain.Order, error) {
	logger.EnterMethod("OrderService.CreateOrder", "site_id", siteID, "customer_id", customerID, "lines", len(lines))
	if siteID == "" {
		return nil, domain.Validationf("site_id", "is required")
	}
	if customerID == "" {
		return nil, domain.Validationf("customer_id", "is required")
	}
	if err := validateLines(lines); err != nil {
		logger.ExitMethodWithError("OrderService.CreateOrder", err)
		return nil, err
	}
	merged := domain.MergeLineRequests(lines)
	if orderDate.IsZero() {
		orderDate = s.now()
	}

	var order *domain.Order
	err := s.tx.run(ctx, "OrderService.CreateOrder", func(tx repository.Tx) error {
		if _, err := s.sites.ensure(ctx, tx, siteID, customerID); err != nil {
			return err
		}

		o := &domain.Order{
			ID:         s.newID(),
			SiteID:     siteID,
			CustomerID: customerID,
			OrderDate:  orderDate,
		}
		for _, l := range merged {
			entry, err := s.stock.reserve(ctx, tx, l.ItemTypeID, l.Quantity)
			if err != nil {
				return err
			}
			rentedAt := orderDate
			if l.RentedAt != nil {
				rentedAt = *l.RentedAt
			}
			o.Items = append(o.Items, domain.LineItem{
				ItemTypeID:      l.ItemTypeID,
				QuantityRented:  l.Quantity,
				RentalRateCents: entry.RentalRateCents,
				RentedAt:        rentedAt,
			})
		}
		o.Recompute()

		invoice, err := s.sites.nextInvoiceNumber(ctx, tx, siteID)
		if err != nil {
			return err
		}
		o.InvoiceNumber = invoice

		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}
		if _, err := s.history.recordOrMerge(ctx, tx, o, domain.ActionRent, rentItems(o), orderDate); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}
		if _, err := s.sites.increase(ctx, tx, siteID, o.TotalCostCents); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("OrderService.CreateOrder", err, "site_id", siteID)
		return nil, err
	}

	s.afterCommit(ctx, siteID)
	logger.Info("Order created", "order_id", order.ID, "invoice", order.InvoiceNumber, "total_cost_cents", order.TotalCostCents)
	logger.ExitMethod("OrderService.CreateOrder", "order_id", order.ID)
	return order, nil
}

// EditOrder redefines the line items of an order. Quantities may not drop
// below what was already returned or lost on a line.
func (s *orderService) EditOrder(ctx context.Context, orderID string, lines []domain.LineRequest, orderDate time.Time) (*domain.Order, error) {
	logger.EnterMethod("OrderService.EditOrder", "order_id", orderID, "lines", len(lines))
	if err := validateLines(lines); err != nil {
		logger.ExitMethodWithError("OrderService.EditOrder", err, "order_id", orderID)
		return nil, err
	}
	merged := domain.MergeLineRequests(lines)

	var order *domain.Order
	err := s.tx.run(ctx, "OrderService.EditOrder", func(tx repository.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		diff := domain.DiffLines(o.Items, merged)

		for _, c := range append(append([]domain.LineChange(nil), diff.Changed...), diff.Removed...) {
			li := o.Line(c.ItemTypeID)
			settled := li.QuantityReturned + li.QuantityLost
			if c.NewQty < settled {
				return &domain.LedgerError{
					Kind:       domain.ErrInvalidEdit,
					Entity:     "order",
					ID:         orderID,
					ItemTypeID: c.ItemTypeID,
					Requested:  c.NewQty,
					Available:  settled,
					Message:    "quantity below already returned or lost",
				}
			}
		}

		if !orderDate.IsZero() {
			o.OrderDate = orderDate
		}
		requested := make(map[string]domain.LineRequest, len(merged))
		for _, l := range merged {
			requested[l.ItemTypeID] = l
		}

		for _, c := range diff.Changed {
			if _, err := s.stock.changeReservation(ctx, tx, c.ItemTypeID, c.OldQty, c.NewQty); err != nil {
				return err
			}
			o.Line(c.ItemTypeID).QuantityRented = c.NewQty
		}
		for _, c := range diff.Removed {
			if _, err := s.stock.release(ctx, tx, c.ItemTypeID, c.OldQty); err != nil {
				return err
			}
		}
		if len(diff.Removed) > 0 {
			removed := make(map[string]bool, len(diff.Removed))
			for _, c := range diff.Removed {
				removed[c.ItemTypeID] = true
			}
			kept := o.Items[:0]
			for _, li := range o.Items {
				if !removed[li.ItemTypeID] {
					kept = append(kept, li)
				}
			}
			o.Items = kept
		}
		for _, c := range diff.Added {
			entry, err := s.stock.reserve(ctx, tx, c.ItemTypeID, c.NewQty)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, domain.LineItem{
				ItemTypeID:      c.ItemTypeID,
				QuantityRented:  c.NewQty,
				RentalRateCents: entry.RentalRateCents,
				RentedAt:        o.OrderDate,
			})
		}
		for i := range o.Items {
			if r, ok := requested[o.Items[i].ItemTypeID]; ok && r.RentedAt != nil {
				o.Items[i].RentedAt = *r.RentedAt
			}
		}

		oldTotal := o.TotalCostCents
		o.Recompute()

		if _, err := s.history.rewrite(ctx, tx, o, domain.ActionRent, rentItems(o), o.OrderDate); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}
		if delta := o.TotalCostCents - oldTotal; delta != 0 {
			if _, err := s.sites.adjust(ctx, tx, o.SiteID, delta); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("OrderService.EditOrder", err, "order_id", orderID)
		return nil, err
	}

	s.afterCommit(ctx, order.SiteID)
	logger.ExitMethod("OrderService.EditOrder", "order_id", orderID, "total_cost_cents", order.TotalCostCents, "status", order.Status)
	return order, nil
}

// ReturnItems moves returned quantities back to stock and credits the site
// with the rate of every returned unit. Zero quantities are ignored.
func (s *orderService) ReturnItems(ctx context.Context, orderID string, items []domain.ReturnRequest) (*domain.Order, error) {
	logger.EnterMethod("OrderService.ReturnItems", "order_id", orderID, "items", len(items))
	merged := make([]domain.ReturnRequest, 0, len(items))
	idx := make(map[string]int, len(items))
	for i, it := range items {
		if it.ItemTypeID == "" {
			return nil, domain.Validationf("items", "line %d: item_type_id is required", i)
		}
		if it.Quantity < 0 {
			return nil, domain.Validationf("items", "line %d (%s): quantity must not be negative", i, it.ItemTypeID)
		}
		if j, ok := idx[it.ItemTypeID]; ok {
			merged[j].Quantity += it.Quantity
			continue
		}
		idx[it.ItemTypeID] = len(merged)
		merged = append(merged, it)
	}

	var order *domain.Order
	err := s.tx.run(ctx, "OrderService.ReturnItems", func(tx repository.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := s.now()
		var credit int64
		var journal []domain.HistoryItem
		for _, r := range merged {
			if r.Quantity == 0 {
				continue
			}
			li := o.Line(r.ItemTypeID)
			remaining := int32(0)
			if li != nil {
				remaining = li.Outstanding()
			}
			if r.Quantity > remaining {
				return domain.StockError(domain.ErrInvalidReturn, "order", orderID, r.ItemTypeID, r.Quantity, remaining)
			}
			if _, err := s.stock.release(ctx, tx, r.ItemTypeID, r.Quantity); err != nil {
				return err
			}
			li.QuantityReturned += r.Quantity
			returnedAt := now
			li.ReturnedAt = &returnedAt
			credit += li.RentalRateCents * int64(r.Quantity)

			rentedAt := li.RentedAt
			journal = append(journal, domain.HistoryItem{
				ItemTypeID: r.ItemTypeID,
				Quantity:   r.Quantity,
				RentedAt:   &rentedAt,
				ReturnedAt: &returnedAt,
			})
		}
		if len(journal) == 0 {
			order = o
			return nil
		}

		o.Recompute()
		if _, err := s.history.recordOrMerge(ctx, tx, o, domain.ActionReturn, journal, now); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}
		if _, err := s.sites.decrease(ctx, tx, o.SiteID, credit); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("OrderService.ReturnItems", err, "order_id", orderID)
		return nil, err
	}

	s.afterCommit(ctx, order.SiteID)
	logger.ExitMethod("OrderService.ReturnItems", "order_id", orderID, "status", order.Status, "total_cost_cents", order.TotalCostCents)
	return order, nil
}

// RecordLoss writes off lost units and charges them to the order. A zero
// price bills the replacement price of the item type.
func (s *orderService) RecordLoss(ctx context.Context, orderID, itemTypeID string, qty int32, pricePerItemCents int64, date time.Time) (*domain.Order, error) {
	logger.EnterMethod("OrderService.RecordLoss", "order_id", orderID, "item_type_id", itemTypeID, "qty", qty)
	if itemTypeID == "" {
		return nil, domain.Validationf("item_type_id", "is required")
	}
	if qty <= 0 {
		return nil, domain.Validationf("quantity", "must be positive, got %d", qty)
	}
	if pricePerItemCents < 0 {
		return nil, domain.Validationf("price_per_item", "must not be negative")
	}
	if date.IsZero() {
		date = s.now()
	}

	var order *domain.Order
	err := s.tx.run(ctx, "OrderService.RecordLoss", func(tx repository.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		li := o.Line(itemTypeID)
		remaining := int32(0)
		if li != nil {
			remaining = li.Outstanding()
		}
		if qty > remaining {
			return domain.StockError(domain.ErrExceedsRemaining, "order", orderID, itemTypeID, qty, remaining)
		}

		price := pricePerItemCents
		if price == 0 {
			entry, err := tx.Stock().Get(ctx, itemTypeID)
			if err != nil {
				return err
			}
			price = entry.UnitPriceCents
		}
		if _, err := s.stock.adjustForLoss(ctx, tx, itemTypeID, qty); err != nil {
			return err
		}

		charge := price * int64(qty)
		lostAt := date
		li.QuantityLost += qty
		li.LossChargeCents += charge
		li.LostAt = &lostAt
		o.Recompute()

		rentedAt := li.RentedAt
		journal := []domain.HistoryItem{{
			ItemTypeID: itemTypeID,
			Quantity:   qty,
			PriceCents: price,
			RentedAt:   &rentedAt,
			ReturnedAt: &lostAt,
		}}
		if _, err := s.history.recordOrMerge(ctx, tx, o, domain.ActionLoss, journal, date); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}
		if _, err := s.sites.increase(ctx, tx, o.SiteID, charge); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("OrderService.RecordLoss", err, "order_id", orderID)
		return nil, err
	}

	s.afterCommit(ctx, order.SiteID)
	logger.ExitMethod("OrderService.RecordLoss", "order_id", orderID, "total_cost_cents", order.TotalCostCents)
	return order, nil
}

// DeleteOrder removes a settled order together with its journal and its
// cost on the site. Payments stay on the site but lose the order link.
func (s *orderService) DeleteOrder(ctx context.Context, orderID string) error {
	logger.EnterMethod("OrderService.DeleteOrder", "order_id", orderID)
	var siteID string
	err := s.tx.run(ctx, "OrderService.DeleteOrder", func(tx repository.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		for _, li := range o.Items {
			if n := li.Outstanding(); n > 0 {
				return domain.StockError(domain.ErrHasOpenItems, "order", orderID, li.ItemTypeID, 0, n)
			}
		}

		if err := tx.History().DeleteByOrder(ctx, orderID); err != nil {
			return err
		}
		if err := tx.Payments().UnlinkOrder(ctx, orderID); err != nil {
			return err
		}
		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			return err
		}
		if o.TotalCostCents != 0 {
			if _, err := s.sites.adjust(ctx, tx, o.SiteID, -o.TotalCostCents); err != nil {
				return err
			}
		}
		siteID = o.SiteID
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("OrderService.DeleteOrder", err, "order_id", orderID)
		return err
	}

	s.afterCommit(ctx, siteID)
	logger.Info("Order deleted", "order_id", orderID, "site_id", siteID)
	logger.ExitMethod("OrderService.DeleteOrder", "order_id", orderID)
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.store.Orders().Get(ctx, orderID)
}

func (s *orderService) ListOrdersBySite(ctx context.Context, siteID string) ([]domain.Order, error) {
	return s.store.Orders().ListBySite(ctx, siteID)
}

func (s *orderService) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.store.Orders().ListByCustomer(ctx, customerID)
}

// ListRentedItems returns the lines that still have units out.
func (s *orderService) ListRentedItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	o, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var out []domain.LineItem
	for _, li := range o.Items {
		if li.Outstanding() > 0 {
			out = append(out, li)
		}
	}
	return out, nil
}

// ListReturnedItems returns the lines with at least one unit back.
func (s *orderService) ListReturnedItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	o, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var out []domain.LineItem
	for _, li := range o.Items {
		if li.QuantityReturned > 0 {
			out = append(out, li)
		}
	}
	return out, nil
}
