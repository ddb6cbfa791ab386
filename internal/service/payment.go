package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

type paymentService struct {
	store repository.Store
	tx    *txRunner
	sites *siteLedgerService
	cache Cache
	now   func() time.Time
	newID func() string
}

func NewPaymentService(store repository.Store, opts Options) PaymentService {
	opts = opts.withDefaults()
	return &paymentService{
		store: store,
		tx:    &txRunner{store: store, maxRetries: opts.MaxRetries},
		sites: newSiteLedgerService(store, opts),
		cache: opts.Cache,
		now:   opts.Now,
		newID: opts.NewID,
	}
}

func validateNewPayment(in domain.NewPayment) error {
	if in.SiteID == "" {
		return domain.Validationf("site_id", "is required")
	}
	if in.CustomerID == "" {
		return domain.Validationf("customer_id", "is required")
	}
	if in.AmountCents <= 0 {
		return domain.Validationf("amount", "must be positive, got %d", in.AmountCents)
	}
	if in.Method == "" {
		return domain.Validationf("method", "is required")
	}
	if !in.Method.Valid() {
		return domain.Validationf("method", "unsupported payment method %q", in.Method)
	}
	if strings.TrimSpace(in.Type) == "" {
		return domain.Validationf("type", "is required")
	}
	if in.OrderID != nil && *in.OrderID == "" {
		return domain.Validationf("order_id", "must not be empty when given")
	}
	return nil
}

func validatePaymentUpdate(u domain.PaymentUpdate) error {
	if u.AmountCents != nil && *u.AmountCents <= 0 {
		return domain.Validationf("amount", "must be positive, got %d", *u.AmountCents)
	}
	if u.Method != nil && !u.Method.Valid() {
		return domain.Validationf("method", "unsupported payment method %q", *u.Method)
	}
	if u.Type != nil && strings.TrimSpace(*u.Type) == "" {
		return domain.Validationf("type", "must not be empty")
	}
	return nil
}

// applyToOrder changes the paid amount of the linked order by delta. A
// payment whose order is gone is left alone.
func (s *paymentService) applyToOrder(ctx context.Context, tx repository.Tx, p *domain.PaymentRecord, delta int64, unlink bool) error {
	if p.OrderID == nil {
		return nil
	}
	o, err := tx.Orders().GetForUpdate(ctx, *p.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	o.PaidCents += delta
	if unlink {
		o.UnlinkPayment(p.ID)
	} else {
		o.LinkPayment(p.ID)
	}
	o.Recompute()
	return tx.Orders().Update(ctx, o)
}

// AddPayment records a settlement and credits the site. When an order is
// given the payment counts towards that order's paid amount.
func (s *paymentService) AddPayment(ctx context.Context, in domain.NewPayment) (*domain.PaymentRecord, error) {
	logger.EnterMethod("PaymentService.AddPayment", "site_id", in.SiteID, "amount_cents", in.AmountCents)
	if err := validateNewPayment(in); err != nil {
		logger.ExitMethodWithError("PaymentService.AddPayment", err, "site_id", in.SiteID)
		return nil, err
	}
	date := s.now()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}

	var payment *domain.PaymentRecord
	err := s.tx.run(ctx, "PaymentService.AddPayment", func(tx repository.Tx) error {
		if in.OrderID != nil {
			o, err := tx.Orders().Get(ctx, *in.OrderID)
			if err != nil {
				return err
			}
			if o.SiteID != in.SiteID {
				return domain.Validationf("order_id", "order %s belongs to site %s, not %s", o.ID, o.SiteID, in.SiteID)
			}
		}
		if _, err := s.sites.ensure(ctx, tx, in.SiteID, in.CustomerID); err != nil {
			return err
		}

		var orderID *string
		if in.OrderID != nil {
			id := *in.OrderID
			orderID = &id
		}
		p := &domain.PaymentRecord{
			ID:            s.newID(),
			SiteID:        in.SiteID,
			OrderID:       orderID,
			CustomerID:    in.CustomerID,
			AmountCents:   in.AmountCents,
			Method:        in.Method,
			Type:          strings.TrimSpace(in.Type),
			TransactionID: in.TransactionID,
			Remarks:       in.Remarks,
			Date:          date,
		}
		if err := tx.Payments().Create(ctx, p); err != nil {
			return err
		}
		if err := s.applyToOrder(ctx, tx, p, p.AmountCents, false); err != nil {
			return err
		}
		if _, err := s.sites.decrease(ctx, tx, p.SiteID, p.AmountCents); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("PaymentService.AddPayment", err, "site_id", in.SiteID)
		return nil, err
	}

	s.cache.InvalidateSites(ctx, payment.SiteID)
	logger.Info("Payment recorded", "payment_id", payment.ID, "site_id", payment.SiteID, "amount_cents", payment.AmountCents)
	logger.ExitMethod("PaymentService.AddPayment", "payment_id", payment.ID)
	return payment, nil
}

// EditPayment corrects a payment. The site and order are re-balanced by the
// difference between the new and the old amount.
func (s *paymentService) EditPayment(ctx context.Context, paymentID string, update domain.PaymentUpdate) (*domain.PaymentRecord, error) {
	logger.EnterMethod("PaymentService.EditPayment", "payment_id", paymentID)
	if err := validatePaymentUpdate(update); err != nil {
		logger.ExitMethodWithError("PaymentService.EditPayment", err, "payment_id", paymentID)
		return nil, err
	}

	var payment *domain.PaymentRecord
	err := s.tx.run(ctx, "PaymentService.EditPayment", func(tx repository.Tx) error {
		p, err := tx.Payments().GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		oldAmount := p.AmountCents

		if update.AmountCents != nil {
			p.AmountCents = *update.AmountCents
		}
		if update.Method != nil {
			p.Method = *update.Method
		}
		if update.Type != nil {
			p.Type = strings.TrimSpace(*update.Type)
		}
		if update.TransactionID != nil {
			p.TransactionID = *update.TransactionID
		}
		if update.Remarks != nil {
			p.Remarks = *update.Remarks
		}
		if update.Date != nil {
			p.Date = *update.Date
		}

		if err := tx.Payments().Update(ctx, p); err != nil {
			return err
		}
		delta := p.AmountCents - oldAmount
		if delta != 0 {
			if err := s.applyToOrder(ctx, tx, p, delta, false); err != nil {
				return err
			}
			if _, err := s.sites.adjust(ctx, tx, p.SiteID, -delta); err != nil {
				return err
			}
		}
		payment = p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("PaymentService.EditPayment", err, "payment_id", paymentID)
		return nil, err
	}

	s.cache.InvalidateSites(ctx, payment.SiteID)
	logger.ExitMethod("PaymentService.EditPayment", "payment_id", paymentID, "amount_cents", payment.AmountCents)
	return payment, nil
}

// DeletePayment removes a payment and charges its amount back to the site.
func (s *paymentService) DeletePayment(ctx context.Context, paymentID string) error {
	logger.EnterMethod("PaymentService.DeletePayment", "payment_id", paymentID)
	var siteID string
	err := s.tx.run(ctx, "PaymentService.DeletePayment", func(tx repository.Tx) error {
		p, err := tx.Payments().GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.applyToOrder(ctx, tx, p, -p.AmountCents, true); err != nil {
			return err
		}
		if err := tx.Payments().Delete(ctx, paymentID); err != nil {
			return err
		}
		if _, err := s.sites.increase(ctx, tx, p.SiteID, p.AmountCents); err != nil {
			return err
		}
		siteID = p.SiteID
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("PaymentService.DeletePayment", err, "payment_id", paymentID)
		return err
	}

	s.cache.InvalidateSites(ctx, siteID)
	logger.ExitMethod("PaymentService.DeletePayment", "payment_id", paymentID)
	return nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	return s.store.Payments().Get(ctx, paymentID)
}

func (s *paymentService) ListPaymentsBySite(ctx context.Context, siteID string) ([]domain.PaymentRecord, error) {
	return s.store.Payments().ListBySite(ctx, siteID)
}

func (s *paymentService) ListPaymentsByOrder(ctx context.Context, orderID string) ([]domain.PaymentRecord, error) {
	return s.store.Payments().ListByOrder(ctx, orderID)
}
