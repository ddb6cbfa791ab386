package service

import (
	"context"
	"errors"
	"fmt"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/metrics"
	"siterent-backend/internal/repository"
)

type siteLedgerService struct {
	store                repository.Store
	tx                   *txRunner
	cache                Cache
	invoicePrefix        string
	allowNegativeBalance bool
}

func NewSiteLedgerService(store repository.Store, opts Options) SiteLedgerService {
	return newSiteLedgerService(store, opts.withDefaults())
}

func newSiteLedgerService(store repository.Store, opts Options) *siteLedgerService {
	return &siteLedgerService{
		store:                store,
		tx:                   &txRunner{store: store, maxRetries: opts.MaxRetries},
		cache:                opts.Cache,
		invoicePrefix:        opts.InvoicePrefix,
		allowNegativeBalance: opts.AllowNegativeBalance,
	}
}

func (s *siteLedgerService) ensure(ctx context.Context, tx repository.Tx, siteID, customerID string) (*domain.SiteLedger, error) {
	return tx.Sites().Ensure(ctx, siteID, customerID, s.invoicePrefix)
}

// adjust applies a relative change to the due amount. A result below zero
// is kept and reported, never clamped.
func (s *siteLedgerService) adjust(ctx context.Context, tx repository.Tx, siteID string, deltaCents int64) (int64, error) {
	due, err := tx.Sites().AdjustDue(ctx, siteID, deltaCents)
	if err != nil {
		return 0, err
	}
	if due < 0 && !s.allowNegativeBalance {
		logger.Warn("Site balance below zero", "site_id", siteID, "due_amount_cents", due, "delta_cents", deltaCents)
	}
	return due, nil
}

func (s *siteLedgerService) increase(ctx context.Context, tx repository.Tx, siteID string, amountCents int64) (int64, error) {
	if amountCents < 0 {
		return 0, domain.Validationf("amount", "must not be negative, got %d", amountCents)
	}
	return s.adjust(ctx, tx, siteID, amountCents)
}

func (s *siteLedgerService) decrease(ctx context.Context, tx repository.Tx, siteID string, amountCents int64) (int64, error) {
	if amountCents < 0 {
		return 0, domain.Validationf("amount", "must not be negative, got %d", amountCents)
	}
	return s.adjust(ctx, tx, siteID, -amountCents)
}

func (s *siteLedgerService) nextInvoiceNumber(ctx context.Context, tx repository.Tx, siteID string) (string, error) {
	counter, prefix, err := tx.Sites().NextInvoiceCounter(ctx, siteID)
	if err != nil {
		return "", err
	}
	return domain.FormatInvoiceNumber(prefix, counter), nil
}

func (s *siteLedgerService) Increase(ctx context.Context, siteID string, amountCents int64) (int64, error) {
	var due int64
	err := s.tx.run(ctx, "SiteLedgerService.Increase", func(tx repository.Tx) error {
		var err error
		due, err = s.increase(ctx, tx, siteID, amountCents)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateSites(ctx, siteID)
	return due, nil
}

func (s *siteLedgerService) Decrease(ctx context.Context, siteID string, amountCents int64) (int64, error) {
	var due int64
	err := s.tx.run(ctx, "SiteLedgerService.Decrease", func(tx repository.Tx) error {
		var err error
		due, err = s.decrease(ctx, tx, siteID, amountCents)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateSites(ctx, siteID)
	return due, nil
}

func (s *siteLedgerService) NextInvoiceNumber(ctx context.Context, siteID string) (string, error) {
	var invoice string
	err := s.tx.run(ctx, "SiteLedgerService.NextInvoiceNumber", func(tx repository.Tx) error {
		var err error
		invoice, err = s.nextInvoiceNumber(ctx, tx, siteID)
		return err
	})
	if err != nil {
		return "", err
	}
	s.cache.InvalidateSites(ctx, siteID)
	return invoice, nil
}

func (s *siteLedgerService) GetSiteBalance(ctx context.Context, siteID string) (*domain.SiteBalance, error) {
	if b, ok := s.cache.GetSiteBalance(ctx, siteID); ok {
		return b, nil
	}
	l, err := s.store.Sites().Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	b := &domain.SiteBalance{
		SiteID:         l.SiteID,
		DueAmountCents: l.DueAmountCents,
		InvoiceCounter: l.InvoiceCounter,
	}
	s.cache.SetSiteBalance(ctx, b)
	return b, nil
}

func (s *siteLedgerService) ListSites(ctx context.Context) ([]domain.SiteLedger, error) {
	return s.store.Sites().List(ctx)
}

// RecomputeSiteBalance derives the due amount from Σ order cost − Σ payments
// and overwrites the stored value when they differ.
func (s *siteLedgerService) RecomputeSiteBalance(ctx context.Context, siteID string) (*domain.Reconciliation, error) {
	logger.EnterMethod("SiteLedgerService.RecomputeSiteBalance", "site_id", siteID)
	var rec *domain.Reconciliation
	err := s.tx.run(ctx, "SiteLedgerService.RecomputeSiteBalance", func(tx repository.Tx) error {
		l, err := tx.Sites().Get(ctx, siteID)
		if err != nil {
			return err
		}
		cost, err := tx.Orders().SumCostBySite(ctx, siteID)
		if err != nil {
			return fmt.Errorf("failed to sum order cost for site %s: %w", siteID, err)
		}
		paid, err := tx.Payments().SumBySite(ctx, siteID)
		if err != nil {
			return fmt.Errorf("failed to sum payments for site %s: %w", siteID, err)
		}

		computed := cost - paid
		rec = &domain.Reconciliation{
			SiteID:        siteID,
			StoredCents:   l.DueAmountCents,
			ComputedCents: computed,
			DriftCents:    l.DueAmountCents - computed,
		}
		if rec.DriftCents == 0 {
			return nil
		}
		rec.Repaired = true
		return tx.Sites().SetDue(ctx, siteID, computed)
	})
	if err != nil {
		logger.ExitMethodWithError("SiteLedgerService.RecomputeSiteBalance", err, "site_id", siteID)
		return nil, err
	}

	metrics.BalanceDriftCents.WithLabelValues(siteID).Set(float64(rec.DriftCents))
	if rec.Repaired {
		logger.Warn("Site balance drift repaired", "site_id", siteID, "stored_cents", rec.StoredCents, "computed_cents", rec.ComputedCents)
		s.cache.InvalidateSites(ctx, siteID)
	}
	logger.ExitMethod("SiteLedgerService.RecomputeSiteBalance", "site_id", siteID, "drift_cents", rec.DriftCents)
	return rec, nil
}

// ReconcileAll recomputes every site. A failing site does not stop the run;
// the failures are joined into the returned error.
func (s *siteLedgerService) ReconcileAll(ctx context.Context) ([]domain.Reconciliation, error) {
	ledgers, err := s.store.Sites().List(ctx)
	if err != nil {
		return nil, err
	}

	var results []domain.Reconciliation
	var errs []error
	for _, l := range ledgers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		rec, err := s.RecomputeSiteBalance(ctx, l.SiteID)
		if err != nil {
			errs = append(errs, fmt.Errorf("site %s: %w", l.SiteID, err))
			continue
		}
		results = append(results, *rec)
	}
	return results, errors.Join(errs...)
}
