package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository"
)

const siteColumns = `site_id, customer_id, due_amount_cents, invoice_counter, invoice_prefix, created_on, updated_on`

type siteLedgerRepository struct {
	db DBTX
}

func NewSiteLedgerRepository(db DBTX) repository.SiteLedgerRepository {
	return &siteLedgerRepository{db: db}
}

func scanSite(row scanner) (*domain.SiteLedger, error) {
	l := &domain.SiteLedger{}
	if err := row.Scan(&l.SiteID, &l.CustomerID, &l.DueAmountCents, &l.InvoiceCounter, &l.InvoicePrefix, &l.CreatedOn, &l.UpdatedOn); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *siteLedgerRepository) Ensure(ctx context.Context, siteID, customerID, invoicePrefix string) (*domain.SiteLedger, error) {
	query := `INSERT INTO site_ledgers (` + siteColumns + `)
	          VALUES ($1, $2, 0, 0, $3, $4, $4)
	          ON CONFLICT (site_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, siteID, customerID, invoicePrefix, time.Now().UTC()); err != nil {
		return nil, classify(err)
	}
	l, err := r.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && l.CustomerID != customerID {
		return nil, domain.Validationf("customer_id", "site %s belongs to customer %s, not %s", siteID, l.CustomerID, customerID)
	}
	return l, nil
}

func (r *siteLedgerRepository) Get(ctx context.Context, siteID string) (*domain.SiteLedger, error) {
	l, err := scanSite(r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM site_ledgers WHERE site_id = $1`, siteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("site", siteID)
	}
	return l, err
}

func (r *siteLedgerRepository) List(ctx context.Context) ([]domain.SiteLedger, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM site_ledgers ORDER BY site_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []domain.SiteLedger
	for rows.Next() {
		l, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, *l)
	}
	return ledgers, rows.Err()
}

func (r *siteLedgerRepository) AdjustDue(ctx context.Context, siteID string, deltaCents int64) (int64, error) {
	query := `UPDATE site_ledgers SET due_amount_cents = due_amount_cents + $2, updated_on = $3
	          WHERE site_id = $1 RETURNING due_amount_cents`
	var due int64
	err := r.db.QueryRowContext(ctx, query, siteID, deltaCents, time.Now().UTC()).Scan(&due)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFound("site", siteID)
	}
	return due, classify(err)
}

func (r *siteLedgerRepository) SetDue(ctx context.Context, siteID string, dueCents int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE site_ledgers SET due_amount_cents = $2, updated_on = $3 WHERE site_id = $1`, siteID, dueCents, time.Now().UTC())
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("site", siteID)
	}
	return nil
}

func (r *siteLedgerRepository) NextInvoiceCounter(ctx context.Context, siteID string) (int64, string, error) {
	query := `UPDATE site_ledgers SET invoice_counter = invoice_counter + 1, updated_on = $2
	          WHERE site_id = $1 RETURNING invoice_counter, invoice_prefix`
	var counter int64
	var prefix string
	err := r.db.QueryRowContext(ctx, query, siteID, time.Now().UTC()).Scan(&counter, &prefix)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", domain.NotFound("site", siteID)
	}
	if err != nil {
		return 0, "", classify(err)
	}
	return counter, prefix, nil
}
