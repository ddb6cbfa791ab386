package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository"
)

const paymentColumns = `id, site_id, order_id, customer_id, amount_cents, method, type, transaction_id, remarks, date, created_on, updated_on`

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanPayment(row scanner) (*domain.PaymentRecord, error) {
	p := &domain.PaymentRecord{}
	var orderID sql.NullString
	err := row.Scan(&p.ID, &p.SiteID, &orderID, &p.CustomerID, &p.AmountCents, &p.Method, &p.Type, &p.TransactionID, &p.Remarks, &p.Date, &p.CreatedOn, &p.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		p.OrderID = &orderID.String
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query, p.ID, p.SiteID, p.OrderID, p.CustomerID, p.AmountCents, p.Method, p.Type, p.TransactionID, p.Remarks, p.Date, now)
	if err != nil {
		return classify(err)
	}
	p.CreatedOn = now
	p.UpdatedOn = now
	return nil
}

func (r *paymentRepository) get(ctx context.Context, id string, lock bool) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("payment", id)
	}
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate holds the row lock until the transaction ends, so the amount
// read here is the one any concurrent edit or delete waits behind.
func (r *paymentRepository) GetForUpdate(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	return r.get(ctx, id, true)
}

func (r *paymentRepository) Update(ctx context.Context, p *domain.PaymentRecord) error {
	query := `UPDATE payments SET order_id = $1, amount_cents = $2, method = $3, type = $4, transaction_id = $5, remarks = $6, date = $7, updated_on = $8
	          WHERE id = $9`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, p.OrderID, p.AmountCents, p.Method, p.Type, p.TransactionID, p.Remarks, p.Date, now, p.ID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("payment", p.ID)
	}
	p.UpdatedOn = now
	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("payment", id)
	}
	return nil
}

func (r *paymentRepository) list(ctx context.Context, where string, arg any) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+where+` = $1 ORDER BY date DESC, id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) ListBySite(ctx context.Context, siteID string) ([]domain.PaymentRecord, error) {
	return r.list(ctx, "site_id", siteID)
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentRecord, error) {
	return r.list(ctx, "order_id", orderID)
}

func (r *paymentRepository) UnlinkOrder(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payments SET order_id = NULL, updated_on = $2 WHERE order_id = $1`, orderID, time.Now().UTC())
	return classify(err)
}

func (r *paymentRepository) SumBySite(ctx context.Context, siteID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE site_id = $1`, siteID).Scan(&total)
	return total, err
}
