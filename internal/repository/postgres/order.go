package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

const orderColumns = `id, site_id, customer_id, invoice_number, items, total_cost_cents, paid_cents, payment_done, status, order_date, history_ids, payment_ids, version, created_on, updated_on`

type orderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) repository.OrderRepository {
	return &orderRepository{db: db}
}

func scanOrder(row scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var items []byte
	var historyIDs, paymentIDs pq.StringArray
	err := row.Scan(&o.ID, &o.SiteID, &o.CustomerID, &o.InvoiceNumber, &items, &o.TotalCostCents, &o.PaidCents, &o.PaymentDone, &o.Status, &o.OrderDate, &historyIDs, &paymentIDs, &o.Version, &o.CreatedOn, &o.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of order %s: %w", o.ID, err)
		}
	}
	o.HistoryIDs = []string(historyIDs)
	o.PaymentIDs = []string(paymentIDs)
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14)`
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, query, o.ID, o.SiteID, o.CustomerID, o.InvoiceNumber, items, o.TotalCostCents, o.PaidCents, o.PaymentDone, o.Status, o.OrderDate, pq.Array(o.HistoryIDs), pq.Array(o.PaymentIDs), now, now)
	if err != nil {
		return classify(err)
	}
	o.Version = 1
	o.CreatedOn = now
	o.UpdatedOn = now
	return nil
}

func (r *orderRepository) get(ctx context.Context, id string, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("order", id)
	}
	if err != nil {
		return nil, classify(err)
	}
	return o, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, false)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, true)
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	query := `UPDATE orders
	          SET invoice_number = $1, items = $2, total_cost_cents = $3, paid_cents = $4, payment_done = $5, status = $6,
	              order_date = $7, history_ids = $8, payment_ids = $9, version = version + 1, updated_on = $10
	          WHERE id = $11 AND version = $12`
	now := time.Now().UTC()
	logger.DatabaseCall("orders.update", query, "order_id", o.ID, "version", o.Version)
	res, err := r.db.ExecContext(ctx, query, o.InvoiceNumber, items, o.TotalCostCents, o.PaidCents, o.PaymentDone, o.Status, o.OrderDate, pq.Array(o.HistoryIDs), pq.Array(o.PaymentIDs), now, o.ID, o.Version)
	if err != nil {
		logger.DatabaseResult("orders.update", 0, err, "order_id", o.ID)
		return classify(err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("orders.update", n, nil, "order_id", o.ID)
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return classify(err)
		}
		if !exists {
			return domain.NotFound("order", o.ID)
		}
		return domain.Conflict("order", o.ID, "order was modified concurrently")
	}
	o.Version++
	o.UpdatedOn = now
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("order", id)
	}
	return nil
}

func (r *orderRepository) list(ctx context.Context, where string, arg any) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where + ` = $1 ORDER BY order_date DESC, id`
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) ListBySite(ctx context.Context, siteID string) ([]domain.Order, error) {
	return r.list(ctx, "site_id", siteID)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.list(ctx, "customer_id", customerID)
}

func (r *orderRepository) SumCostBySite(ctx context.Context, siteID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_cost_cents), 0) FROM orders WHERE site_id = $1`, siteID).Scan(&total)
	return total, err
}
