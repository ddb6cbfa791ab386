package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

const stockColumns = `item_type_id, total_quantity, available_quantity, on_rent_quantity, unit_price_cents, rental_rate_cents, created_on, updated_on`

type stockRepository struct {
	db DBTX
}

func NewStockRepository(db DBTX) repository.StockRepository {
	return &stockRepository{db: db}
}

func scanStock(row scanner) (*domain.StockEntry, error) {
	e := &domain.StockEntry{}
	err := row.Scan(&e.ItemTypeID, &e.TotalQuantity, &e.AvailableQuantity, &e.OnRentQuantity, &e.UnitPriceCents, &e.RentalRateCents, &e.CreatedOn, &e.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *stockRepository) Create(ctx context.Context, entry *domain.StockEntry) error {
	query := `INSERT INTO stock_entries (` + stockColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	now := time.Now().UTC()
	entry.CreatedOn = now
	entry.UpdatedOn = now
	_, err := r.db.ExecContext(ctx, query, entry.ItemTypeID, entry.TotalQuantity, entry.AvailableQuantity, entry.OnRentQuantity, entry.UnitPriceCents, entry.RentalRateCents, now, now)
	return classify(err)
}

func (r *stockRepository) get(ctx context.Context, itemTypeID string, lock bool) (*domain.StockEntry, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_entries WHERE item_type_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	e, err := scanStock(r.db.QueryRowContext(ctx, query, itemTypeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("stock", itemTypeID)
	}
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

func (r *stockRepository) Get(ctx context.Context, itemTypeID string) (*domain.StockEntry, error) {
	return r.get(ctx, itemTypeID, false)
}

func (r *stockRepository) GetForUpdate(ctx context.Context, itemTypeID string) (*domain.StockEntry, error) {
	return r.get(ctx, itemTypeID, true)
}

func (r *stockRepository) List(ctx context.Context) ([]domain.StockEntry, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_entries ORDER BY item_type_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.StockEntry
	for rows.Next() {
		e, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// conditionalUpdate runs a guarded UPDATE ... RETURNING. When the guard
// rejects the row, the current row is read to tell a missing item type
// from a failed quantity check.
func (r *stockRepository) conditionalUpdate(ctx context.Context, op, query string, itemTypeID string, qty int32, reject func(cur *domain.StockEntry) error) (*domain.StockEntry, error) {
	logger.DatabaseCall(op, query, "item_type_id", itemTypeID, "qty", qty)
	e, err := scanStock(r.db.QueryRowContext(ctx, query, itemTypeID, qty, time.Now().UTC()))
	if err == nil {
		logger.DatabaseResult(op, 1, nil, "item_type_id", itemTypeID)
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult(op, 0, err, "item_type_id", itemTypeID)
		return nil, classify(err)
	}
	cur, err := r.Get(ctx, itemTypeID)
	if err != nil {
		return nil, err
	}
	return nil, reject(cur)
}

func (r *stockRepository) Reserve(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	query := `UPDATE stock_entries
	          SET available_quantity = available_quantity - $2, on_rent_quantity = on_rent_quantity + $2, updated_on = $3
	          WHERE item_type_id = $1 AND available_quantity >= $2
	          RETURNING ` + stockColumns
	return r.conditionalUpdate(ctx, "stock.reserve", query, itemTypeID, qty, func(cur *domain.StockEntry) error {
		return domain.StockError(domain.ErrInsufficientStock, "stock", itemTypeID, itemTypeID, qty, cur.AvailableQuantity)
	})
}

func (r *stockRepository) Release(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	query := `UPDATE stock_entries
	          SET on_rent_quantity = on_rent_quantity - $2, available_quantity = available_quantity + $2, updated_on = $3
	          WHERE item_type_id = $1 AND on_rent_quantity >= $2
	          RETURNING ` + stockColumns
	return r.conditionalUpdate(ctx, "stock.release", query, itemTypeID, qty, func(cur *domain.StockEntry) error {
		return domain.StockError(domain.ErrOverReturn, "stock", itemTypeID, itemTypeID, qty, cur.OnRentQuantity)
	})
}

func (r *stockRepository) WriteOff(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error) {
	query := `UPDATE stock_entries
	          SET on_rent_quantity = on_rent_quantity - $2, total_quantity = total_quantity - $2, updated_on = $3
	          WHERE item_type_id = $1 AND on_rent_quantity >= $2
	          RETURNING ` + stockColumns
	return r.conditionalUpdate(ctx, "stock.write_off", query, itemTypeID, qty, func(cur *domain.StockEntry) error {
		return domain.StockError(domain.ErrOverReturn, "stock", itemTypeID, itemTypeID, qty, cur.OnRentQuantity)
	})
}

func (r *stockRepository) AddQuantity(ctx context.Context, itemTypeID string, delta int32) (*domain.StockEntry, error) {
	query := `UPDATE stock_entries
	          SET total_quantity = total_quantity + $2, available_quantity = available_quantity + $2, updated_on = $3
	          WHERE item_type_id = $1 AND available_quantity + $2 >= 0
	          RETURNING ` + stockColumns
	return r.conditionalUpdate(ctx, "stock.add_quantity", query, itemTypeID, delta, func(cur *domain.StockEntry) error {
		return domain.Validationf("total_quantity", "cannot remove %d units of %s, only %d available", -delta, itemTypeID, cur.AvailableQuantity)
	})
}

func (r *stockRepository) UpdatePricing(ctx context.Context, itemTypeID string, unitPriceCents, rentalRateCents int64) error {
	query := `UPDATE stock_entries SET unit_price_cents = $2, rental_rate_cents = $3, updated_on = $4 WHERE item_type_id = $1`
	res, err := r.db.ExecContext(ctx, query, itemTypeID, unitPriceCents, rentalRateCents, time.Now().UTC())
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("stock", itemTypeID)
	}
	return nil
}

func (r *stockRepository) Delete(ctx context.Context, itemTypeID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stock_entries WHERE item_type_id = $1 AND on_rent_quantity = 0`, itemTypeID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	cur, err := r.Get(ctx, itemTypeID)
	if err != nil {
		return err
	}
	return domain.StockError(domain.ErrHasOpenItems, "stock", itemTypeID, itemTypeID, 0, cur.OnRentQuantity)
}
