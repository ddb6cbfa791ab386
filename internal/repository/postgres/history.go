package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository"
)

const historyColumns = `h.id, h.order_id, h.action_type, h.items, h.timestamp, h.created_on`

type historyRepository struct {
	db DBTX
}

func NewHistoryRepository(db DBTX) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func scanHistory(row scanner) (*domain.HistoryEntry, error) {
	h := &domain.HistoryEntry{}
	var items []byte
	if err := row.Scan(&h.ID, &h.OrderID, &h.ActionType, &items, &h.Timestamp, &h.CreatedOn); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &h.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of history %s: %w", h.ID, err)
		}
	}
	return h, nil
}

func (r *historyRepository) Create(ctx context.Context, h *domain.HistoryEntry) error {
	items, err := json.Marshal(h.Items)
	if err != nil {
		return err
	}
	h.CreatedOn = time.Now().UTC()
	query := `INSERT INTO order_history (id, order_id, action_type, items, timestamp, created_on) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, query, h.ID, h.OrderID, h.ActionType, items, h.Timestamp, h.CreatedOn)
	return classify(err)
}

func (r *historyRepository) Update(ctx context.Context, h *domain.HistoryEntry) error {
	items, err := json.Marshal(h.Items)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE order_history SET items = $1, timestamp = $2 WHERE id = $3`, items, h.Timestamp, h.ID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("history", h.ID)
	}
	return nil
}

func (r *historyRepository) GetByOrderAndAction(ctx context.Context, orderID string, action domain.ActionType) (*domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM order_history h WHERE h.order_id = $1 AND h.action_type = $2`
	h, err := scanHistory(r.db.QueryRowContext(ctx, query, orderID, action))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("history", orderID+"/"+string(action))
	}
	return h, err
}

func (r *historyRepository) query(ctx context.Context, query string, args ...any) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *h)
	}
	return entries, rows.Err()
}

func (r *historyRepository) ListByOrder(ctx context.Context, orderID string, action domain.ActionType) ([]domain.HistoryEntry, error) {
	if action == "" {
		return r.query(ctx, `SELECT `+historyColumns+` FROM order_history h WHERE h.order_id = $1 ORDER BY h.timestamp, h.id`, orderID)
	}
	return r.query(ctx, `SELECT `+historyColumns+` FROM order_history h WHERE h.order_id = $1 AND h.action_type = $2 ORDER BY h.timestamp, h.id`, orderID, action)
}

func (r *historyRepository) ListBySite(ctx context.Context, siteID string) ([]domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
	          FROM order_history h JOIN orders o ON o.id = h.order_id
	          WHERE o.site_id = $1 ORDER BY h.timestamp, h.id`
	return r.query(ctx, query, siteID)
}

func (r *historyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_history WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("history", id)
	}
	return nil
}

func (r *historyRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM order_history WHERE order_id = $1`, orderID)
	return classify(err)
}
