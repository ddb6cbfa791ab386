package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type repos struct {
	stock    repository.StockRepository
	orders   repository.OrderRepository
	history  repository.HistoryRepository
	sites    repository.SiteLedgerRepository
	payments repository.PaymentRepository
}

func newRepos(db DBTX) repos {
	return repos{
		stock:    NewStockRepository(db),
		orders:   NewOrderRepository(db),
		history:  NewHistoryRepository(db),
		sites:    NewSiteLedgerRepository(db),
		payments: NewPaymentRepository(db),
	}
}

func (r repos) Stock() repository.StockRepository      { return r.stock }
func (r repos) Orders() repository.OrderRepository     { return r.orders }
func (r repos) History() repository.HistoryRepository  { return r.history }
func (r repos) Sites() repository.SiteLedgerRepository { return r.sites }
func (r repos) Payments() repository.PaymentRepository { return r.payments }

type Store struct {
	db *sql.DB
	repos
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		repos: newRepos(db),
	}
}

// Open connects with the named driver ("postgres" for lib/pq, "pgx" for the
// pgx stdlib driver) and applies the pool settings.
func Open(driver, dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	return db, nil
}

// WithTx runs fn inside one database transaction. The transaction commits
// only if fn returns nil. Serialization failures and deadlocks come back as
// domain.ErrStorageConflict.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	defer sqlTx.Rollback()

	if err := fn(newRepos(sqlTx)); err != nil {
		return classify(err)
	}
	if err := sqlTx.Commit(); err != nil {
		logger.Error("transaction commit failed", "error", err)
		return classify(err)
	}
	return nil
}

// classify maps driver errors onto ledger error kinds. Errors that already
// carry a kind pass through unchanged.
func classify(err error) error {
	if err == nil || domain.KindOf(err) != nil {
		return err
	}
	var code string
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	case errors.As(err, &pgErr):
		code = pgErr.Code
	}
	switch code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %v", domain.ErrStorageConflict, err)
	case "23505":
		return fmt.Errorf("%w: duplicate key: %v", domain.ErrStorageConflict, err)
	}
	return err
}
