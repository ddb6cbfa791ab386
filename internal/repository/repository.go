package repository

import (
	"context"

	"siterent-backend/internal/domain"
)

// StockRepository owns the per-item-type counters. The quantity mutators
// are conditional updates evaluated against the current stored row, so a
// check and its write can never be separated by another writer.
type StockRepository interface {
	Create(ctx context.Context, entry *domain.StockEntry) error
	Get(ctx context.Context, itemTypeID string) (*domain.StockEntry, error)
	// GetForUpdate locks the entry for the rest of the transaction. Used
	// where an absolute target is turned into a delta.
	GetForUpdate(ctx context.Context, itemTypeID string) (*domain.StockEntry, error)
	List(ctx context.Context) ([]domain.StockEntry, error)

	// Reserve moves qty from available to on-rent, or fails with
	// ErrInsufficientStock when available < qty.
	Reserve(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error)
	// Release moves qty from on-rent back to available, or fails with
	// ErrOverReturn when onRent < qty.
	Release(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error)
	// WriteOff removes qty from on-rent and from the total, or fails with
	// ErrOverReturn when onRent < qty.
	WriteOff(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error)
	// AddQuantity changes total and available by delta. A negative delta
	// fails with ErrValidation if available would drop below zero.
	AddQuantity(ctx context.Context, itemTypeID string, delta int32) (*domain.StockEntry, error)
	UpdatePricing(ctx context.Context, itemTypeID string, unitPriceCents, rentalRateCents int64) error
	// Delete fails with ErrHasOpenItems while onRent > 0.
	Delete(ctx context.Context, itemTypeID string) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	// GetForUpdate locks the order row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	// Update writes the order if its stored version still equals
	// order.Version and bumps the version, else ErrStorageConflict.
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id string) error
	ListBySite(ctx context.Context, siteID string) ([]domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	SumCostBySite(ctx context.Context, siteID string) (int64, error)
}

type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	Update(ctx context.Context, entry *domain.HistoryEntry) error
	GetByOrderAndAction(ctx context.Context, orderID string, action domain.ActionType) (*domain.HistoryEntry, error)
	// ListByOrder returns entries oldest-first. An empty action lists all.
	ListByOrder(ctx context.Context, orderID string, action domain.ActionType) ([]domain.HistoryEntry, error)
	ListBySite(ctx context.Context, siteID string) ([]domain.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
	DeleteByOrder(ctx context.Context, orderID string) error
}

type SiteLedgerRepository interface {
	// Ensure creates the ledger row if it does not exist and returns it.
	// An existing row owned by another customer fails with ErrValidation.
	Ensure(ctx context.Context, siteID, customerID, invoicePrefix string) (*domain.SiteLedger, error)
	Get(ctx context.Context, siteID string) (*domain.SiteLedger, error)
	List(ctx context.Context) ([]domain.SiteLedger, error)
	// AdjustDue applies a relative change and returns the new due amount.
	AdjustDue(ctx context.Context, siteID string, deltaCents int64) (int64, error)
	// SetDue overwrites the cached due amount. Reconciliation only.
	SetDue(ctx context.Context, siteID string, dueCents int64) error
	// NextInvoiceCounter increments and returns the counter and prefix.
	NextInvoiceCounter(ctx context.Context, siteID string) (int64, string, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.PaymentRecord) error
	Get(ctx context.Context, id string) (*domain.PaymentRecord, error)
	// GetForUpdate locks the payment row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.PaymentRecord, error)
	Update(ctx context.Context, p *domain.PaymentRecord) error
	Delete(ctx context.Context, id string) error
	ListBySite(ctx context.Context, siteID string) ([]domain.PaymentRecord, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentRecord, error)
	UnlinkOrder(ctx context.Context, orderID string) error
	SumBySite(ctx context.Context, siteID string) (int64, error)
}

// Tx groups the repositories bound to one transaction.
type Tx interface {
	Stock() StockRepository
	Orders() OrderRepository
	History() HistoryRepository
	Sites() SiteLedgerRepository
	Payments() PaymentRepository
}

// Store exposes non-transactional reads through Tx and runs multi-entity
// writes as one all-or-nothing unit through WithTx. If fn returns an error
// every write made through tx is discarded.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
