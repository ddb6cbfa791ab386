package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"siterent-backend/internal/domain"
)

type StockService interface {
	Reserve(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error)
	Release(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error)
	AdjustForLoss(ctx context.Context, itemTypeID string, qty int32) (*domain.StockEntry, error)
	ChangeReservation(ctx context.Context, itemTypeID string, oldQty, newQty int32) (*domain.StockEntry, error)

	AddStock(ctx context.Context, itemTypeID string, qty int32, unitPriceCents, rentalRateCents int64) (*domain.StockEntry, error)
	EditStock(ctx context.Context, itemTypeID string, update domain.StockUpdate) (*domain.StockEntry, error)
	DeleteStock(ctx context.Context, itemTypeID string) error
	GetStock(ctx context.Context, itemTypeID string) (*domain.StockEntry, error)
	ListStock(ctx context.Context) ([]domain.StockEntry, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, siteID, customerID string, lines []domain.LineRequest, orderDate time.Time) (*domain.Order, error)
	EditOrder(ctx context.Context, orderID string, lines []domain.LineRequest, orderDate time.Time) (*domain.Order, error)
	ReturnItems(ctx context.Context, orderID string, items []domain.ReturnRequest) (*domain.Order, error)
	RecordLoss(ctx context.Context, orderID, itemTypeID string, qty int32, pricePerItemCents int64, date time.Time) (*domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrdersBySite(ctx context.Context, siteID string) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListRentedItems(ctx context.Context, orderID string) ([]domain.LineItem, error)
	ListReturnedItems(ctx context.Context, orderID string) ([]domain.LineItem, error)
}

type HistoryService interface {
	RecordOrMerge(ctx context.Context, orderID string, action domain.ActionType, items []domain.HistoryItem) (*domain.HistoryEntry, error)
	QueryByOrder(ctx context.Context, orderID string, action domain.ActionType) ([]domain.HistoryEntry, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]domain.HistoryEntry, error)
	GetSiteHistory(ctx context.Context, siteID string) ([]domain.HistoryEntry, error)
	RebuildHistory(ctx context.Context, orderID string) (int, error)
	RebuildSiteHistory(ctx context.Context, siteID string) (int, error)
}

type SiteLedgerService interface {
	Increase(ctx context.Context, siteID string, amountCents int64) (int64, error)
	Decrease(ctx context.Context, siteID string, amountCents int64) (int64, error)
	NextInvoiceNumber(ctx context.Context, siteID string) (string, error)
	GetSiteBalance(ctx context.Context, siteID string) (*domain.SiteBalance, error)
	ListSites(ctx context.Context) ([]domain.SiteLedger, error)
	RecomputeSiteBalance(ctx context.Context, siteID string) (*domain.Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]domain.Reconciliation, error)
}

type PaymentService interface {
	AddPayment(ctx context.Context, in domain.NewPayment) (*domain.PaymentRecord, error)
	EditPayment(ctx context.Context, paymentID string, update domain.PaymentUpdate) (*domain.PaymentRecord, error)
	DeletePayment(ctx context.Context, paymentID string) error
	GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
	ListPaymentsBySite(ctx context.Context, siteID string) ([]domain.PaymentRecord, error)
	ListPaymentsByOrder(ctx context.Context, orderID string) ([]domain.PaymentRecord, error)
}

// Cache is the read cache the services fill and invalidate after commit.
type Cache interface {
	GetSiteBalance(ctx context.Context, siteID string) (*domain.SiteBalance, bool)
	SetSiteBalance(ctx context.Context, b *domain.SiteBalance)
	GetStockList(ctx context.Context) ([]domain.StockEntry, bool)
	SetStockList(ctx context.Context, entries []domain.StockEntry)
	InvalidateSites(ctx context.Context, siteIDs ...string)
	InvalidateStock(ctx context.Context)
}

type noopCache struct{}

func (noopCache) GetSiteBalance(context.Context, string) (*domain.SiteBalance, bool) { return nil, false }
func (noopCache) SetSiteBalance(context.Context, *domain.SiteBalance) {}
func (noopCache) GetStockList(context.Context) ([]domain.StockEntry, bool) { return nil, false }
func (noopCache) SetStockList(context.Context, []domain.StockEntry) {}
func (noopCache) InvalidateSites(context.Context, ...string) {}
func (noopCache) InvalidateStock(context.Context) {}

// Options configures the ledger services. Zero values fall back to defaults.
type Options struct {
	InvoicePrefix        string
	MaxRetries           int
	AllowNegativeBalance bool
	Cache                Cache
	Now                  func() time.Time
	NewID                func() string
}

func (o Options) withDefaults() Options {
	if o.InvoicePrefix == "" {
		o.InvoicePrefix = "INV"
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Cache == nil {
		o.Cache = noopCache{}
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	return o
}
