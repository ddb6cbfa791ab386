package grpc

import (
	"time"

	"siterent-backend/internal/domain"
)

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type OrderResponse struct {
	Order *domain.Order `json:"order"`
}

type ListOrdersByCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

type ListOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// ListOrderItemsRequest selects the lines of one order.
type ListOrderItemsRequest struct {
	OrderID string `json:"order_id"`
}

type LineItemsResponse struct {
	Items []domain.LineItem `json:"items"`
}

type GetOrderHistoryRequest struct {
	OrderID    string            `json:"order_id"`
	ActionType domain.ActionType `json:"action_type,omitempty"`
}

type GetSiteHistoryRequest struct {
	SiteID string `json:"site_id"`
}

type HistoryResponse struct {
	Entries []domain.HistoryEntry `json:"entries"`
}

type GetSiteBalanceRequest struct {
	SiteID string `json:"site_id"`
}

type SiteBalanceResponse struct {
	Balance *domain.SiteBalance `json:"balance"`
}

type CreateOrderRequest struct {
	SiteID     string               `json:"site_id"`
	CustomerID string               `json:"customer_id"`
	Items      []domain.LineRequest `json:"items"`
	OrderDate  *time.Time           `json:"order_date,omitempty"`
}

type EditOrderRequest struct {
	OrderID   string               `json:"order_id"`
	Items     []domain.LineRequest `json:"items"`
	OrderDate *time.Time           `json:"order_date,omitempty"`
}

type ReturnItemsRequest struct {
	OrderID string                 `json:"order_id"`
	Items   []domain.ReturnRequest `json:"items"`
}

type RecordLossRequest struct {
	OrderID           string     `json:"order_id"`
	ItemTypeID        string     `json:"item_type_id"`
	Quantity          int32      `json:"quantity"`
	PricePerItemCents int64      `json:"price_per_item_cents"`
	Date              *time.Time `json:"date,omitempty"`
}

type DeleteOrderRequest struct {
	OrderID string `json:"order_id"`
}

type AddPaymentRequest struct {
	SiteID        string     `json:"site_id"`
	OrderID       string     `json:"order_id,omitempty"`
	CustomerID    string     `json:"customer_id"`
	AmountCents   int64      `json:"amount_cents"`
	Method        string     `json:"method"`
	Type          string     `json:"type"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Remarks       string     `json:"remarks,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
}

type EditPaymentRequest struct {
	PaymentID     string     `json:"payment_id"`
	AmountCents   *int64     `json:"amount_cents,omitempty"`
	Method        *string    `json:"method,omitempty"`
	Type          *string    `json:"type,omitempty"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	Remarks       *string    `json:"remarks,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
}

type DeletePaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type PaymentResponse struct {
	Payment *domain.PaymentRecord `json:"payment"`
}

type AddStockRequest struct {
	ItemTypeID      string `json:"item_type_id"`
	Quantity        int32  `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	RentalRateCents int64  `json:"rental_rate_cents"`
}

type StockResponse struct {
	Entry *domain.StockEntry `json:"entry"`
}

type EditStockRequest struct {
	ItemTypeID      string `json:"item_type_id"`
	TotalQuantity   *int32 `json:"total_quantity,omitempty"`
	UnitPriceCents  *int64 `json:"unit_price_cents,omitempty"`
	RentalRateCents *int64 `json:"rental_rate_cents,omitempty"`
}

type DeleteStockRequest struct {
	ItemTypeID string `json:"item_type_id"`
}

type ListStockRequest struct{}

type ListStockResponse struct {
	Entries []domain.StockEntry `json:"entries"`
}

type RecomputeSiteBalanceRequest struct {
	SiteID string `json:"site_id"`
}

type ReconciliationResponse struct {
	Reconciliation *domain.Reconciliation `json:"reconciliation"`
}

type RebuildHistoryRequest struct {
	OrderID string `json:"order_id"`
}

type RebuildHistoryResponse struct {
	Repaired int `json:"repaired"`
}

type Empty struct{}
