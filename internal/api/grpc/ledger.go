package grpc

import (
	"context"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/service"
)

// LedgerHandler serves the ledger gRPC API on top of the services.
type LedgerHandler struct {
	orders   service.OrderService
	history  service.HistoryService
	sites    service.SiteLedgerService
	payments service.PaymentService
	stock    service.StockService
}

func NewLedgerHandler(orders service.OrderService, history service.HistoryService, sites service.SiteLedgerService, payments service.PaymentService, stock service.StockService) *LedgerHandler {
	return &LedgerHandler{
		orders:   orders,
		history:  history,
		sites:    sites,
		payments: payments,
		stock:    stock,
	}
}

func (h *LedgerHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	o, err := h.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (h *LedgerHandler) GetOrderHistory(ctx context.Context, req *GetOrderHistoryRequest) (*HistoryResponse, error) {
	entries, err := h.history.QueryByOrder(ctx, req.OrderID, req.ActionType)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &HistoryResponse{Entries: entries}, nil
}

func (h *LedgerHandler) GetSiteHistory(ctx context.Context, req *GetSiteHistoryRequest) (*HistoryResponse, error) {
	entries, err := h.history.GetSiteHistory(ctx, req.SiteID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &HistoryResponse{Entries: entries}, nil
}

func (h *LedgerHandler) GetSiteBalance(ctx context.Context, req *GetSiteBalanceRequest) (*SiteBalanceResponse, error) {
	b, err := h.sites.GetSiteBalance(ctx, req.SiteID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &SiteBalanceResponse{Balance: b}, nil
}

func (h *LedgerHandler) ListStock(ctx context.Context, _ *ListStockRequest) (*ListStockResponse, error) {
	entries, err := h.stock.ListStock(ctx)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &ListStockResponse{Entries: entries}, nil
}

func (h *LedgerHandler) ListOrdersByCustomer(ctx context.Context, req *ListOrdersByCustomerRequest) (*ListOrdersResponse, error) {
	orders, err := h.orders.ListOrdersByCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &ListOrdersResponse{Orders: orders}, nil
}

// ListRentedItems returns the lines that still have units out.
func (h *LedgerHandler) ListRentedItems(ctx context.Context, req *ListOrderItemsRequest) (*LineItemsResponse, error) {
	items, err := h.orders.ListRentedItems(ctx, req.OrderID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &LineItemsResponse{Items: items}, nil
}

func (h *LedgerHandler) ListReturnedItems(ctx context.Context, req *ListOrderItemsRequest) (*LineItemsResponse, error) {
	items, err := h.orders.ListReturnedItems(ctx, req.OrderID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &LineItemsResponse{Items: items}, nil
}

func (h *LedgerHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	logger.Debug("CreateOrder requested", "operator_id", operatorOrAnonymous(ctx), "site_id", req.SiteID)
	o, err := h.orders.CreateOrder(ctx, req.SiteID, req.CustomerID, req.Items, timeOrZero(req.OrderDate))
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (h *LedgerHandler) EditOrder(ctx context.Context, req *EditOrderRequest) (*OrderResponse, error) {
	logger.Debug("EditOrder requested", "operator_id", operatorOrAnonymous(ctx), "order_id", req.OrderID)
	o, err := h.orders.EditOrder(ctx, req.OrderID, req.Items, timeOrZero(req.OrderDate))
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (h *LedgerHandler) ReturnItems(ctx context.Context, req *ReturnItemsRequest) (*OrderResponse, error) {
	logger.Debug("ReturnItems requested", "operator_id", operatorOrAnonymous(ctx), "order_id", req.OrderID)
	o, err := h.orders.ReturnItems(ctx, req.OrderID, req.Items)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (h *LedgerHandler) RecordLoss(ctx context.Context, req *RecordLossRequest) (*OrderResponse, error) {
	logger.Debug("RecordLoss requested", "operator_id", operatorOrAnonymous(ctx), "order_id", req.OrderID)
	o, err := h.orders.RecordLoss(ctx, req.OrderID, req.ItemTypeID, req.Quantity, req.PricePerItemCents, timeOrZero(req.Date))
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (h *LedgerHandler) DeleteOrder(ctx context.Context, req *DeleteOrderRequest) (*Empty, error) {
	logger.Info("DeleteOrder requested", "operator_id", operatorOrAnonymous(ctx), "order_id", req.OrderID)
	if err := h.orders.DeleteOrder(ctx, req.OrderID); err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &Empty{}, nil
}

func (h *LedgerHandler) AddPayment(ctx context.Context, req *AddPaymentRequest) (*PaymentResponse, error) {
	p, err := h.payments.AddPayment(ctx, MapAddPaymentRequest(req))
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &PaymentResponse{Payment: p}, nil
}

func (h *LedgerHandler) EditPayment(ctx context.Context, req *EditPaymentRequest) (*PaymentResponse, error) {
	p, err := h.payments.EditPayment(ctx, req.PaymentID, MapEditPaymentRequest(req))
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &PaymentResponse{Payment: p}, nil
}

func (h *LedgerHandler) DeletePayment(ctx context.Context, req *DeletePaymentRequest) (*Empty, error) {
	if err := h.payments.DeletePayment(ctx, req.PaymentID); err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &Empty{}, nil
}

func (h *LedgerHandler) AddStock(ctx context.Context, req *AddStockRequest) (*StockResponse, error) {
	e, err := h.stock.AddStock(ctx, req.ItemTypeID, req.Quantity, req.UnitPriceCents, req.RentalRateCents)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &StockResponse{Entry: e}, nil
}

func (h *LedgerHandler) EditStock(ctx context.Context, req *EditStockRequest) (*StockResponse, error) {
	logger.Debug("EditStock requested", "operator_id", operatorOrAnonymous(ctx), "item_type_id", req.ItemTypeID)
	e, err := h.stock.EditStock(ctx, req.ItemTypeID, domain.StockUpdate{
		TotalQuantity:   req.TotalQuantity,
		UnitPriceCents:  req.UnitPriceCents,
		RentalRateCents: req.RentalRateCents,
	})
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &StockResponse{Entry: e}, nil
}

func (h *LedgerHandler) DeleteStock(ctx context.Context, req *DeleteStockRequest) (*Empty, error) {
	logger.Debug("DeleteStock requested", "operator_id", operatorOrAnonymous(ctx), "item_type_id", req.ItemTypeID)
	if err := h.stock.DeleteStock(ctx, req.ItemTypeID); err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &Empty{}, nil
}

func (h *LedgerHandler) RecomputeSiteBalance(ctx context.Context, req *RecomputeSiteBalanceRequest) (*ReconciliationResponse, error) {
	rec, err := h.sites.RecomputeSiteBalance(ctx, req.SiteID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &ReconciliationResponse{Reconciliation: rec}, nil
}

func (h *LedgerHandler) RebuildHistory(ctx context.Context, req *RebuildHistoryRequest) (*RebuildHistoryResponse, error) {
	n, err := h.history.RebuildHistory(ctx, req.OrderID)
	if err != nil {
		return nil, MapErrorToStatus(err)
	}
	return &RebuildHistoryResponse{Repaired: n}, nil
}
