package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

// ReadHandler serves the read-only ledger views over HTTP.
type ReadHandler struct {
	stock    service.StockService
	orders   service.OrderService
	history  service.HistoryService
	sites    service.SiteLedgerService
	payments service.PaymentService
	ping     Pinger
}

func NewReadHandler(stock service.StockService, orders service.OrderService, history service.HistoryService, sites service.SiteLedgerService, payments service.PaymentService, ping Pinger) *ReadHandler {
	return &ReadHandler{
		stock:    stock,
		orders:   orders,
		history:  history,
		sites:    sites,
		payments: payments,
		ping:     ping,
	}
}

// NewRouter wires the read API, health checks and the Prometheus endpoint.
func NewRouter(h *ReadHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stock", h.ListStock).Methods("GET")
	api.HandleFunc("/stock/{itemTypeId}", h.GetStock).Methods("GET")
	api.HandleFunc("/sites/{siteId}/balance", h.GetSiteBalance).Methods("GET")
	api.HandleFunc("/sites/{siteId}/history", h.GetSiteHistory).Methods("GET")
	api.HandleFunc("/sites/{siteId}/orders", h.ListSiteOrders).Methods("GET")
	api.HandleFunc("/sites/{siteId}/payments", h.ListSitePayments).Methods("GET")
	api.HandleFunc("/orders/{orderId}", h.GetOrder).Methods("GET")
	api.HandleFunc("/orders/{orderId}/history", h.GetOrderHistory).Methods("GET")
	api.HandleFunc("/orders/{orderId}/rented-items", h.ListRentedItems).Methods("GET")
	api.HandleFunc("/orders/{orderId}/returned-items", h.ListReturnedItems).Methods("GET")
	api.HandleFunc("/customers/{customerId}/orders", h.ListCustomerOrders).Methods("GET")

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/ready", h.Ready).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type errorBody struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// StatusFor maps an error kind to the HTTP status returned to callers.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrStorageConflict:
		return http.StatusConflict
	case domain.ErrInsufficientStock, domain.ErrOverReturn, domain.ErrInvalidReturn,
		domain.ErrInvalidEdit, domain.ErrHasOpenItems, domain.ErrExceedsRemaining:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := errorBody{Kind: "unavailable", Message: "service unavailable"}
	if kind := domain.KindOf(err); kind != nil {
		body.Kind = kind.Error()
		body.Message = err.Error()
	} else {
		logger.Error("Read API request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func (h *ReadHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stock.ListStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

func (h *ReadHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	entry, err := h.stock.GetStock(r.Context(), mux.Vars(r)["itemTypeId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entry": entry})
}

func (h *ReadHandler) GetSiteBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.sites.GetSiteBalance(r.Context(), mux.Vars(r)["siteId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "balance": b})
}

func (h *ReadHandler) GetSiteHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.GetSiteHistory(r.Context(), mux.Vars(r)["siteId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

func (h *ReadHandler) ListSiteOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrdersBySite(r.Context(), mux.Vars(r)["siteId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *ReadHandler) ListSitePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.ListPaymentsBySite(r.Context(), mux.Vars(r)["siteId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "payments": payments})
}

func (h *ReadHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrdersByCustomer(r.Context(), mux.Vars(r)["customerId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *ReadHandler) ListRentedItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.ListRentedItems(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

// ListReturnedItems feeds invoice generation.
func (h *ReadHandler) ListReturnedItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.ListReturnedItems(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

func (h *ReadHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

// GetOrderHistory accepts an optional ?action=rent|return|loss filter.
func (h *ReadHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	action := domain.ActionType(r.URL.Query().Get("action"))
	entries, err := h.history.QueryByOrder(r.Context(), mux.Vars(r)["orderId"], action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

func (h *ReadHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ReadHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			status := "unhealthy"
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": status, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
