package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/repository/memory"
	"siterent-backend/internal/service"
)

type fixture struct {
	router http.Handler
	orders service.OrderService
	stock  service.StockService
}

func newFixture(t *testing.T, ping Pinger) *fixture {
	t.Helper()
	store := memory.NewStore()
	opts := service.Options{InvoicePrefix: "SR"}
	stock := service.NewStockService(store, opts)
	orders := service.NewOrderService(store, opts)
	h := NewReadHandler(
		stock,
		orders,
		service.NewHistoryService(store, opts),
		service.NewSiteLedgerService(store, opts),
		service.NewPaymentService(store, opts),
		ping,
	)
	return &fixture{router: NewRouter(h), orders: orders, stock: stock}
}

func (f *fixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestReadHandler_Views(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.stock.AddStock(ctx, "pole", 10, 5000, 100)
	require.NoError(t, err)
	o, err := f.orders.CreateOrder(ctx, "site-1", "cust-1", []domain.LineRequest{{ItemTypeID: "pole", Quantity: 3}}, time.Time{})
	require.NoError(t, err)

	rec, body := f.get(t, "/api/v1/sites/site-1/balance")
	assert.Equal(t, http.StatusOK, rec.Code)
	balance := body["balance"].(map[string]any)
	assert.Equal(t, float64(300), balance["due_amount_cents"])

	rec, body = f.get(t, "/api/v1/stock/pole")
	assert.Equal(t, http.StatusOK, rec.Code)
	entry := body["entry"].(map[string]any)
	assert.Equal(t, float64(7), entry["available_quantity"])

	rec, body = f.get(t, "/api/v1/orders/"+o.ID+"/history?action=rent")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 1)

	rec, body = f.get(t, "/api/v1/sites/site-1/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["orders"], 1)

	rec, _ = f.get(t, "/api/v1/stock")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadHandler_OrderLineViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.stock.AddStock(ctx, "pole", 10, 5000, 100)
	require.NoError(t, err)
	_, err = f.stock.AddStock(ctx, "plank", 5, 3000, 50)
	require.NoError(t, err)
	o, err := f.orders.CreateOrder(ctx, "site-1", "cust-1", []domain.LineRequest{{ItemTypeID: "pole", Quantity: 3}, {ItemTypeID: "plank", Quantity: 1}}, time.Time{})
	require.NoError(t, err)
	_, err = f.orders.ReturnItems(ctx, o.ID, []domain.ReturnRequest{{ItemTypeID: "plank", Quantity: 1}})
	require.NoError(t, err)

	rec, body := f.get(t, "/api/v1/orders/"+o.ID+"/rented-items")
	assert.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "pole", items[0].(map[string]any)["item_type_id"])

	rec, body = f.get(t, "/api/v1/orders/"+o.ID+"/returned-items")
	assert.Equal(t, http.StatusOK, rec.Code)
	items = body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "plank", items[0].(map[string]any)["item_type_id"])
	assert.Equal(t, float64(1), items[0].(map[string]any)["quantity_returned"])

	rec, body = f.get(t, "/api/v1/customers/cust-1/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["orders"], 1)

	rec, body = f.get(t, "/api/v1/customers/cust-9/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["orders"])

	rec, body = f.get(t, "/api/v1/orders/missing/rented-items")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["kind"])
}

func TestReadHandler_Errors(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.get(t, "/api/v1/orders/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "not found", body["kind"])

	rec, body = f.get(t, "/api/v1/orders/missing/history?action=repair")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation error", body["kind"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(domain.StockError(domain.ErrInsufficientStock, "stock", "p", "p", 2, 1)))
	assert.Equal(t, http.StatusConflict, StatusFor(domain.Conflict("order", "o", "x")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(errors.New("connection refused")))
}

func TestReadHandler_Health(t *testing.T) {
	f := newFixture(t, func(context.Context) error { return errors.New("db down") })

	rec, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = f.get(t, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", body["status"])

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "siterent_http_requests_total")
}
