package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"tradeengine/src/model"
)

type fakeOrderFinder struct {
	orders  map[string]*model.Order
	latest  []model.Order
	metrics []model.ExecutionMetric

	gotLimit int
	gotStart *time.Time
	gotEnd   *time.Time
}

func (f *fakeOrderFinder) FindByID(_ context.Context, orderID string) (*model.Order, error) {
	return f.orders[orderID], nil
}

func (f *fakeOrderFinder) FindLatest(_ context.Context, limit int) ([]model.Order, error) {
	f.gotLimit = limit
	return f.latest, nil
}

func (f *fakeOrderFinder) ListMetrics(_ context.Context, start, end *time.Time) ([]model.ExecutionMetric, error) {
	f.gotStart, f.gotEnd = start, end
	return f.metrics, nil
}

func TestLatestOrdersHandler(t *testing.T) {
	repo := &fakeOrderFinder{latest: []model.Order{
		{OrderID: "ord-2", Ticker: "MSFT"},
		{OrderID: "ord-1", Ticker: "AAPL"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/orders?limit=5", nil)
	rec := httptest.NewRecorder()
	LatestOrdersHandler(repo).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, repo.gotLimit)
	require.Contains(t, rec.Body.String(), "ord-2")
}

func TestLatestOrdersHandlerRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?limit=zero", nil)
	rec := httptest.NewRecorder()
	LatestOrdersHandler(&fakeOrderFinder{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderHandler(t *testing.T) {
	repo := &fakeOrderFinder{orders: map[string]*model.Order{
		"ord-1": {OrderID: "ord-1", Ticker: "AAPL", Status: model.OrderStatusFilled},
	}}

	r := chi.NewRouter()
	r.Get("/orders/{orderID}", GetOrderHandler(repo))

	req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), model.OrderStatusFilled)

	req = httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListExecutionMetricsHandlerParsesRange(t *testing.T) {
	repo := &fakeOrderFinder{metrics: []model.ExecutionMetric{{OrderID: "ord-1"}}}

	req := httptest.NewRequest(http.MethodGet,
		"/metrics/executions?start=2026-03-02T00:00:00Z&end=2026-03-02T23:59:59Z", nil)
	rec := httptest.NewRecorder()
	ListExecutionMetricsHandler(repo).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.gotStart)
	require.NotNil(t, repo.gotEnd)
	require.Equal(t, 2026, repo.gotStart.Year())

	req = httptest.NewRequest(http.MethodGet, "/metrics/executions?start=yesterday", nil)
	rec = httptest.NewRecorder()
	ListExecutionMetricsHandler(repo).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
