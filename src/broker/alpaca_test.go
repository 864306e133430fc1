package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *AlpacaClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewAlpacaClient(Config{
		BaseURL:        srv.URL,
		APIKeyID:       "test-key",
		APISecretKey:   "test-secret",
		RequestTimeout: 5 * time.Second,
	})
}

func TestAlpacaClientPlaceOrderRequestShape(t *testing.T) {
	var gotBody map[string]interface{}
	var gotHeaders http.Header

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/orders", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "904837e3",
			"client_order_id": "my-client-id",
			"symbol": "AAPL",
			"side": "buy",
			"qty": "10",
			"status": "new",
			"filled_qty": "0",
			"filled_avg_price": null,
			"submitted_at": "2026-03-02T15:00:00Z"
		}`))
	})

	limitPrice := 150.25
	info, err := client.PlaceOrder(context.Background(), OrderRequest{
		Symbol:        "AAPL",
		Qty:           10,
		Side:          "buy",
		Type:          "limit",
		TimeInForce:   "gtc",
		LimitPrice:    &limitPrice,
		ClientOrderID: "my-client-id",
	})
	require.NoError(t, err)

	require.Equal(t, "test-key", gotHeaders.Get("APCA-API-KEY-ID"))
	require.Equal(t, "test-secret", gotHeaders.Get("APCA-API-SECRET-KEY"))

	// Numeric fields travel as strings on this API.
	require.Equal(t, "10", gotBody["qty"])
	require.Equal(t, "150.25", gotBody["limit_price"])
	require.Equal(t, "limit", gotBody["type"])
	require.Equal(t, "gtc", gotBody["time_in_force"])
	require.Equal(t, "my-client-id", gotBody["client_order_id"])
	require.NotContains(t, gotBody, "stop_price")

	require.Equal(t, "904837e3", info.ID)
	require.Equal(t, "my-client-id", info.ClientOrderID)
	require.Equal(t, float64(10), info.Qty)
	require.Equal(t, "new", info.Status)
	require.Zero(t, info.FilledAvgPrice)
	require.NotNil(t, info.SubmittedAt)
}

func TestAlpacaClientPlaceOrderAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"insufficient buying power"}`))
	})

	_, err := client.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Qty: 10, Side: "buy", Type: "market", TimeInForce: "gtc",
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "insufficient buying power")
}

func TestAlpacaClientGetOrderStatusParsesFill(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/orders/904837e3", r.URL.Path)
		w.Write([]byte(`{
			"id": "904837e3",
			"symbol": "AAPL",
			"side": "buy",
			"qty": "10",
			"status": "filled",
			"filled_qty": "10",
			"filled_avg_price": "150.30",
			"submitted_at": "2026-03-02T15:00:00Z",
			"filled_at": "2026-03-02T15:00:02Z"
		}`))
	})

	info, err := client.GetOrderStatus(context.Background(), "904837e3")
	require.NoError(t, err)
	require.Equal(t, "filled", info.Status)
	require.Equal(t, float64(10), info.FilledQty)
	require.Equal(t, 150.30, info.FilledAvgPrice)
	require.NotNil(t, info.FilledAt)
	require.Equal(t, 2*time.Second, info.FilledAt.Sub(*info.SubmittedAt))
}

func TestAlpacaClientGetAccountInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/account", r.URL.Path)
		w.Write([]byte(`{
			"portfolio_value": "100000.50",
			"equity": "100500.25",
			"last_equity": "100000.50",
			"cash": "25000"
		}`))
	})

	account, err := client.GetAccountInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 100000.50, account.PortfolioValue)
	require.Equal(t, 100500.25, account.Equity)
	require.Equal(t, 100000.50, account.LastEquity)
	require.Equal(t, float64(25000), account.Cash)
}

func TestAlpacaClientGetPositions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/positions":
			w.Write([]byte(`[
				{"symbol": "AAPL", "qty": "10", "market_value": "1503"},
				{"symbol": "MSFT", "qty": "5", "market_value": "2000"}
			]`))
		case "/v2/positions/AAPL":
			w.Write([]byte(`{"symbol": "AAPL", "qty": "10", "market_value": "1503"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	positions, err := client.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	require.Equal(t, "AAPL", positions[0].Symbol)
	require.Equal(t, float64(1503), positions[0].MarketValue)

	position, err := client.GetPosition(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, float64(10), position.Qty)

	_, err = client.GetPosition(context.Background(), "TSLA")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAlpacaClientCancelEndpoints(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CancelOrder(context.Background(), "904837e3"))
	require.NoError(t, client.CancelAllOrders(context.Background()))
	require.Equal(t, []string{"/v2/orders/904837e3", "/v2/orders"}, paths)
}
