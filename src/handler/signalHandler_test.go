package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tradeengine/src/signal"
)

type fakeSink struct {
	enqueued []*signal.TradeSignal
}

func (f *fakeSink) Enqueue(sig *signal.TradeSignal) {
	f.enqueued = append(f.enqueued, sig)
}

func (f *fakeSink) QueueDepth() int {
	return len(f.enqueued)
}

func TestSubmitSignalHandlerAcceptsValidSignal(t *testing.T) {
	sink := &fakeSink{}
	h := SubmitSignalHandler(sink)

	body := `{"ticker":"AAPL","side":"BUY","quantity":10,"strategy_id":"momentum_v2"}`
	req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, sink.enqueued, 1)
	require.Equal(t, "AAPL", sink.enqueued[0].Ticker)
	require.Equal(t, "momentum_v2", sink.enqueued[0].StrategyID)
	require.Equal(t, signal.OrderTypeMarket, sink.enqueued[0].OrderType)
	require.Contains(t, rec.Body.String(), `"queue_depth":1`)
}

func TestSubmitSignalHandlerDefaultsToManualTrade(t *testing.T) {
	sink := &fakeSink{}
	h := SubmitSignalHandler(sink)

	body := `{"ticker":"AAPL","side":"SELL","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "manual_trade", sink.enqueued[0].StrategyID)
}

func TestSubmitSignalHandlerRejectsInvalidSignal(t *testing.T) {
	sink := &fakeSink{}
	h := SubmitSignalHandler(sink)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{ticker:`},
		{"bad side", `{"ticker":"AAPL","side":"HOLD","quantity":10}`},
		{"zero quantity", `{"ticker":"AAPL","side":"BUY","quantity":0}`},
		{"limit without price", `{"ticker":"AAPL","side":"BUY","quantity":1,"order_type":"limit"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	require.Empty(t, sink.enqueued)
}
