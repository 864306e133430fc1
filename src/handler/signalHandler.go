package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeengine/src/signal"
)

type signalSink interface {
	Enqueue(sig *signal.TradeSignal)
	QueueDepth() int
}

type signalRequest struct {
	Ticker      string   `json:"ticker"`
	Side        string   `json:"side"`
	Quantity    float64  `json:"quantity"`
	StrategyID  string   `json:"strategy_id"`
	Price       *float64 `json:"price,omitempty"`
	OrderType   string   `json:"order_type,omitempty"`
	LimitPrice  *float64 `json:"limit_price,omitempty"`
	StopPrice   *float64 `json:"stop_price,omitempty"`
	TimeInForce string   `json:"time_in_force,omitempty"`
}

// SubmitSignalHandler accepts a trade signal and queues it for execution.
// Submission is asynchronous: a 202 means accepted, not executed; the outcome
// lands in the order ledger or the failed-trades queue.
func SubmitSignalHandler(sink signalSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		// Signals entered over the API without a strategy are manual trades.
		if req.StrategyID == "" {
			req.StrategyID = "manual_trade"
		}

		sig, err := signal.New(req.Ticker, req.Side, req.Quantity, req.StrategyID, time.Now().UTC(), signal.Params{
			Price:       req.Price,
			OrderType:   req.OrderType,
			LimitPrice:  req.LimitPrice,
			StopPrice:   req.StopPrice,
			TimeInForce: req.TimeInForce,
		})
		if err != nil {
			var verr *signal.ValidationError
			if errors.As(err, &verr) {
				http.Error(w, verr.Error(), http.StatusBadRequest)
				return
			}
			logger.WithError(err).Error("Failed to build trade signal")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		sink.Enqueue(sig)

		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":      "accepted",
			"ticker":      sig.Ticker,
			"queue_depth": sink.QueueDepth(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("Failed to encode response")
	}
}
