package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/broker"
	"tradeengine/src/engine"
	"tradeengine/src/model"
)

type portfolioManager interface {
	PortfolioSnapshot(ctx context.Context) (*broker.AccountInfo, []broker.Position, error)
	LiquidatePosition(ctx context.Context, ticker string) (*model.Order, error)
	LiquidateAllPositions(ctx context.Context) ([]engine.LiquidationResult, error)
	CancelAll(ctx context.Context) error
}

// PortfolioHandler reports the current account state and open positions.
func PortfolioHandler(mgr portfolioManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, positions, err := mgr.PortfolioSnapshot(r.Context())
		if err != nil {
			logger.WithError(err).Error("Failed to fetch portfolio snapshot")
			http.Error(w, "broker unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"account":   account,
			"positions": positions,
		})
	}
}

// LiquidatePositionHandler closes one holding at market.
func LiquidatePositionHandler(mgr portfolioManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := chi.URLParam(r, "ticker")

		order, err := mgr.LiquidatePosition(r.Context(), ticker)
		if err != nil {
			logger.WithError(err).
				WithField("ticker", ticker).
				Error("Failed to liquidate position")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

type liquidationOutcome struct {
	Ticker  string       `json:"ticker"`
	Order   *model.Order `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
	Success bool         `json:"success"`
}

// LiquidateAllHandler closes every holding. Partial failures do not abort the
// rest: each ticker's outcome is reported independently.
func LiquidateAllHandler(mgr portfolioManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := mgr.LiquidateAllPositions(r.Context())
		if err != nil {
			logger.WithError(err).Error("Failed to liquidate positions")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		outcomes := make([]liquidationOutcome, 0, len(results))
		for _, res := range results {
			outcome := liquidationOutcome{
				Ticker:  res.Ticker,
				Order:   res.Order,
				Success: res.Err == nil,
			}
			if res.Err != nil {
				outcome.Error = res.Err.Error()
			}
			outcomes = append(outcomes, outcome)
		}

		writeJSON(w, http.StatusOK, outcomes)
	}
}

// CancelAllOrdersHandler cancels every open order at the broker.
func CancelAllOrdersHandler(mgr portfolioManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.CancelAll(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
	}
}
