package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
)

type orderFinder interface {
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindLatest(ctx context.Context, limit int) ([]model.Order, error)
	ListMetrics(ctx context.Context, start, end *time.Time) ([]model.ExecutionMetric, error)
}

// LatestOrdersHandler lists recent orders, newest first. Supports ?limit=.
func LatestOrdersHandler(repo orderFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		orders, err := repo.FindLatest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("Failed to list orders")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// GetOrderHandler fetches one order, including its execution metric.
func GetOrderHandler(repo orderFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderID")

		order, err := repo.FindByID(r.Context(), orderID)
		if err != nil {
			logger.WithError(err).
				WithField("order_id", orderID).
				Error("Failed to fetch order")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if order == nil {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// ListExecutionMetricsHandler lists execution metrics, optionally bounded by
// ?start= and ?end= (RFC3339).
func ListExecutionMetricsHandler(repo orderFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var start, end *time.Time

		if startParam := r.URL.Query().Get("start"); startParam != "" {
			parsed, err := time.Parse(time.RFC3339, startParam)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			start = &parsed
		}

		if endParam := r.URL.Query().Get("end"); endParam != "" {
			parsed, err := time.Parse(time.RFC3339, endParam)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			end = &parsed
		}

		metrics, err := repo.ListMetrics(r.Context(), start, end)
		if err != nil {
			logger.WithError(err).Error("Failed to list execution metrics")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, metrics)
	}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}
