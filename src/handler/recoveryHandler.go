package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
)

type failedTradeFinder interface {
	FindLatest(ctx context.Context, limit int) ([]model.FailedTrade, error)
}

type errorLogFinder interface {
	FindLatest(ctx context.Context, limit int) ([]model.ErrorLogEntry, error)
}

// LatestFailedTradesHandler lists recent failed trades, newest first.
func LatestFailedTradesHandler(repo failedTradeFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		records, err := repo.FindLatest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("Failed to list failed trades")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}

// LatestErrorLogHandler lists recent error-log entries, newest first.
func LatestErrorLogHandler(repo errorLogFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		entries, err := repo.FindLatest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("Failed to list error log entries")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}
