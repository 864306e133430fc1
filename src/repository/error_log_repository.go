package repository

import (
	"context"
	"encoding/json"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// ErrorLogRepository handles the append-only error_log table.
type ErrorLogRepository struct {
	db *gorm.DB
}

// NewErrorLogRepository creates a new repository instance using the main
// read/write database.
func NewErrorLogRepository() *ErrorLogRepository {
	return &ErrorLogRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ErrorLogRepository) WithDB(db *gorm.DB) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

// Create appends one diagnostic record. additionalInfo is stored as JSON when
// present. Write failures are logged but also returned so callers can decide
// whether to escalate.
func (r *ErrorLogRepository) Create(
	ctx context.Context,
	orderID string,
	errorType string,
	message string,
	additionalInfo map[string]interface{},
) error {

	entry := &model.ErrorLogEntry{
		OrderID:      orderID,
		ErrorType:    errorType,
		ErrorMessage: message,
		Timestamp:    time.Now().UTC(),
	}

	if additionalInfo != nil {
		if raw, err := json.Marshal(additionalInfo); err == nil {
			entry.AdditionalInfo = string(raw)
		}
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "ErrorLogRepository",
			"op":         "Create",
			"order_id":   orderID,
			"error_type": errorType,
		}).WithError(err).Error("Failed to append error log entry")

		return err
	}

	return nil
}

// FindLatest returns the most recent error log entries, newest first.
func (r *ErrorLogRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.ErrorLogEntry, error) {

	if limit <= 0 {
		limit = 50
	}

	var entries []model.ErrorLogEntry

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "ErrorLogRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch error log entries")

		return nil, err
	}

	return entries, nil
}
