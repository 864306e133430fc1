package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// FailedTradeRepository handles the failed_trades recovery queue.
type FailedTradeRepository struct {
	db *gorm.DB
}

// NewFailedTradeRepository creates a new repository instance using the main
// read/write database.
func NewFailedTradeRepository() *FailedTradeRepository {
	return &FailedTradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *FailedTradeRepository) WithDB(db *gorm.DB) *FailedTradeRepository {
	return &FailedTradeRepository{db: db}
}

// Create persists a signal that could not be executed, status pending, so the
// recovery task can pick it up.
func (r *FailedTradeRepository) Create(
	ctx context.Context,
	serializedSignal string,
	errorMessage string,
) (*model.FailedTrade, error) {

	record := &model.FailedTrade{
		TradeSignal:  serializedSignal,
		ErrorMessage: errorMessage,
		Timestamp:    time.Now().UTC(),
		Status:       model.FailedTradeStatusPending,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "FailedTradeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to log failed trade")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "FailedTradeRepository",
		"op":    "Create",
		"id":    record.ID,
		"error": errorMessage,
	}).Info("Failed trade recorded for recovery")

	return record, nil
}

// ListRecoverable returns failed trades still eligible for recovery, oldest
// first. Records marked retry stay eligible until their retry budget runs out.
func (r *FailedTradeRepository) ListRecoverable(
	ctx context.Context,
	maxRetries int,
) ([]model.FailedTrade, error) {

	var records []model.FailedTrade

	err := r.db.WithContext(ctx).
		Where("status IN ? AND retry_count < ?",
			[]string{model.FailedTradeStatusPending, model.FailedTradeStatusRetry},
			maxRetries).
		Order("timestamp ASC").
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "FailedTradeRepository",
			"op":   "ListRecoverable",
		}).WithError(err).Error("Failed to list recoverable trades")

		return nil, err
	}

	return records, nil
}

// MarkRetry records another failed recovery attempt: bumps the retry count,
// stamps last_retry and replaces the stored error.
func (r *FailedTradeRepository) MarkRetry(
	ctx context.Context,
	id uint,
	errorMessage string,
) error {

	now := time.Now().UTC()

	err := r.db.WithContext(ctx).
		Model(&model.FailedTrade{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.FailedTradeStatusRetry,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_retry":    now,
			"error_message": errorMessage,
		}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "FailedTradeRepository",
			"op":   "MarkRetry",
			"id":   id,
		}).WithError(err).Error("Failed to mark failed trade for retry")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo": "FailedTradeRepository",
		"op":   "MarkRetry",
		"id":   id,
	}).Info("Failed trade marked for retry")

	return nil
}

// MarkTerminal moves a record into one of its terminal statuses, resolved or
// failed, and stamps resolved_at.
func (r *FailedTradeRepository) MarkTerminal(
	ctx context.Context,
	id uint,
	status string,
) error {

	now := time.Now().UTC()

	err := r.db.WithContext(ctx).
		Model(&model.FailedTrade{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_at": now,
		}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "FailedTradeRepository",
			"op":     "MarkTerminal",
			"id":     id,
			"status": status,
		}).WithError(err).Error("Failed to update failed trade status")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "FailedTradeRepository",
		"op":     "MarkTerminal",
		"id":     id,
		"status": status,
	}).Info("Failed trade status updated")

	return nil
}

// FindLatest returns the most recent failed trades, newest first.
func (r *FailedTradeRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.FailedTrade, error) {

	if limit <= 0 {
		limit = 20
	}

	var records []model.FailedTrade

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "FailedTradeRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest failed trades")

		return nil, err
	}

	return records, nil
}
