package repository

import (
	"context"
	"errors"
	"math"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// MetricSeed carries the execution-metric fields known at submission time.
type MetricSeed struct {
	IntendedPrice float64
	OrderType     string
	StrategyID    string
}

// OrderRepository handles the orders table and its 1:1 execution metrics.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main
// read/write database.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// RecordNew inserts a broker-accepted order together with its initial
// execution-metric row in one transaction.
func (r *OrderRepository) RecordNew(
	ctx context.Context,
	order *model.Order,
	seed MetricSeed,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "RecordNew",
		"order_id": order.OrderID,
		"ticker":   order.Ticker,
		"side":     order.Side,
		"qty":      order.Quantity,
	}).Debug("Recording new order")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		metric := &model.ExecutionMetric{
			OrderID:        order.OrderID,
			SubmissionTime: order.SubmittedAt,
			IntendedPrice:  seed.IntendedPrice,
			OrderType:      seed.OrderType,
			StrategyID:     seed.StrategyID,
			Success:        true,
		}
		return tx.Create(metric).Error
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "RecordNew",
			"order_id": order.OrderID,
		}).WithError(err).Error("Failed to record new order")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "RecordNew",
		"order_id": order.OrderID,
	}).Info("Order recorded")

	return nil
}

// Update mutates an existing order row from the latest broker snapshot.
// When the update is terminal the execution metric is finalized: latency
// and slippage on a fill, success=false on a cancel or rejection.
func (r *OrderRepository) Update(
	ctx context.Context,
	order *model.Order,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Update",
		"order_id": order.OrderID,
		"status":   order.Status,
	}).Debug("Updating order")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":          order.Status,
			"filled_at":       order.FilledAt,
			"filled_qty":      order.FilledQty,
			"execution_price": order.ExecutionPrice,
		}
		if err := tx.Model(&model.Order{}).
			Where("order_id = ?", order.OrderID).
			Updates(updates).Error; err != nil {
			return err
		}

		switch order.Status {
		case model.OrderStatusFilled:
			return r.finalizeFilledMetric(tx, order)
		case model.OrderStatusCanceled, model.OrderStatusRejected:
			return tx.Model(&model.ExecutionMetric{}).
				Where("order_id = ?", order.OrderID).
				Update("success", false).Error
		}
		return nil
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "Update",
			"order_id": order.OrderID,
		}).WithError(err).Error("Failed to update order")

		return err
	}

	return nil
}

func (r *OrderRepository) finalizeFilledMetric(tx *gorm.DB, order *model.Order) error {
	var metric model.ExecutionMetric
	if err := tx.Where("order_id = ?", order.OrderID).First(&metric).Error; err != nil {
		return err
	}

	fillTime := order.FilledAt
	if fillTime == nil {
		now := time.Now().UTC()
		fillTime = &now
	}

	latency := 0.0
	if metric.SubmissionTime != nil {
		latency = fillTime.Sub(*metric.SubmissionTime).Seconds()
	}

	return tx.Model(&model.ExecutionMetric{}).
		Where("order_id = ?", order.OrderID).
		Updates(map[string]interface{}{
			"execution_time":    fillTime,
			"execution_latency": latency,
			"execution_price":   order.ExecutionPrice,
			"price_slippage":    Slippage(order.Side, metric.IntendedPrice, order.ExecutionPrice),
			"success":           true,
		}).Error
}

// Slippage is the signed percentage deviation between intended and executed
// price. Positive means the fill cost more than intended: executed above
// intended on a buy, below intended on a sell. Market orders have no intended
// price and report zero.
func Slippage(side string, intendedPrice, executedPrice float64) float64 {
	if intendedPrice == 0 {
		return 0
	}

	var pct float64
	switch side {
	case "buy":
		pct = (executedPrice - intendedPrice) / intendedPrice * 100
	case "sell":
		pct = (intendedPrice - executedPrice) / intendedPrice * 100
	default:
		return 0
	}

	// Stored rounded to four decimal places.
	return math.Round(pct*10000) / 10000
}

// FindByID fetches a single order with its metric.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByID(
	ctx context.Context,
	orderID string,
) (*model.Order, error) {

	var order model.Order

	err := r.db.WithContext(ctx).
		Preload("Metric").
		Where("order_id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":     "OrderRepository",
				"op":       "FindByID",
				"order_id": orderID,
			}).Info("Order not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "FindByID",
			"order_id": orderID,
		}).WithError(err).Error("Failed to fetch order")

		return nil, err
	}

	return &order, nil
}

// FindLatest returns the latest orders ordered from newest to oldest.
func (r *OrderRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.Order, error) {

	if limit <= 0 {
		limit = 20
	}

	var orders []model.Order

	err := r.db.WithContext(ctx).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "OrderRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest orders")

		return nil, err
	}

	return orders, nil
}

// ListMetrics returns execution metrics with their orders, optionally bounded
// by submission time.
func (r *OrderRepository) ListMetrics(
	ctx context.Context,
	start, end *time.Time,
) ([]model.ExecutionMetric, error) {

	query := r.db.WithContext(ctx).Model(&model.ExecutionMetric{})
	if start != nil {
		query = query.Where("submission_time >= ?", *start)
	}
	if end != nil {
		query = query.Where("submission_time <= ?", *end)
	}

	var metrics []model.ExecutionMetric
	if err := query.Order("submission_time ASC").Find(&metrics).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "ListMetrics",
		}).WithError(err).Error("Failed to fetch execution metrics")

		return nil, err
	}

	return metrics, nil
}
