package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func submittedOrder(orderID string, at time.Time) *model.Order {
	return &model.Order{
		OrderID:     orderID,
		Ticker:      "AAPL",
		Quantity:    10,
		Side:        "buy",
		Status:      model.OrderStatusSubmitted,
		SubmittedAt: &at,
		StrategyID:  "momentum_v2",
	}
}

func TestOrderRepositoryRecordNewCreatesOrderAndMetric(t *testing.T) {
	repo := NewOrderRepository().WithDB(testDB(t))
	ctx := context.Background()

	at := time.Now().UTC()
	order := submittedOrder("ord-1", at)
	seed := MetricSeed{IntendedPrice: 150.25, OrderType: "limit", StrategyID: "momentum_v2"}

	require.NoError(t, repo.RecordNew(ctx, order, seed))

	stored, err := repo.FindByID(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, model.OrderStatusSubmitted, stored.Status)
	require.NotNil(t, stored.Metric)
	require.Equal(t, 150.25, stored.Metric.IntendedPrice)
	require.Equal(t, "limit", stored.Metric.OrderType)
	require.True(t, stored.Metric.Success)
	require.Nil(t, stored.Metric.ExecutionTime)
}

func TestOrderRepositoryFindByIDNotFound(t *testing.T) {
	repo := NewOrderRepository().WithDB(testDB(t))

	order, err := repo.FindByID(context.Background(), "no-such-order")
	require.NoError(t, err)
	require.Nil(t, order)
}

func TestOrderRepositoryUpdateFillFinalizesMetric(t *testing.T) {
	repo := NewOrderRepository().WithDB(testDB(t))
	ctx := context.Background()

	submitted := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	order := submittedOrder("ord-1", submitted)
	require.NoError(t, repo.RecordNew(ctx, order, MetricSeed{
		IntendedPrice: 150.25,
		OrderType:     "limit",
		StrategyID:    "momentum_v2",
	}))

	// A partial fill keeps the order open and the metric untouched.
	partial := *order
	partial.Status = model.OrderStatusPartiallyFilled
	partial.FilledQty = 4
	partial.ExecutionPrice = 150.30
	require.NoError(t, repo.Update(ctx, &partial))

	stored, err := repo.FindByID(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPartiallyFilled, stored.Status)
	require.Equal(t, float64(4), stored.FilledQty)
	require.Nil(t, stored.Metric.ExecutionTime)

	filledAt := submitted.Add(2500 * time.Millisecond)
	filled := *order
	filled.Status = model.OrderStatusFilled
	filled.FilledQty = 10
	filled.FilledAt = &filledAt
	filled.ExecutionPrice = 150.30
	require.NoError(t, repo.Update(ctx, &filled))

	stored, err = repo.FindByID(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusFilled, stored.Status)
	require.Equal(t, 2.5, stored.Metric.ExecutionLatency)
	require.Equal(t, 150.30, stored.Metric.ExecutionPrice)
	// (150.30 - 150.25) / 150.25 * 100, rounded to four decimals.
	require.Equal(t, 0.0333, stored.Metric.PriceSlippage)
	require.True(t, stored.Metric.Success)
}

func TestOrderRepositoryUpdateRejectionMarksMetricUnsuccessful(t *testing.T) {
	repo := NewOrderRepository().WithDB(testDB(t))
	ctx := context.Background()

	at := time.Now().UTC()
	order := submittedOrder("ord-1", at)
	require.NoError(t, repo.RecordNew(ctx, order, MetricSeed{OrderType: "market", StrategyID: "momentum_v2"}))

	rejected := *order
	rejected.Status = model.OrderStatusRejected
	require.NoError(t, repo.Update(ctx, &rejected))

	stored, err := repo.FindByID(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusRejected, stored.Status)
	require.False(t, stored.Metric.Success)
}

func TestOrderRepositoryFindLatestNewestFirst(t *testing.T) {
	repo := NewOrderRepository().WithDB(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		order := submittedOrder(fmt.Sprintf("ord-%d", i), at)
		require.NoError(t, repo.RecordNew(ctx, order, MetricSeed{OrderType: "market"}))
	}

	orders, err := repo.FindLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "ord-2", orders[0].OrderID)
	require.Equal(t, "ord-1", orders[1].OrderID)
}

func TestOrderRepositoryListMetricsByRange(t *testing.T) {
	repo := NewOrderRepository().WithDB(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		order := submittedOrder(fmt.Sprintf("ord-%d", i), at)
		require.NoError(t, repo.RecordNew(ctx, order, MetricSeed{OrderType: "market"}))
	}

	start := base.Add(30 * time.Minute)
	metrics, err := repo.ListMetrics(ctx, &start, nil)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	require.Equal(t, "ord-1", metrics[0].OrderID)

	end := base.Add(90 * time.Minute)
	metrics, err = repo.ListMetrics(ctx, &start, &end)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	require.Equal(t, "ord-1", metrics[0].OrderID)

	metrics, err = repo.ListMetrics(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, metrics, 3)
}

func TestSlippage(t *testing.T) {
	cases := []struct {
		name     string
		side     string
		intended float64
		executed float64
		want     float64
	}{
		{"buy fill above intended costs more", "buy", 100, 101, 1},
		{"buy fill below intended saves", "buy", 100, 99.5, -0.5},
		{"sell fill below intended costs more", "sell", 100, 99, 1},
		{"sell fill above intended saves", "sell", 100, 100.25, -0.25},
		{"market order has no intended price", "buy", 0, 101, 0},
		{"rounded to four decimals", "buy", 3, 3.001, 0.0333},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Slippage(tc.side, tc.intended, tc.executed))
		})
	}
}
