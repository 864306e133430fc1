package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/broker"
	"tradeengine/src/model"
	"tradeengine/src/repository"
	"tradeengine/src/risk"
	"tradeengine/src/signal"
)

// StrategyManualTrade marks signals entered by a human operator.
const StrategyManualTrade = "manual_trade"

// StrategyLiquidation marks signals synthesized by the liquidation paths.
const StrategyLiquidation = "liquidation"

type orderLedger interface {
	RecordNew(ctx context.Context, order *model.Order, seed repository.MetricSeed) error
	Update(ctx context.Context, order *model.Order) error
}

type failedTradeLedger interface {
	Create(ctx context.Context, serializedSignal, errorMessage string) (*model.FailedTrade, error)
	ListRecoverable(ctx context.Context, maxRetries int) ([]model.FailedTrade, error)
	MarkRetry(ctx context.Context, id uint, errorMessage string) error
	MarkTerminal(ctx context.Context, id uint, status string) error
}

type errorLogLedger interface {
	Create(ctx context.Context, orderID, errorType, message string, additionalInfo map[string]interface{}) error
}

// Engine owns the signal queue, the risk gate call, the submission and
// monitoring state machine and the recovery scheduler. Its two long-lived
// goroutines (queue consumer, recovery scheduler) start in New and stop in
// Shutdown; per-order monitor goroutines come and go while orders are
// submitted.
type Engine struct {
	cfg    Config
	broker broker.Client
	gate   *risk.Gate

	orders       orderLedger
	failedTrades failedTradeLedger
	errorLog     errorLogLedger

	queue  *signalQueue
	active *activeOrders

	pnlMu    sync.Mutex
	dailyPnL float64

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	monitors     sync.WaitGroup
	shutdownOnce sync.Once
}

// New builds the engine and starts its consumer and recovery goroutines.
// The caller is expected to call Shutdown exactly once when done; extra
// calls are harmless.
func New(
	cfg Config,
	client broker.Client,
	gate *risk.Gate,
	orders orderLedger,
	failedTrades failedTradeLedger,
	errorLog errorLogLedger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:          cfg,
		broker:       client,
		gate:         gate,
		orders:       orders,
		failedTrades: failedTrades,
		errorLog:     errorLog,
		queue:        newSignalQueue(),
		active:       newActiveOrders(),
		ctx:          ctx,
		cancel:       cancel,
	}

	e.wg.Add(2)
	go e.consumeLoop()
	go e.recoveryLoop()

	logger.WithFields(map[string]interface{}{
		"max_retries":       cfg.MaxRetries,
		"recovery_interval": cfg.RecoveryInterval.String(),
		"poll_interval":     cfg.PollInterval.String(),
	}).Info("Execution engine started")

	return e
}

// Enqueue appends a signal to the processing queue and returns immediately.
// The signal's eventual disposition is observable only through the ledger.
func (e *Engine) Enqueue(sig *signal.TradeSignal) {
	if !e.queue.push(sig) {
		logger.WithFields(map[string]interface{}{
			"ticker":      sig.Ticker,
			"strategy_id": sig.StrategyID,
		}).Warn("Trade signal rejected: engine is shut down")
		e.recordFailure(sig, errors.New("shutdown"))
		return
	}

	logger.WithFields(map[string]interface{}{
		"ticker":      sig.Ticker,
		"side":        sig.Side,
		"qty":         sig.Quantity,
		"strategy_id": sig.StrategyID,
	}).Info("Trade signal accepted for processing")
}

func (e *Engine) consumeLoop() {
	defer e.wg.Done()

	for {
		sig, ok := e.queue.pop(e.ctx)
		if !ok {
			return
		}
		if e.ctx.Err() != nil {
			// Shutdown won the race for this signal; fail it the same way as
			// the rest of the drained queue.
			e.recordFailure(sig, errors.New("shutdown"))
			continue
		}
		if _, err := e.Submit(e.ctx, sig); err != nil {
			logger.WithError(err).
				WithField("ticker", sig.Ticker).
				Error("Trade signal failed")
		}
	}
}

// Submit runs the full validate, place and track pipeline for one signal.
// Failures are persisted in the failed-trades queue before being returned.
func (e *Engine) Submit(ctx context.Context, sig *signal.TradeSignal) (*model.Order, error) {
	order, err := e.execute(ctx, sig)
	if err != nil {
		e.recordFailure(sig, err)
		return nil, err
	}
	return order, nil
}

// execute is the pipeline shared by Submit and the recovery task. It does
// not create failed-trade records itself: the caller decides whether a
// failure opens a new record or updates an existing one.
func (e *Engine) execute(ctx context.Context, sig *signal.TradeSignal) (*model.Order, error) {
	// Session check first: a closed market never contacts the broker at all.
	if err := e.gate.CheckSession(); err != nil {
		return nil, err
	}

	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch account info: %w", err)
	}

	if err := e.gate.CheckLimits(sig, account.PortfolioValue, e.currentDailyPnL()); err != nil {
		return nil, err
	}

	clientID := uuid.NewString()

	info, err := e.placeWithRetry(ctx, sig, clientID)
	if err != nil {
		return nil, err
	}

	order := orderModel(info)
	order.StrategyID = sig.StrategyID
	order.IsManual = sig.StrategyID == StrategyManualTrade

	seed := repository.MetricSeed{
		IntendedPrice: intendedPrice(sig),
		OrderType:     sig.OrderType,
		StrategyID:    sig.StrategyID,
	}

	if err := e.orders.RecordNew(ctx, order, seed); err != nil {
		// The broker accepted an order the ledger lost; cancel it rather than
		// leave it untracked.
		e.logError(info.ID, model.ErrorTypeDatabase, err.Error(), nil)
		cErr := e.cancelWithRetry(ctx, "cancel order", func(ctx context.Context) error {
			return e.broker.CancelOrder(ctx, info.ID)
		})
		if cErr != nil {
			e.logError(info.ID, model.ErrorTypeTransport, "cancel after ledger failure: "+cErr.Error(), nil)
		}
		return nil, err
	}

	e.active.set(clientID, info.ID)

	e.monitors.Add(1)
	go e.monitorOrder(info.ID, clientID)

	return order, nil
}

func (e *Engine) placeWithRetry(ctx context.Context, sig *signal.TradeSignal, clientID string) (*broker.OrderInfo, error) {
	req := broker.OrderRequest{
		Symbol:        sig.Ticker,
		Qty:           sig.Quantity,
		Side:          strings.ToLower(sig.Side),
		Type:          sig.OrderType,
		TimeInForce:   sig.TimeInForce,
		LimitPrice:    sig.LimitPrice,
		StopPrice:     sig.StopPrice,
		ClientOrderID: clientID,
	}

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		info, err := e.broker.PlaceOrder(ctx, req)
		if err == nil {
			return info, nil
		}
		lastErr = err

		if attempt < e.cfg.MaxRetries-1 {
			delay := e.cfg.retryDelay(attempt)
			logger.WithError(err).WithFields(map[string]interface{}{
				"ticker":  sig.Ticker,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warn("Order placement failed, retrying")

			if sleepCtx(ctx, delay) != nil {
				return nil, lastErr
			}
		}
	}

	return nil, fmt.Errorf("place order failed after %d attempts: %w", e.cfg.MaxRetries, lastErr)
}

// cancelWithRetry drives a broker cancellation through the same bounded
// retry protocol as placement.
func (e *Engine) cancelWithRetry(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if lastErr = call(ctx); lastErr == nil {
			return nil
		}

		if attempt < e.cfg.MaxRetries-1 {
			delay := e.cfg.retryDelay(attempt)
			logger.WithError(lastErr).WithFields(map[string]interface{}{
				"op":      op,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warn("Cancellation failed, retrying")

			if sleepCtx(ctx, delay) != nil {
				return lastErr
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, e.cfg.MaxRetries, lastErr)
}

// recordFailure persists a failed signal for out-of-band recovery. It uses a
// detached context so the record survives even when the caller's context has
// already been cancelled: no failure is ever silently dropped.
func (e *Engine) recordFailure(sig *signal.TradeSignal, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serialized, err := sig.Serialize()
	if err != nil {
		e.logError("", model.ErrorTypeUnexpected, "serialize failed signal: "+err.Error(), nil)
		return
	}

	if _, err := e.failedTrades.Create(ctx, serialized, cause.Error()); err != nil {
		e.logError("", model.ErrorTypeDatabase, "persist failed trade: "+err.Error(), map[string]interface{}{
			"ticker":      sig.Ticker,
			"strategy_id": sig.StrategyID,
			"cause":       cause.Error(),
		})
	}

	e.logError("", classifyError(cause), cause.Error(), map[string]interface{}{
		"ticker":      sig.Ticker,
		"strategy_id": sig.StrategyID,
	})
}

// logError appends to the error log on a detached context; a dead caller
// context must not lose diagnostics.
func (e *Engine) logError(orderID, errorType, message string, info map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = e.errorLog.Create(ctx, orderID, errorType, message, info)
}

func (e *Engine) currentDailyPnL() float64 {
	e.pnlMu.Lock()
	defer e.pnlMu.Unlock()
	return e.dailyPnL
}

// refreshDailyPnL recomputes the running daily P&L from account equity.
func (e *Engine) refreshDailyPnL(ctx context.Context) {
	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to refresh daily P&L")
		return
	}

	pnl := account.Equity - account.LastEquity

	e.pnlMu.Lock()
	e.dailyPnL = pnl
	e.pnlMu.Unlock()

	logger.WithField("daily_pnl", pnl).Info("Daily P&L updated")
}

// LiquidationResult is one ticker's outcome from a bulk liquidation.
type LiquidationResult struct {
	Ticker string
	Order  *model.Order
	Err    error
}

// LiquidatePosition sells the current holding of one ticker at market.
func (e *Engine) LiquidatePosition(ctx context.Context, ticker string) (*model.Order, error) {
	logger.WithField("ticker", ticker).Info("Liquidating position")

	position, err := e.broker.GetPosition(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch position %s: %w", ticker, err)
	}

	sig, err := signal.New(ticker, signal.SideSell, position.Qty, StrategyLiquidation, time.Now().UTC(), signal.Params{})
	if err != nil {
		return nil, err
	}

	return e.Submit(ctx, sig)
}

// LiquidateAllPositions sells every current holding. One ticker's failure
// never aborts the rest: each outcome is gathered and independently
// persisted through the usual failure path.
func (e *Engine) LiquidateAllPositions(ctx context.Context) ([]LiquidationResult, error) {
	logger.Info("Liquidating all positions")

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	results := make([]LiquidationResult, 0, len(positions))
	for _, position := range positions {
		result := LiquidationResult{Ticker: position.Symbol}

		sig, sErr := signal.New(position.Symbol, signal.SideSell, position.Qty, StrategyLiquidation, time.Now().UTC(), signal.Params{})
		if sErr != nil {
			result.Err = sErr
			logger.WithError(sErr).
				WithField("ticker", position.Symbol).
				Error("Failed to build liquidation signal")
			results = append(results, result)
			continue
		}

		order, subErr := e.Submit(ctx, sig)
		result.Order = order
		result.Err = subErr
		if subErr != nil {
			logger.WithError(subErr).
				WithField("ticker", position.Symbol).
				Error("Liquidation failed for position")
		}
		results = append(results, result)
	}

	return results, nil
}

// CancelAll clears the active-order index and asks the broker to cancel all
// open orders.
func (e *Engine) CancelAll(ctx context.Context) error {
	logger.Info("Canceling all open orders")

	e.active.clear()

	if err := e.cancelWithRetry(ctx, "cancel all orders", e.broker.CancelAllOrders); err != nil {
		logger.WithError(err).Error("Failed to cancel all orders")
		return err
	}
	return nil
}

// PortfolioSnapshot fetches and logs the current account state and holdings.
func (e *Engine) PortfolioSnapshot(ctx context.Context) (*broker.AccountInfo, []broker.Position, error) {
	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		return nil, nil, err
	}

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger.WithFields(map[string]interface{}{
		"cash":            account.Cash,
		"portfolio_value": account.PortfolioValue,
		"positions":       len(positions),
	}).Info("Portfolio snapshot")

	return account, positions, nil
}

// HandleStreamUpdate applies a broker-pushed order update through the ledger.
// Best effort: the poll loop remains the source of truth for order state.
func (e *Engine) HandleStreamUpdate(info broker.OrderInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order := orderModel(&info)
	if err := e.orders.Update(ctx, order); err != nil {
		return
	}

	if model.TerminalOrderStatus(order.Status) && info.ClientOrderID != "" {
		e.active.remove(info.ClientOrderID)
	}
}

// QueueDepth reports how many signals are waiting. Exposed for operators.
func (e *Engine) QueueDepth() int {
	return e.queue.len()
}

// Shutdown stops the recovery scheduler and the consumer, fails whatever is
// still queued with reason "shutdown", best-effort finalizes the status of
// every tracked active order and releases the broker client. Idempotent and
// safe to call without any prior Enqueue.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		logger.Info("Shutting down execution engine")

		e.cancel()
		e.queue.close()
		e.wg.Wait()
		e.monitors.Wait()

		for _, sig := range e.queue.drain() {
			e.recordFailure(sig, errors.New("shutdown"))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, orderID := range e.active.snapshot() {
			info, err := e.broker.GetOrderStatus(ctx, orderID)
			if err != nil {
				e.logError(orderID, model.ErrorTypeTransport, "final status check: "+err.Error(), nil)
				continue
			}
			if err := e.orders.Update(ctx, orderModel(info)); err != nil {
				e.logError(orderID, model.ErrorTypeDatabase, "final status update: "+err.Error(), nil)
			}
		}
		e.active.clear()

		if err := e.broker.Close(); err != nil {
			logger.WithError(err).Error("Failed to close broker client")
		}

		logger.Info("Execution engine shutdown complete")
	})
}

// orderModel maps the broker's view of an order onto the ledger row.
func orderModel(info *broker.OrderInfo) *model.Order {
	return &model.Order{
		OrderID:        info.ID,
		Ticker:         info.Symbol,
		Quantity:       info.Qty,
		Side:           info.Side,
		Status:         mapBrokerStatus(info.Status),
		SubmittedAt:    info.SubmittedAt,
		FilledAt:       info.FilledAt,
		FilledQty:      info.FilledQty,
		ExecutionPrice: info.FilledAvgPrice,
	}
}

// mapBrokerStatus folds the broker's status vocabulary onto the ledger's.
func mapBrokerStatus(status string) string {
	switch status {
	case "filled":
		return model.OrderStatusFilled
	case "partially_filled":
		return model.OrderStatusPartiallyFilled
	case "canceled", "cancelled", "expired":
		return model.OrderStatusCanceled
	case "rejected":
		return model.OrderStatusRejected
	case "new", "accepted", "pending_new", "accepted_for_bidding":
		return model.OrderStatusSubmitted
	default:
		return model.OrderStatusSubmitted
	}
}

// intendedPrice is the price the caller meant to trade at; market orders
// have none and report zero slippage downstream.
func intendedPrice(sig *signal.TradeSignal) float64 {
	switch sig.OrderType {
	case signal.OrderTypeLimit:
		if sig.LimitPrice != nil {
			return *sig.LimitPrice
		}
	case signal.OrderTypeStop:
		if sig.StopPrice != nil {
			return *sig.StopPrice
		}
	}
	return 0
}

// sleepCtx waits for d or until ctx is done, returning the context error in
// the latter case.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
