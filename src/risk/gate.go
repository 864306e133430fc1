package risk

import (
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/signal"
)

// Regular session bounds in the exchange's local time.
const (
	sessionOpenHour   = 9
	sessionOpenMinute = 30
	sessionCloseHour  = 16
)

// Gate validates every trade signal immediately before submission. A signal
// that fails the gate never reaches the broker.
type Gate struct {
	cfg Config
	loc *time.Location
	now func() time.Time
}

// NewGate builds a gate for the configured market timezone. The location
// falls back to UTC if the timezone database is unavailable.
func NewGate(cfg Config) *Gate {
	loc, err := time.LoadLocation(cfg.MarketTimezone)
	if err != nil {
		logger.WithError(err).
			WithField("timezone", cfg.MarketTimezone).
			Warn("Failed to load market timezone, falling back to UTC")
		loc = time.UTC
	}

	return &Gate{cfg: cfg, loc: loc, now: time.Now}
}

// WithClock overrides the gate's clock. Useful for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	clone := *g
	clone.now = now
	return &clone
}

// MarketOpen reports whether t falls inside the 09:30-16:00 session in the
// exchange's local calendar, bounds inclusive.
func (g *Gate) MarketOpen(t time.Time) bool {
	local := t.In(g.loc)

	h, m := local.Hour(), local.Minute()
	afterOpen := h > sessionOpenHour || (h == sessionOpenHour && m >= sessionOpenMinute)
	beforeClose := h < sessionCloseHour || (h == sessionCloseHour && m == 0 && local.Second() == 0)

	return afterOpen && beforeClose
}

// CheckSession rejects when the current instant falls outside the regular
// trading session.
func (g *Gate) CheckSession() error {
	now := g.now()
	if !g.MarketOpen(now) {
		return &MarketClosedError{At: now.In(g.loc)}
	}
	return nil
}

// CheckLimits runs the value and loss rules for one signal:
//  1. order value vs max position size and absolute order-value cap
//  2. running daily realized P&L vs the daily loss budget
//
// The first breached rule short-circuits with its typed rejection error.
func (g *Gate) CheckLimits(sig *signal.TradeSignal, portfolioValue, dailyPnL float64) error {
	qty := decimal.NewFromFloat(sig.Quantity)
	evalPrice := decimal.NewFromFloat(sig.EvaluationPrice())
	orderValue := qty.Mul(evalPrice)

	portfolio := decimal.NewFromFloat(portfolioValue)
	maxPosition := portfolio.Mul(decimal.NewFromFloat(g.cfg.MaxPositionSizePct))
	maxOrder := decimal.NewFromFloat(g.cfg.MaxOrderValue)

	if orderValue.GreaterThan(maxPosition) {
		logger.WithFields(map[string]interface{}{
			"ticker":      sig.Ticker,
			"order_value": orderValue.String(),
			"limit":       maxPosition.String(),
		}).Warn("Order value exceeds maximum position size")

		return &RiskLimitExceededError{
			OrderValue: orderValue.InexactFloat64(),
			Limit:      maxPosition.InexactFloat64(),
			Limited:    "max_position_size",
		}
	}

	if orderValue.GreaterThan(maxOrder) {
		logger.WithFields(map[string]interface{}{
			"ticker":      sig.Ticker,
			"order_value": orderValue.String(),
			"limit":       maxOrder.String(),
		}).Warn("Order value exceeds maximum order value")

		return &RiskLimitExceededError{
			OrderValue: orderValue.InexactFloat64(),
			Limit:      g.cfg.MaxOrderValue,
			Limited:    "max_order_value",
		}
	}

	lossBudget := portfolio.Mul(decimal.NewFromFloat(g.cfg.DailyLossLimitPct))
	if decimal.NewFromFloat(dailyPnL).LessThanOrEqual(lossBudget.Neg()) {
		logger.WithFields(map[string]interface{}{
			"daily_pnl": dailyPnL,
			"limit":     lossBudget.String(),
		}).Warn("Daily loss limit reached")

		return &DailyLossLimitError{
			DailyPnL: dailyPnL,
			Limit:    lossBudget.InexactFloat64(),
		}
	}

	return nil
}

// Validate runs the full gate: session first, then value and loss limits.
func (g *Gate) Validate(sig *signal.TradeSignal, portfolioValue, dailyPnL float64) error {
	if err := g.CheckSession(); err != nil {
		return err
	}
	return g.CheckLimits(sig, portfolioValue, dailyPnL)
}
