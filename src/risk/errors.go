package risk

import (
	"fmt"
	"time"
)

// MarketClosedError rejects a signal evaluated outside the market session.
type MarketClosedError struct {
	At time.Time
}

func (e *MarketClosedError) Error() string {
	return fmt.Sprintf("market closed at %s", e.At.Format(time.RFC3339))
}

// RiskLimitExceededError rejects an order whose value breaches either the
// per-position percentage cap or the absolute order-value cap.
type RiskLimitExceededError struct {
	OrderValue float64
	Limit      float64
	Limited    string // "max_position_size" or "max_order_value"
}

func (e *RiskLimitExceededError) Error() string {
	return fmt.Sprintf("order value %.2f exceeds %s limit %.2f", e.OrderValue, e.Limited, e.Limit)
}

// DailyLossLimitError rejects any further trading once the running daily
// realized P&L has breached the configured loss budget.
type DailyLossLimitError struct {
	DailyPnL float64
	Limit    float64
}

func (e *DailyLossLimitError) Error() string {
	return fmt.Sprintf("daily loss limit reached: pnl %.2f, limit -%.2f", e.DailyPnL, e.Limit)
}
