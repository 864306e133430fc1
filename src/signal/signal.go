package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Side values accepted for a trade signal.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order kinds accepted for a trade signal.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
	OrderTypeStop   = "stop"
)

// Time-in-force values accepted by the broker.
const (
	TIFDay = "day"
	TIFGTC = "gtc"
	TIFOPG = "opg"
	TIFCLS = "cls"
	TIFIOC = "ioc"
	TIFFOK = "fok"
)

var validTimeInForce = map[string]bool{
	TIFDay: true, TIFGTC: true, TIFOPG: true, TIFCLS: true, TIFIOC: true, TIFFOK: true,
}

// ValidationError reports a trade signal that failed construction-time
// validation. These are never retried: a malformed signal cannot become
// valid later.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trade signal: %s %s", e.Field, e.Reason)
}

// TradeSignal is an immutable instruction to buy or sell one ticker.
// Instances are only built through New or Deserialize, so a TradeSignal in
// hand is always internally consistent.
type TradeSignal struct {
	Ticker      string    `json:"ticker"`
	Side        string    `json:"side"`
	Quantity    float64   `json:"quantity"`
	StrategyID  string    `json:"strategy_id"`
	Timestamp   time.Time `json:"timestamp"`
	Price       *float64  `json:"price,omitempty"`
	OrderType   string    `json:"order_type"`
	LimitPrice  *float64  `json:"limit_price,omitempty"`
	StopPrice   *float64  `json:"stop_price,omitempty"`
	TimeInForce string    `json:"time_in_force"`
}

// Params carries the optional fields of New.
type Params struct {
	Price       *float64
	OrderType   string // defaults to "market"
	LimitPrice  *float64
	StopPrice   *float64
	TimeInForce string // defaults to "gtc"
}

// New validates and builds a TradeSignal. Validation happens exactly once,
// here; the returned value is never mutated afterwards.
func New(ticker, side string, quantity float64, strategyID string, ts time.Time, p Params) (*TradeSignal, error) {
	if p.OrderType == "" {
		p.OrderType = OrderTypeMarket
	}
	if p.TimeInForce == "" {
		p.TimeInForce = TIFGTC
	}

	if ticker == "" {
		return nil, &ValidationError{Field: "ticker", Reason: "must not be empty"}
	}
	if side != SideBuy && side != SideSell {
		return nil, &ValidationError{Field: "side", Reason: "must be BUY or SELL"}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	switch p.OrderType {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop:
	default:
		return nil, &ValidationError{Field: "order_type", Reason: "must be market, limit or stop"}
	}
	if !validTimeInForce[p.TimeInForce] {
		return nil, &ValidationError{Field: "time_in_force", Reason: "is not a recognized value"}
	}
	if p.OrderType == OrderTypeLimit && p.LimitPrice == nil {
		return nil, &ValidationError{Field: "limit_price", Reason: "is required for limit orders"}
	}
	if p.OrderType == OrderTypeStop && p.StopPrice == nil {
		return nil, &ValidationError{Field: "stop_price", Reason: "is required for stop orders"}
	}

	return &TradeSignal{
		Ticker:      ticker,
		Side:        side,
		Quantity:    quantity,
		StrategyID:  strategyID,
		Timestamp:   ts,
		Price:       p.Price,
		OrderType:   p.OrderType,
		LimitPrice:  p.LimitPrice,
		StopPrice:   p.StopPrice,
		TimeInForce: p.TimeInForce,
	}, nil
}

// EvaluationPrice resolves the price the risk gate values the signal at:
// limit price for limit orders, stop price for stop orders, otherwise the
// reference price (zero when absent).
func (s *TradeSignal) EvaluationPrice() float64 {
	switch s.OrderType {
	case OrderTypeLimit:
		if s.LimitPrice != nil {
			return *s.LimitPrice
		}
	case OrderTypeStop:
		if s.StopPrice != nil {
			return *s.StopPrice
		}
	default:
		if s.Price != nil {
			return *s.Price
		}
	}
	return 0
}

// Serialize encodes the signal as JSON suitable for the failed_trades table.
// Timestamps keep nanosecond precision so Deserialize round-trips exactly.
func (s *TradeSignal) Serialize() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("serialize trade signal: %w", err)
	}
	return string(b), nil
}

// Deserialize rebuilds a TradeSignal from its serialized form and re-runs
// construction validation, so a recovered signal honors the same invariants
// as a fresh one.
func Deserialize(raw string) (*TradeSignal, error) {
	var decoded TradeSignal
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: "is not valid JSON: " + err.Error()}
	}

	return New(decoded.Ticker, decoded.Side, decoded.Quantity, decoded.StrategyID, decoded.Timestamp, Params{
		Price:       decoded.Price,
		OrderType:   decoded.OrderType,
		LimitPrice:  decoded.LimitPrice,
		StopPrice:   decoded.StopPrice,
		TimeInForce: decoded.TimeInForce,
	})
}
