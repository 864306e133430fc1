package broker

import (
	"context"
	"fmt"
	"time"
)

// OrderRequest is the submission payload for one order.
type OrderRequest struct {
	Symbol        string   `json:"symbol"`
	Qty           float64  `json:"qty"`
	Side          string   `json:"side"` // "buy" or "sell"
	Type          string   `json:"type"` // market, limit, stop
	TimeInForce   string   `json:"time_in_force"`
	LimitPrice    *float64 `json:"limit_price,omitempty"`
	StopPrice     *float64 `json:"stop_price,omitempty"`
	ClientOrderID string   `json:"client_order_id,omitempty"`
}

// OrderInfo is the broker's view of one order.
type OrderInfo struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Side           string
	Qty            float64
	Status         string
	FilledQty      float64
	FilledAvgPrice float64
	SubmittedAt    *time.Time
	FilledAt       *time.Time
}

// AccountInfo is the broker's account snapshot.
type AccountInfo struct {
	PortfolioValue float64
	Equity         float64
	LastEquity     float64
	Cash           float64
}

// Position is one open holding.
type Position struct {
	Symbol      string
	Qty         float64
	MarketValue float64
}

// Client is the brokerage API surface the engine depends on. Every call may
// fail with a transport error; the engine owns the retry protocol.
type Client interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderInfo, error)
	GetOrderStatus(ctx context.Context, orderID string) (*OrderInfo, error)
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, ticker string) (*Position, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAllOrders(ctx context.Context) error
	Close() error
}

// APIError is a non-2xx response from the brokerage API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker API error: HTTP %d: %s", e.StatusCode, e.Body)
}
