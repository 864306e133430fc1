package model

import "time"

// ExecutionMetric captures execution quality for one order, 1:1 with the
// orders table. The row is created alongside the order and finalized when
// the order reaches a terminal state.
type ExecutionMetric struct {
	OrderID          string     `gorm:"primaryKey;size:64;column:order_id" json:"order_id"`
	SubmissionTime   *time.Time `json:"submission_time,omitempty"`
	ExecutionTime    *time.Time `json:"execution_time,omitempty"`
	ExecutionLatency float64    `json:"execution_latency"`
	IntendedPrice    float64    `json:"intended_price"`
	ExecutionPrice   float64    `json:"execution_price"`
	PriceSlippage    float64    `json:"price_slippage"`
	OrderType        string     `gorm:"size:20" json:"order_type"`
	MarketImpact     float64    `json:"market_impact"`
	StrategyID       string     `gorm:"size:100;index" json:"strategy_id"`
	Success          bool       `gorm:"default:true" json:"success"`
}

func (ExecutionMetric) TableName() string {
	return "execution_metrics"
}
