package model

import "time"

// Order status lifecycle. Filled, canceled and rejected are terminal.
const (
	OrderStatusNew             = "new"
	OrderStatusSubmitted       = "submitted"
	OrderStatusPartiallyFilled = "partially_filled"
	OrderStatusFilled          = "filled"
	OrderStatusCanceled        = "canceled"
	OrderStatusRejected        = "rejected"
)

// TerminalOrderStatus reports whether no further transition can occur.
func TerminalOrderStatus(status string) bool {
	switch status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	}
	return false
}

// Order is the durable record of a broker-accepted order. Rows are created at
// submission, mutated on every status poll and never deleted.
type Order struct {
	OrderID        string     `gorm:"primaryKey;size:64;column:order_id" json:"order_id"`
	Ticker         string     `gorm:"size:20;index" json:"ticker"`
	Quantity       float64    `json:"quantity"`
	Side           string     `gorm:"size:10" json:"side"`
	Status         string     `gorm:"size:30;not null;default:new;index" json:"status"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	FilledAt       *time.Time `json:"filled_at,omitempty"`
	FilledQty      float64    `json:"filled_qty"`
	StrategyID     string     `gorm:"size:100;index" json:"strategy_id"`
	ExecutionPrice float64    `json:"execution_price"`
	IsManual       bool       `gorm:"default:false" json:"is_manual"`

	Metric *ExecutionMetric `gorm:"foreignKey:OrderID;references:OrderID" json:"metric,omitempty"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}
