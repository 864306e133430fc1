package model

import "time"

// FailedTrade recovery statuses. Resolved and failed are terminal.
const (
	FailedTradeStatusPending  = "pending"
	FailedTradeStatusRetry    = "retry"
	FailedTradeStatusResolved = "resolved"
	FailedTradeStatusFailed   = "failed"
)

// FailedTrade persists a trade signal that could not be executed, so the
// recovery task can rebuild and resubmit it out of band. TradeSignal holds
// the signal's exact serialized form.
type FailedTrade struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TradeSignal  string     `gorm:"type:text;column:trade_signal" json:"trade_signal"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	Timestamp    time.Time  `gorm:"index" json:"timestamp"`
	RetryCount   int        `gorm:"default:0" json:"retry_count"`
	Status       string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	LastRetry    *time.Time `json:"last_retry,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

func (FailedTrade) TableName() string {
	return "failed_trades"
}
