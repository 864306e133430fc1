package model

import "time"

// Error types recorded in the error log.
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeRiskRejection = "risk_rejection"
	ErrorTypeTransport     = "transport_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeStatusTimeout = "status_check_timeout"
	ErrorTypeRecovery      = "recovery_error"
	ErrorTypeUnexpected    = "unexpected_error"
)

// ErrorLogEntry is an append-only diagnostic record. The engine only ever
// writes these; they exist for operators and reporting.
type ErrorLogEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        string    `gorm:"size:64;index" json:"order_id"`
	ErrorType      string    `gorm:"size:50;index" json:"error_type"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message"`
	Timestamp      time.Time `json:"timestamp"`
	AdditionalInfo string    `gorm:"type:text" json:"additional_info,omitempty"`
}

func (ErrorLogEntry) TableName() string {
	return "error_log"
}
