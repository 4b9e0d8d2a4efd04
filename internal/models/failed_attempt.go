package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FailedAttempt is the audit entry for a submission the ledger rejected. It never counts as
// a settled transaction.
type FailedAttempt struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	SenderID       uint            `gorm:"not null;index" json:"sender_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2)" json:"amount"`
	Merchant       string          `json:"merchant,omitempty"`
	Category       string          `json:"category"`
	TransferKind   string          `json:"transfer_kind"`
	RecipientEmail string          `json:"recipient_email,omitempty"`
	IdempotencyKey string          `gorm:"index" json:"idempotency_key"`
	Status         string          `gorm:"not null;default:'failed'" json:"status"`
	ErrorCode      string          `gorm:"not null" json:"error_code"`
	ErrorMessage   string          `json:"error_message"`
	RiskScore      float64         `json:"risk_score"`
	CreatedAt      time.Time       `json:"created_at"`
}
