package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer kinds
const (
	TransferKindPayment     = "payment"
	TransferKindP2PTransfer = "p2p_transfer"
)

// Transaction statuses
const (
	TransactionStatusApproved  = "approved"
	TransactionStatusFlagged   = "flagged"
	TransactionStatusDisputed  = "disputed"
	TransactionStatusCancelled = "cancelled"
	TransactionStatusFailed    = "failed"
)

// P2PMerchantLabel is stored as the merchant of P2P transfers.
const P2PMerchantLabel = "P2P Transfer"

// Transaction is the settled record of an attempt. It is written in the same database
// transaction as its balance mutation and only its status and dispute fields change later.
type Transaction struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID       uint            `gorm:"not null;index;uniqueIndex:idx_transactions_sender_idempotency" json:"sender_id"`
	RecipientID    *uint           `gorm:"index" json:"recipient_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Merchant       string          `json:"merchant"`
	Category       string          `gorm:"not null" json:"category"`
	TransferKind   string          `gorm:"not null" json:"transfer_kind"`
	RiskScore      float64         `gorm:"not null" json:"risk_score"`
	RiskLevel      string          `gorm:"not null" json:"risk_level"`
	IsFraudulent   bool            `gorm:"not null;default:false" json:"is_fraudulent"`
	Status         string          `gorm:"not null;default:'approved';index" json:"status"`
	Location       string          `json:"location,omitempty"`
	DeviceID       string          `json:"device_id,omitempty"`
	NetworkOrigin  string          `json:"network_origin,omitempty"`
	DisputeReason  *string         `json:"dispute_reason,omitempty"`
	IdempotencyKey string          `gorm:"not null;uniqueIndex:idx_transactions_sender_idempotency" json:"idempotency_key"`
	RiskFactors    JSON            `gorm:"type:jsonb" json:"risk_factors,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Involves reports whether the account sent or received the transaction.
func (t *Transaction) Involves(accountID uint) bool {
	if t.SenderID == accountID {
		return true
	}
	return t.RecipientID != nil && *t.RecipientID == accountID
}
