package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Funding records a top-up credited to an account. Reference is the payment provider's id
// and is unique, so a replayed top-up never credits twice.
type Funding struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	AccountID uint            `gorm:"not null;index" json:"account_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Reference string          `gorm:"uniqueIndex;not null" json:"reference"`
	Provider  string          `gorm:"not null" json:"provider"`
	CreatedAt time.Time       `json:"created_at"`
}
