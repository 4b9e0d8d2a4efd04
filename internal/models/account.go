package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account roles
const (
	RoleUser     = "user"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

// Account is a simulated customer account. Balance is owned by the ledger and never goes
// below zero; the check constraint backs that up at the database level.
type Account struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	Email        string          `gorm:"uniqueIndex;not null" json:"email"`
	Name         string          `gorm:"not null" json:"name"`
	Password     string          `gorm:"not null" json:"-"`
	Role         string          `gorm:"not null;default:'user'" json:"role"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_accounts_balance_non_negative,balance >= 0" json:"balance"`
	TokenVersion int             `gorm:"not null;default:1" json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
