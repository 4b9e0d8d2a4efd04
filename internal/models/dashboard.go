package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStats summarises an account's sent transactions.
type AccountStats struct {
	Balance     decimal.Decimal `json:"balance"`
	Total       int64           `json:"total"`
	Fraudulent  int64           `json:"fraudulent"`
	SuccessRate float64         `json:"success_rate"`
	OpenCases   int64           `json:"open_cases"`
}

// Beneficiary is a P2P recipient aggregated over the sender's transfers.
type Beneficiary struct {
	AccountID        uint            `json:"account_id"`
	Email            string          `json:"email"`
	TotalSent        decimal.Decimal `json:"total_sent"`
	TransferCount    int64           `json:"transfer_count"`
	LastTransferDate time.Time       `json:"last_transfer_date"`
}

// MonthlySpending is the outgoing total for one calendar month.
type MonthlySpending struct {
	Month  string          `json:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
}

// SpendingSummary groups the recent months with their average.
type SpendingSummary struct {
	Months  []MonthlySpending `json:"months"`
	Total   decimal.Decimal   `json:"total"`
	Average decimal.Decimal   `json:"average"`
}
