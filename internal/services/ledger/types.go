package ledger

import (
	"context"
	"time"

	"fraudshield/internal/config"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"

	"github.com/shopspring/decimal"
)

// SettlementRequest asks the ledger to move Amount out of the sender's account.
type SettlementRequest struct {
	SenderID uint
	Kind     string
	Amount   decimal.Decimal
	// RecipientEmail is required for p2p transfers and ignored for payments
	RecipientEmail string
	IdempotencyKey string
}

// Posting describes the balance changes applied inside the settlement transaction.
type Posting struct {
	SenderID         uint
	RecipientID      *uint
	Amount           decimal.Decimal
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// RecordFunc writes the transaction record using repo, inside the same database
// transaction as the posting. Returning an error rolls the posting back.
type RecordFunc func(ctx context.Context, repo repositories.LedgerRepository, posting Posting) (*models.Transaction, error)

// Settlement is the outcome of a successful Settle call.
type Settlement struct {
	Transaction   *models.Transaction
	SenderBalance decimal.Decimal
	// Replayed is set when the idempotency key was already settled and nothing changed
	Replayed bool
	Attempts int
}

// FundingResult is the outcome of a successful Fund call.
type FundingResult struct {
	Funding  *models.Funding
	Balance  decimal.Decimal
	Replayed bool
}

// Config holds the retry settings for conflicting settlements.
type Config struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryJitter    float64
}

// DefaultConfig returns the built-in retry settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryJitter:    DefaultRetryJitter,
	}
}

// LoadConfig reads LEDGER_MAX_RETRIES and LEDGER_RETRY_BASE_DELAY.
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = config.GetIntEnv("LEDGER_MAX_RETRIES", cfg.MaxAttempts)
	cfg.RetryBaseDelay = config.GetDurationEnv("LEDGER_RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	return cfg
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	RecordSettlement(kind, outcome string, duration time.Duration)
	RecordConflictRetry(kind string)
	RecordVolume(kind string, amount decimal.Decimal)
}
