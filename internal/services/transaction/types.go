package transaction

import (
	"strings"

	"fraudshield/internal/models"
	"fraudshield/internal/validation"

	"github.com/shopspring/decimal"
)

// Attempt is a payment or transfer submitted by the sender.
type Attempt struct {
	Amount         decimal.Decimal
	Merchant       string
	Category       string
	Location       string
	DeviceID       string
	NetworkOrigin  string
	TransferKind   string
	RecipientEmail string
	// IdempotencyKey is generated when empty
	IdempotencyKey string
}

// Normalize trims free-text fields and fills the P2P merchant label.
func (a *Attempt) Normalize() {
	a.Merchant = strings.TrimSpace(a.Merchant)
	a.Category = strings.TrimSpace(a.Category)
	a.Location = strings.TrimSpace(a.Location)
	a.DeviceID = strings.TrimSpace(a.DeviceID)
	a.NetworkOrigin = strings.TrimSpace(a.NetworkOrigin)
	a.TransferKind = strings.ToLower(strings.TrimSpace(a.TransferKind))
	a.RecipientEmail = strings.TrimSpace(a.RecipientEmail)
	a.IdempotencyKey = strings.TrimSpace(a.IdempotencyKey)
	if a.TransferKind == models.TransferKindP2PTransfer && a.Merchant == "" {
		a.Merchant = models.P2PMerchantLabel
	}
}

// Validate returns a VALIDATION_ERROR describing every invalid field.
func (a *Attempt) Validate() error {
	v := validation.New()

	v.Amount("amount", a.Amount)
	v.Required("category", a.Category)
	v.MaxLength("category", a.Category, validation.MaxCategoryLength)
	v.OneOf("transfer_kind", a.TransferKind, models.TransferKindPayment, models.TransferKindP2PTransfer)
	v.MaxLength("merchant", a.Merchant, validation.MaxMerchantLength)
	v.MaxLength("location", a.Location, validation.MaxLocationLength)
	v.MaxLength("idempotency_key", a.IdempotencyKey, validation.MaxKeyLength)

	switch a.TransferKind {
	case models.TransferKindPayment:
		v.Required("merchant", a.Merchant)
	case models.TransferKindP2PTransfer:
		v.Required("recipient_email", a.RecipientEmail)
		if a.RecipientEmail != "" {
			v.Email("recipient_email", a.RecipientEmail)
		}
	}

	return v.Err()
}

// Result is returned to the caller after a submission settles.
type Result struct {
	TransactionID string          `json:"transaction_id"`
	RiskScore     float64         `json:"risk_score"`
	RiskLevel     string          `json:"risk_level"`
	Flagged       bool            `json:"flagged"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Replayed      bool            `json:"replayed"`
}

func resultFrom(txn *models.Transaction, replayed bool) *Result {
	return &Result{
		TransactionID: txn.ID,
		RiskScore:     txn.RiskScore,
		RiskLevel:     txn.RiskLevel,
		Flagged:       txn.IsFraudulent,
		Status:        txn.Status,
		Amount:        txn.Amount,
		Replayed:      replayed,
	}
}

// MetricsCollector defines the interface for collecting recorder metrics
type MetricsCollector interface {
	RecordAssessment(level string, flagged bool, score float64)
	RecordFailedAttempt(kind, code string)
	RecordIdempotentHit(source string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordAssessment(string, bool, float64) {}
func (n *NoopMetricsCollector) RecordFailedAttempt(string, string)    {}
func (n *NoopMetricsCollector) RecordIdempotentHit(string)            {}
