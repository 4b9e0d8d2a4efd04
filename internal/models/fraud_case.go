package models

import "time"

// Fraud case statuses
const (
	CaseStatusOpen          = "open"
	CaseStatusInvestigating = "investigating"
	CaseStatusResolved      = "resolved"
	CaseStatusDisputed      = "disputed"
	CaseStatusClosed        = "closed"
)

// FraudCase tracks the review of a reported transaction. Several cases may point at the
// same transaction.
type FraudCase struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID string    `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ReporterID    uint      `gorm:"not null;index" json:"reporter_id"`
	Status        string    `gorm:"not null;default:'open';index" json:"status"`
	Notes         string    `json:"notes"`
	Resolution    string    `json:"resolution,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
