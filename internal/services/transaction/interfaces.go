package transaction

import (
	"context"

	"fraudshield/internal/models"
)

// Service scores, settles and records transaction attempts.
type Service interface {
	// Submit scores the attempt and settles it together with its record. Flagged
	// attempts still settle; the flag is advisory.
	Submit(ctx context.Context, senderID uint, attempt Attempt) (*Result, error)

	// Get returns a transaction the account sent or received
	Get(ctx context.Context, accountID uint, id string) (*models.Transaction, error)
	List(ctx context.Context, accountID uint, limit, offset int) ([]models.Transaction, int64, error)
	ListFailedAttempts(ctx context.Context, accountID uint) ([]models.FailedAttempt, error)
}
