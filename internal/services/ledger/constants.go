package ledger

import "time"

// Default configuration values
const (
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 20 * time.Millisecond
	DefaultRetryJitter    = 0.25
)

// Settlement outcomes reported to metrics
const (
	OutcomeSettled  = "settled"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Provider names recorded on fundings
const (
	ProviderStripe = "stripe"
	ProviderManual = "manual"
)
