package transaction

import "time"

// Default configuration values
const (
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultPageSize       = 20
	MaxPageSize           = 100
	FailedAttemptsLimit   = 50
)

// Cache keys
const (
	IdempotencyCachePrefix = "idempotency"
)

// Error code stored on failed attempts that did not carry a domain code
const UnknownErrorCode = "INTERNAL_ERROR"
