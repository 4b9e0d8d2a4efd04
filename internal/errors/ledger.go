package errors

var (
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds",
		Kind:    KindBusiness,
	}
	ErrInvalidRecipient = &DomainError{
		Code:    "INVALID_RECIPIENT",
		Message: "invalid recipient email",
		Kind:    KindBusiness,
	}
	ErrSelfTransfer = &DomainError{
		Code:    "SELF_TRANSFER_REJECTED",
		Message: "cannot transfer money to yourself",
		Kind:    KindBusiness,
	}
	ErrConcurrencyConflict = &DomainError{
		Code:    "CONCURRENCY_CONFLICT",
		Message: "account is busy, retry the request",
		Kind:    KindRetryable,
	}
	ErrIdentityResolution = &DomainError{
		Code:    "IDENTITY_RESOLUTION_FAILED",
		Message: "failed to resolve recipient",
		Kind:    KindServer,
	}
	ErrAccountNotFound = &DomainError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "account not found",
		Kind:    KindNotFound,
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
		Kind:    KindNotFound,
	}
)
