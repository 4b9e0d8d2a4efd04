package errors

var (
	ErrCaseNotFound = &DomainError{
		Code:    "CASE_NOT_FOUND",
		Message: "fraud case not found",
		Kind:    KindNotFound,
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_CASE_TRANSITION",
		Message: "case cannot move to the requested status",
		Kind:    KindConflict,
	}
)
