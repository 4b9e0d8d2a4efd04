// Package errors defines the domain error taxonomy shared by services and handlers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DomainError for retry decisions and status mapping.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindBusiness
	KindNotFound
	KindForbidden
	KindConflict
	KindRetryable
	KindUnavailable
	KindUnauthorized
)

// DomainError is a coded error. Two DomainErrors match under errors.Is when their codes match,
// so wrapped or detailed copies still compare equal to the sentinel.
type DomainError struct {
	Code    string
	Message string
	Kind    Kind
	Cause   error
	// Fields holds per-field messages for validation failures
	Fields map[string]string
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is reports whether target carries the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may retry the same request.
func (e *DomainError) Retryable() bool {
	return e.Kind == KindRetryable
}

// WithMessage returns a copy of e with a more specific message.
func (e *DomainError) WithMessage(msg string) *DomainError {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithFields returns a copy of e carrying per-field messages.
func (e *DomainError) WithFields(fields map[string]string) *DomainError {
	cp := *e
	cp.Fields = fields
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// As extracts the DomainError from err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindServer for anything unclassified.
func KindOf(err error) Kind {
	if de, ok := As(err); ok {
		return de.Kind
	}
	return KindServer
}

// IsRetryable reports whether err is a DomainError the caller may retry.
func IsRetryable(err error) bool {
	de, ok := As(err)
	return ok && de.Retryable()
}

// Validation builds a VALIDATION_ERROR for a single field.
func Validation(field, message string) *DomainError {
	return ErrValidation.WithMessage(fmt.Sprintf("%s: %s", field, message))
}

var (
	ErrValidation = &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "invalid request",
		Kind:    KindValidation,
	}
	ErrPersistence = &DomainError{
		Code:    "PERSISTENCE_FAILURE",
		Message: "failed to persist changes",
		Kind:    KindServer,
	}
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "not allowed to access this resource",
		Kind:    KindForbidden,
	}
	ErrInternal = &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
		Kind:    KindServer,
	}
	ErrUnavailable = &DomainError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: "service is not configured",
		Kind:    KindUnavailable,
	}
)
