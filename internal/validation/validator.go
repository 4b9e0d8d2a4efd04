// Package validation collects field errors for request and domain input.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "fraudshield/internal/errors"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validator defines validation methods
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error to the validator. The first message per field wins.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns nil when valid, otherwise a VALIDATION_ERROR carrying the field messages.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	msg := "invalid request"
	if len(v.Errors) == 1 {
		for field, m := range v.Errors {
			msg = fmt.Sprintf("%s: %s", field, m)
		}
	}
	return apperrors.ErrValidation.WithMessage(msg).WithFields(v.Errors)
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(strings.TrimSpace(email)), field, "must be a valid email address")
}

// Required checks if a string is not empty
func (v *Validator) Required(field string, value interface{}) {
	if value == nil {
		v.AddError(field, "must not be nil")
		return
	}

	switch val := value.(type) {
	case string:
		v.Check(strings.TrimSpace(val) != "", field, "must not be empty")
	case []string:
		v.Check(len(val) > 0, field, "must contain at least one item")
	case uint:
		v.Check(val != 0, field, "must not be zero")
	case decimal.Decimal:
		v.Check(!val.IsZero(), field, "must not be zero")
	}
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len([]rune(value)) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// OneOf checks that value is one of the allowed options
func (v *Validator) OneOf(field, value string, options ...string) {
	for _, o := range options {
		if value == o {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of %s", strings.Join(options, ", ")))
}

// Amount checks that a money amount is within limits and has at most two decimal places
func (v *Validator) Amount(field string, amount decimal.Decimal) {
	min := decimal.RequireFromString(MinTransactionAmount)
	max := decimal.RequireFromString(MaxTransactionAmount)

	v.Check(amount.IsPositive(), field, "must be greater than zero")
	v.Check(amount.Equal(amount.Round(AmountDecimalPlaces)),
		field, fmt.Sprintf("must have at most %d decimal places", AmountDecimalPlaces))
	v.Check(amount.GreaterThanOrEqual(min) && amount.LessThanOrEqual(max),
		field, fmt.Sprintf("must be between %s and %s", min.StringFixed(2), max.StringFixed(2)))
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	v.Check(len(password) >= MinPasswordLength, field,
		fmt.Sprintf("must be at least %d characters long", MinPasswordLength))
	v.Check(len(password) <= MaxPasswordLength, field,
		fmt.Sprintf("must not be more than %d characters long", MaxPasswordLength))

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	v.Check(hasUpper, field, "must contain at least one uppercase letter")
	v.Check(hasLower, field, "must contain at least one lowercase letter")
	v.Check(hasNumber, field, "must contain at least one number")
}
