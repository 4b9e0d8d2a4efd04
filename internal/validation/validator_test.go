package validation

import (
	"testing"

	apperrors "fraudshield/internal/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Amount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"10", true},
		{"99.90", true},
		{"1000000.00", true},
		{"0", false},
		{"-5", false},
		{"0.001", false},
		{"12.345", false},
		{"1000000.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			v := New()
			v.Amount("amount", decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.valid, v.Valid(), v.Errors)
		})
	}
}

func TestValidator_Err(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.Required("category", "  ")
	v.Email("recipient_email", "not-an-email")
	err := v.Err()

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "must not be empty", de.Fields["category"])
	assert.Equal(t, "must be a valid email address", de.Fields["recipient_email"])
}

func TestValidator_FirstMessageWins(t *testing.T) {
	v := New()
	v.AddError("amount", "first")
	v.AddError("amount", "second")
	assert.Equal(t, "first", v.Errors["amount"])
	assert.EqualError(t, v.Err(), "amount: first")
}

func TestValidator_OneOf(t *testing.T) {
	v := New()
	v.OneOf("transfer_kind", "payment", "payment", "p2p_transfer")
	assert.True(t, v.Valid())

	v.OneOf("transfer_kind", "refund", "payment", "p2p_transfer")
	assert.Equal(t, "must be one of payment, p2p_transfer", v.Errors["transfer_kind"])
}

func TestValidator_Password(t *testing.T) {
	v := New()
	v.Password("password", "Secret123")
	assert.True(t, v.Valid())

	v = New()
	v.Password("password", "short")
	assert.False(t, v.Valid())
}

func TestValidator_Struct(t *testing.T) {
	type loginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Kind     string `json:"kind" validate:"omitempty,oneof=payment p2p_transfer"`
	}

	v := New()
	v.Struct(loginRequest{Email: "alice@example.com", Password: "Secret123"})
	assert.True(t, v.Valid())

	v = New()
	v.Struct(loginRequest{Email: "nope", Kind: "refund"})
	assert.Equal(t, "must be a valid email address", v.Errors["email"])
	assert.Equal(t, "is required", v.Errors["password"])
	assert.Equal(t, "must be one of payment, p2p_transfer", v.Errors["kind"])
}
