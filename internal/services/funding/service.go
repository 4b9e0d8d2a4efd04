// Package funding tops up simulated balances through a card payment in Stripe test mode.
package funding

import (
	"context"
	"fmt"
	"strings"

	"fraudshield/internal/config"
	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"
	"fraudshield/internal/services/events"
	"fraudshield/internal/services/ledger"
	"fraudshield/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency          = "gbp"
	DefaultTestPaymentMethod = "pm_card_visa"
)

// ChargeRequest is a single card charge in minor currency units.
type ChargeRequest struct {
	AccountID      uint
	MinorUnits     int64
	Currency       string
	IdempotencyKey string
}

// Charge is the provider's answer. Reference identifies the payment and keys the ledger credit.
type Charge struct {
	Reference string
	Succeeded bool
	Status    string
}

// Charger takes card payments.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// Result describes a completed top-up.
type Result struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Replayed  bool            `json:"replayed"`
}

type Service interface {
	// TopUp charges the card and credits the account once per idempotency key.
	TopUp(ctx context.Context, accountID uint, amount decimal.Decimal, idempotencyKey string) (*Result, error)
}

// Config holds funding settings.
type Config struct {
	StripeSecretKey string
	PaymentMethod   string
	Currency        string
}

// LoadConfig reads funding settings from the environment.
func LoadConfig() Config {
	return Config{
		StripeSecretKey: config.GetEnv("STRIPE_SECRET_KEY", ""),
		PaymentMethod:   config.GetEnv("STRIPE_TEST_PAYMENT_METHOD", DefaultTestPaymentMethod),
		Currency:        strings.ToLower(config.GetEnv("STRIPE_CURRENCY", DefaultCurrency)),
	}
}

// NewCharger builds the Stripe charger for cfg. It returns nil when no key is configured.
func NewCharger(cfg Config) (Charger, error) {
	if cfg.StripeSecretKey == "" {
		return nil, nil
	}
	charger, err := NewStripeCharger(cfg.StripeSecretKey, cfg.PaymentMethod)
	if err != nil {
		return nil, err
	}
	return charger, nil
}

type service struct {
	ledger   ledger.Service
	charger  Charger
	currency string
	events   events.Publisher
}

// NewService creates a funding service. A nil charger makes every top-up unavailable.
func NewService(ledgerSvc ledger.Service, charger Charger, currency string, publisher events.Publisher) Service {
	if currency == "" {
		currency = DefaultCurrency
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		ledger:   ledgerSvc,
		charger:  charger,
		currency: currency,
		events:   publisher,
	}
}

func (s *service) TopUp(ctx context.Context, accountID uint, amount decimal.Decimal, idempotencyKey string) (*Result, error) {
	if s.charger == nil {
		return nil, apperrors.ErrUnavailable.WithMessage("card funding is not configured")
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	v := validation.New()
	v.Amount("amount", amount)
	v.MaxLength("idempotency_key", idempotencyKey, validation.MaxKeyLength)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	log := logger.FromContext(ctx).With().
		Uint("account_id", accountID).
		Str("amount", amount.StringFixed(2)).
		Logger()

	charge, err := s.charger.Charge(ctx, ChargeRequest{
		AccountID:      accountID,
		MinorUnits:     amount.Shift(2).IntPart(),
		Currency:       s.currency,
		IdempotencyKey: fmt.Sprintf("topup:%d:%s", accountID, idempotencyKey),
	})
	if err != nil {
		log.Error().Err(err).Msg("card charge failed")
		return nil, apperrors.ErrFundingProvider.Wrap(err)
	}
	if !charge.Succeeded {
		log.Info().Str("status", charge.Status).Msg("card charge not completed")
		return nil, apperrors.ErrFundingDeclined.WithMessage(
			fmt.Sprintf("the card payment was not completed (%s)", charge.Status))
	}

	funded, err := s.ledger.Fund(ctx, accountID, amount, charge.Reference, ledger.ProviderStripe)
	if err != nil {
		log.Error().Err(err).Str("reference", charge.Reference).Msg("charged but not credited")
		return nil, err
	}

	result := &Result{
		Reference: charge.Reference,
		Amount:    funded.Funding.Amount,
		Balance:   funded.Balance,
		Replayed:  funded.Replayed,
	}
	if !result.Replayed {
		events.Emit(ctx, s.events, events.Event{
			Type:      events.TypeAccountFunded,
			AccountID: accountID,
			SubjectID: charge.Reference,
			Data: map[string]interface{}{
				"amount":  result.Amount.StringFixed(2),
				"balance": result.Balance.StringFixed(2),
			},
		})
	}
	return result, nil
}
