package funding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// ErrLiveKey is returned when a live Stripe key is configured; top-ups only run in test mode.
var ErrLiveKey = errors.New("stripe: only test mode keys (sk_test_) are accepted")

// StripeCharger confirms PaymentIntents against the Stripe test mode API.
type StripeCharger struct {
	api           *client.API
	paymentMethod string
}

// NewStripeCharger creates a charger for a test mode secret key. paymentMethod is the test
// payment method confirmed on every intent, pm_card_visa when empty.
func NewStripeCharger(secretKey, paymentMethod string) (*StripeCharger, error) {
	if !strings.HasPrefix(secretKey, "sk_test_") {
		return nil, ErrLiveKey
	}
	if paymentMethod == "" {
		paymentMethod = DefaultTestPaymentMethod
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeCharger{api: api, paymentMethod: paymentMethod}, nil
}

func (c *StripeCharger) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.MinorUnits),
		Currency:           stripe.String(req.Currency),
		PaymentMethod:      stripe.String(c.paymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(fmt.Sprintf("FraudShield top-up for account %d", req.AccountID)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("account_id", strconv.FormatUint(uint64(req.AccountID), 10))

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return &Charge{Reference: stripeErr.RequestID, Succeeded: false, Status: string(stripeErr.Code)}, nil
		}
		return nil, err
	}
	return &Charge{
		Reference: intent.ID,
		Succeeded: intent.Status == stripe.PaymentIntentStatusSucceeded,
		Status:    string(intent.Status),
	}, nil
}
