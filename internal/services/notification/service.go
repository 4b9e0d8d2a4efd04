// Package notification relays dispute notices to the operations mailbox.
package notification

import (
	"context"
	"fmt"
	"time"

	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories/cache"
)

// DefaultChannel is the redis channel the mail relay consumes.
const DefaultChannel = "fraudshield:notifications"

// Message is what the relay hands to the mailer.
type Message struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Service notifies administrators about disputes.
type Service interface {
	NotifyDispute(ctx context.Context, account *models.Account, txn *models.Transaction, reason string) error
}

type service struct {
	cache     cache.Cache
	channel   string
	recipient string
}

// NewService creates a relay publishing to channel. A nil cache only logs the notice.
func NewService(c cache.Cache, channel, recipient string) Service {
	if channel == "" {
		channel = DefaultChannel
	}
	return &service{cache: c, channel: channel, recipient: recipient}
}

// NotifyDispute sends a notice about the disputed transaction to the configured mailbox.
func (s *service) NotifyDispute(ctx context.Context, account *models.Account, txn *models.Transaction, reason string) error {
	msg := Message{
		To:      s.recipient,
		Subject: fmt.Sprintf("Transaction %s disputed", txn.ID),
		Body: fmt.Sprintf("Account %s disputed a %s %s transaction at %s.\nReason: %s",
			account.Email, txn.Amount.StringFixed(2), txn.TransferKind, txn.Merchant, reason),
		SentAt: time.Now().UTC(),
	}

	logger.FromContext(ctx).Info().
		Str("transaction_id", txn.ID).
		Uint("account_id", account.ID).
		Str("to", s.recipient).
		Msg("dispute notification")

	if s.cache == nil || s.recipient == "" {
		return nil
	}
	if err := s.cache.Publish(ctx, s.channel, msg); err != nil {
		return fmt.Errorf("publish dispute notification: %w", err)
	}
	return nil
}
