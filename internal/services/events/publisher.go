// Package events publishes domain events for realtime consumers.
package events

import (
	"context"
	"time"

	"fraudshield/internal/logger"
	"fraudshield/internal/repositories/cache"

	"github.com/google/uuid"
)

// DefaultChannel is the redis pub/sub channel events are published on.
const DefaultChannel = "fraudshield:events"

// Event types
const (
	TypeTransactionRecorded = "transaction.recorded"
	TypeTransactionDisputed = "transaction.disputed"
	TypeCaseOpened          = "case.opened"
	TypeCaseTransitioned    = "case.transitioned"
	TypeAccountFunded       = "account.funded"
)

// Event is the envelope sent to subscribers.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	AccountID  uint                   `json:"account_id"`
	SubjectID  string                 `json:"subject_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Publisher delivers events. Delivery is best-effort; callers never roll back on failure.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type cachePublisher struct {
	cache   cache.Cache
	channel string
}

// NewPublisher publishes events on a redis channel through c.
func NewPublisher(c cache.Cache, channel string) Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &cachePublisher{cache: c, channel: channel}
}

func (p *cachePublisher) Publish(ctx context.Context, event Event) error {
	return p.cache.Publish(ctx, p.channel, event)
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Emit fills in the envelope and publishes it, logging instead of returning failures.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("event_type", event.Type).
			Str("subject_id", event.SubjectID).
			Msg("failed to publish event")
	}
}
