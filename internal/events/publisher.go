package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// UsageEvent is published after a metered service call succeeds.
type UsageEvent struct {
	UserID    string    `json:"user_id"`
	Service   string    `json:"service"`
	Plan      string    `json:"plan"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Timestamp time.Time `json:"timestamp"`
}

// QuotaDeniedEvent is published when a request is refused for lack of quota.
type QuotaDeniedEvent struct {
	UserID    string    `json:"user_id"`
	Service   string    `json:"service"`
	Plan      string    `json:"plan"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Timestamp time.Time `json:"timestamp"`
}

// PlanChangedEvent is published when a user's plan changes.
type PlanChangedEvent struct {
	UserID    string    `json:"user_id"`
	Plan      string    `json:"plan"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher provides typed methods for publishing platform events to
// JetStream. A nil Publisher is valid and drops all events, so callers
// never need to guard for a missing NATS configuration.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishUsage publishes a usage event. Failures are logged, not returned:
// event delivery must never fail a user request.
func (p *Publisher) PublishUsage(ctx context.Context, event UsageEvent) {
	p.publish(ctx, SubjectUsage, event)
}

// PublishQuotaDenied publishes a quota denial event.
func (p *Publisher) PublishQuotaDenied(ctx context.Context, event QuotaDeniedEvent) {
	p.publish(ctx, SubjectQuotaDenied, event)
}

// PublishPlanChanged publishes a plan change event.
func (p *Publisher) PublishPlanChanged(ctx context.Context, event PlanChangedEvent) {
	p.publish(ctx, SubjectPlanChanged, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) {
	if p == nil || p.js == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshaling event", "subject", subject, "error", err)
		return
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		slog.Error("publishing event", "subject", subject, "error", err)
	}
}
