// Package events publishes domain events (user registrations, course
// changes) to a message broker. Publishing is best-effort: a broker
// failure is logged and never fails the originating request.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event names emitted by the platform.
const (
	UserRegistered = "user.registered"
	CourseCreated  = "course.created"
	CourseUpdated  = "course.updated"
	CourseDeleted  = "course.deleted"
)

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// envelope is the wire shape of every published event.
type envelope struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher emits domain events to a single configured channel.
// A nil Publisher (or one constructed with a nil backend) is a no-op,
// so callers never need to branch on whether events are enabled.
type Publisher struct {
	backend Backend
	channel string
	logger  *slog.Logger
}

// NewPublisher constructs a Publisher for the provided backend and
// channel. backend may be nil to disable event publishing.
func NewPublisher(backend Backend, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{backend: backend, channel: channel, logger: logger}
}

// Emit publishes a named event with the given payload. Failures are
// logged, not returned: events must never affect request outcomes.
func (p *Publisher) Emit(ctx context.Context, name string, payload any) {
	if p == nil || p.backend == nil {
		return
	}

	data, err := json.Marshal(envelope{
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		p.logger.Error("marshal event", "event", name, "error", err)
		return
	}

	attrs := map[string]string{"event": name}
	if _, err := p.backend.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.Error("publish event", "event", name, "error", err)
	}
}

// Close closes the underlying backend, if any.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
