package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeBackend struct {
	published [][]byte
	attrs     []map[string]string
	err       error
	closed    bool
}

func (f *fakeBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, data)
	f.attrs = append(f.attrs, attrs)
	return "msg-1", nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	backend := &fakeBackend{}
	publisher := NewPublisher(backend, "test-channel", slog.New(slog.NewTextHandler(io.Discard, nil)))

	publisher.Emit(context.Background(), CourseCreated, map[string]any{"course_id": 7})

	if len(backend.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(backend.published))
	}

	var env envelope
	if err := json.Unmarshal(backend.published[0], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Name != CourseCreated {
		t.Fatalf("event name: got %q", env.Name)
	}
	if env.OccurredAt.IsZero() {
		t.Fatal("missing occurred_at")
	}
	if backend.attrs[0]["event"] != CourseCreated {
		t.Fatalf("event attribute: got %q", backend.attrs[0]["event"])
	}
}

func TestEmitSwallowsBackendFailures(t *testing.T) {
	backend := &fakeBackend{err: errors.New("broker down")}
	publisher := NewPublisher(backend, "test-channel", slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must not panic or propagate; failure is logged only.
	publisher.Emit(context.Background(), UserRegistered, map[string]any{"user_id": 1})
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var publisher *Publisher
	publisher.Emit(context.Background(), UserRegistered, nil)
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	disabled := NewPublisher(nil, "test-channel", nil)
	disabled.Emit(context.Background(), UserRegistered, nil)
	if err := disabled.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCloseClosesBackend(t *testing.T) {
	backend := &fakeBackend{}
	publisher := NewPublisher(backend, "test-channel", nil)
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !backend.closed {
		t.Fatal("backend not closed")
	}
}
