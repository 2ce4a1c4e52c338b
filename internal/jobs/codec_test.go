package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/tourhub/internal/notifications"
)

func TestNewJob_EncodeDecodeWelcome(t *testing.T) {
	payload := WelcomeEmailPayload{UserID: "u1", Email: "ana@example.com", Name: "Ana", URL: "http://localhost/me"}

	j, err := NewJob(JobWelcomeEmail, payload, time.Now())
	if err != nil {
		t.Fatalf("NewJob error: %v", err)
	}
	if j.MaxAttempts != DefaultMaxAttempts || j.Attempts != 0 {
		t.Fatalf("unexpected defaults: %+v", j)
	}

	b, err := Marshal(j)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	back, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	decoded, err := DecodePayload(back)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	p, ok := decoded.(WelcomeEmailPayload)
	if !ok {
		t.Fatalf("expected WelcomeEmailPayload, got %T", decoded)
	}
	if p != payload {
		t.Fatalf("expected %+v, got %+v", payload, p)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobWelcomeEmail, struct{ X string }{"x"})
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestNewJob_RequiresIDs(t *testing.T) {
	_, err := NewJob(JobWelcomeEmail, WelcomeEmailPayload{Email: "a@b.io"}, time.Now())
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
	if !Permanent(err) {
		t.Fatal("invalid payload must be permanent")
	}
}

func TestUnmarshal_UnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"id":"1","type":"nope","payload":{}}`))
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

type recordingMailer struct {
	sent []notifications.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notifications.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestDispatcher_SendsWelcome(t *testing.T) {
	m := &recordingMailer{}
	j, err := NewJob(JobWelcomeEmail, WelcomeEmailPayload{UserID: "u1", Email: "ana@example.com", Name: "Ana Lima"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if err := NewDispatcher(m).Handle(context.Background(), j); err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(m.sent) != 1 || m.sent[0].To != "ana@example.com" {
		t.Fatalf("unexpected sends: %+v", m.sent)
	}
}

func TestDispatcher_PropagatesSendError(t *testing.T) {
	m := &recordingMailer{err: errors.New("down")}
	j, _ := NewJob(JobWelcomeEmail, WelcomeEmailPayload{UserID: "u1", Email: "ana@example.com"}, time.Now())

	err := NewDispatcher(m).Handle(context.Background(), j)
	if err == nil || Permanent(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}
