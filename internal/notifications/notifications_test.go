package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	calls int
	block bool
}

func (f *fakeMailer) Send(ctx context.Context, _ Message) error {
	f.mu.Lock()
	f.calls++
	err, block := f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func TestProtectedMailer_OpensAfterThreshold(t *testing.T) {
	inner := &fakeMailer{err: errors.New("provider down")}
	pm := NewProtectedMailer(inner, ProtectedMailerConfig{FailureThreshold: 2, Cooldown: time.Minute}, nil)

	ctx := context.Background()
	assert.Error(t, pm.Send(ctx, Message{}))
	assert.Error(t, pm.Send(ctx, Message{}))

	err := pm.Send(ctx, Message{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestProtectedMailer_HalfOpenRecovers(t *testing.T) {
	inner := &fakeMailer{err: errors.New("provider down")}
	pm := NewProtectedMailer(inner, ProtectedMailerConfig{FailureThreshold: 1, Cooldown: time.Minute}, nil)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pm.now = func() time.Time { return now }

	ctx := context.Background()
	require.Error(t, pm.Send(ctx, Message{}))
	require.ErrorIs(t, pm.Send(ctx, Message{}), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	inner.err = nil
	require.NoError(t, pm.Send(ctx, Message{}))
	require.NoError(t, pm.Send(ctx, Message{}))
	assert.Equal(t, 3, inner.calls)
}

func TestProtectedMailer_Timeout(t *testing.T) {
	inner := &fakeMailer{block: true}
	pm := NewProtectedMailer(inner, ProtectedMailerConfig{Timeout: 10 * time.Millisecond}, nil)

	err := pm.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogMailer_SimulatedFailure(t *testing.T) {
	assert.NoError(t, NewLogMailer(nil, false).Send(context.Background(), Message{To: "a@b.io"}))
	assert.ErrorIs(t, NewLogMailer(nil, true).Send(context.Background(), Message{To: "a@b.io"}), ErrSimulatedFailure)
}

func TestPasswordResetMessage(t *testing.T) {
	msg, err := PasswordResetMessage("jonas@example.com", "Jonas Schmedtmann", "http://localhost/api/v1/users/resetPassword/abc", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "jonas@example.com", msg.To)
	assert.Equal(t, "Your password reset token (valid for 10 minutes)", msg.Subject)
	assert.Contains(t, msg.Text, "Hi Jonas,")
	assert.Contains(t, msg.Text, "/resetPassword/abc")
	assert.Contains(t, msg.HTML, `href="http://localhost/api/v1/users/resetPassword/abc"`)
}

func TestWelcomeMessage(t *testing.T) {
	msg, err := WelcomeMessage("ana@example.com", "Ana", "http://localhost/me")
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Hi Ana,")
	assert.Contains(t, msg.HTML, "http://localhost/me")
}
