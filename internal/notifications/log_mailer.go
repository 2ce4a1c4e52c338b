package notifications

import (
	"context"
	"errors"
	"log/slog"
)

var ErrSimulatedFailure = errors.New("mail provider down (simulated)")

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log  *slog.Logger
	fail bool
}

func NewLogMailer(log *slog.Logger, simulateFailure bool) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log, fail: simulateFailure}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.fail {
		return ErrSimulatedFailure
	}

	m.log.InfoContext(ctx, "mail.sent",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
