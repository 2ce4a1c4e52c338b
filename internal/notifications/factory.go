package notifications

import (
	"log/slog"
	"time"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/observability"
)

// FromConfig builds the configured provider wrapped in a ProtectedMailer.
// kind labels the metrics of this sender ("reset", "welcome").
func FromConfig(cfg config.Config, log *slog.Logger, prom *observability.Prom, kind string) *ProtectedMailer {
	var inner Mailer
	switch cfg.MailDriver {
	case "mailgun":
		inner = NewMailgunMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom)
	default:
		inner = NewLogMailer(log, cfg.MailSimulateFailure)
	}

	return NewProtectedMailer(inner, ProtectedMailerConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
		Kind:             kind,
	}, prom)
}
