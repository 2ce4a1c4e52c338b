package jobs

import (
	"context"
	"fmt"

	"github.com/geocoder89/tourhub/internal/notifications"
)

// Dispatcher executes a decoded job.
type Dispatcher struct {
	mailer notifications.Mailer
}

func NewDispatcher(mailer notifications.Mailer) *Dispatcher {
	return &Dispatcher{mailer: mailer}
}

func (d *Dispatcher) Handle(ctx context.Context, j Job) error {
	payload, err := DecodePayload(j)
	if err != nil {
		return err
	}
	if err := ValidatePayload(j.Type, payload); err != nil {
		return err
	}

	switch p := payload.(type) {
	case WelcomeEmailPayload:
		msg, err := notifications.WelcomeMessage(p.Email, p.Name, p.URL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return d.mailer.Send(ctx, msg)
	default:
		return ErrInvalidJobType
	}
}
