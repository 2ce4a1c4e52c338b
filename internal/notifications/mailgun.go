package notifications

import (
	"context"
	"fmt"

	mg "github.com/mailgun/mailgun-go/v4"
)

type MailgunMailer struct {
	client *mg.MailgunImpl
	from   string
}

func NewMailgunMailer(domain, apiKey, from string) *MailgunMailer {
	return &MailgunMailer{client: mg.NewMailgun(domain, apiKey), from: from}
}

func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	message := m.client.NewMessage(m.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	if _, _, err := m.client.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
