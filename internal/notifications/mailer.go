// Package notifications renders and delivers transactional email.
package notifications

import "context"

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
