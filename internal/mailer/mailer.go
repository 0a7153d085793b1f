// Package mailer sends operator notification emails.
package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer abstracts the outbound email transport.
type Mailer interface {
	// Send delivers the message, honoring ctx for cancellation.
	Send(ctx context.Context, msg Message) error
}
