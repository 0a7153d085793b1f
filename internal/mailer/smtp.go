package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

var _ Mailer = (*SMTPMailer)(nil)

// SMTPMailer delivers mail over authenticated SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP creates an SMTP-backed mailer.
func NewSMTP(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send implements Mailer. DialAndSend has no context support, so the dial
// runs in a goroutine and the result is raced against ctx.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(gm)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email send canceled: %w", ctx.Err())
	}
}
