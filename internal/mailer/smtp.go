package mailer

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
}

func NewSMTP(host string, port int, username, password, from string, timeout time.Duration) *SMTPMailer {
	if from == "" {
		from = username
	}

	return &SMTPMailer{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		timeout: timeoutOrDefault(timeout),
	}
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, email, link string) error {
	const op = "mailer.SMTP.SendVerificationEmail"

	if m == nil || m.dialer == nil || m.dialer.Host == "" || m.from == "" {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	msg := VerificationMessage(email, link)

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", textBody(msg))
	gm.AddAlternative("text/html", htmlBody(msg))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// gomail has no context support, so the send runs in the background and
	// is abandoned once the deadline passes.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(gm)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}
