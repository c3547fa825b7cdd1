package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendMailer delivers through the Resend HTTP API.
type ResendMailer struct {
	client  *resend.Client
	from    string
	timeout time.Duration
}

type ResendOption func(*ResendMailer) error

// WithBaseURL points the client at another API host.
func WithBaseURL(raw string) ResendOption {
	return func(m *ResendMailer) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}

		m.client.BaseURL = u

		return nil
	}
}

func NewResend(apiKey, from string, timeout time.Duration, opts ...ResendOption) (*ResendMailer, error) {
	const op = "mailer.NewResend"

	timeout = timeoutOrDefault(timeout)

	m := &ResendMailer{
		client:  resend.NewCustomClient(&http.Client{Timeout: timeout}, apiKey),
		from:    from,
		timeout: timeout,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return m, nil
}

func (m *ResendMailer) SendVerificationEmail(ctx context.Context, email, link string) error {
	const op = "mailer.Resend.SendVerificationEmail"

	if m == nil || m.client == nil || m.client.ApiKey == "" || m.from == "" {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg := VerificationMessage(email, link)

	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.Email},
		Subject: msg.Subject,
		Html:    htmlBody(msg),
		Text:    textBody(msg),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
