package mailer

import (
	"errors"
	"fmt"
	"html"
	"time"

	"canalyzer/internal/models"
)

const (
	PurposeVerification = "email_verification"

	verificationSubject = "Verify your Canalyzer account"

	DefaultTimeout = 10 * time.Second
)

var ErrNotConfigured = errors.New("mail provider is not configured")

// VerificationMessage is the message every provider delivers for a new
// verification link.
func VerificationMessage(email, link string) models.Message {
	return models.Message{
		Email:   email,
		Link:    link,
		Subject: verificationSubject,
		Purpose: PurposeVerification,
	}
}

func textBody(msg models.Message) string {
	return fmt.Sprintf(
		"Welcome to Canalyzer!\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nThe link is valid for 24 hours. If you did not create an account, ignore this email.\n",
		msg.Link,
	)
}

func htmlBody(msg models.Message) string {
	link := html.EscapeString(msg.Link)

	return fmt.Sprintf(
		`<p>Welcome to Canalyzer!</p><p>Please confirm your email address:</p><p><a href="%s">Verify email</a></p><p>If the button does not work, copy this link into your browser:<br>%s</p><p>The link is valid for 24 hours.</p>`,
		link, link,
	)
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}

	return d
}
