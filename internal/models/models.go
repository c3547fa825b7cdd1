package models

import "time"

type User struct {
	ID            string
	Email         string
	PassHash      string
	EmailVerified bool
	CreatedAt     time.Time
}

// VerificationTicket is a single-use email verification token. TokenHash is
// the SHA-256 digest of the token sent to the user.
type VerificationTicket struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// Message is the payload published to the mail queue.
type Message struct {
	Email   string `json:"to"`
	Link    string `json:"link"`
	Subject string `json:"subject"`
	Purpose string `json:"purpose"`
}
