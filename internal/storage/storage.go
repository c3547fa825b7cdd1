package storage

import "errors"

var (
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrTicketNotFound = errors.New("verification ticket not found")
	ErrTicketExpired  = errors.New("verification ticket expired")
)
