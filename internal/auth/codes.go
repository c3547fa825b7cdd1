package auth

import "errors"

const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeAppBaseURLMissing  = "APP_BASE_URL_MISSING"
	CodeMailFailed         = "MAIL_FAILED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeInternal           = "INTERNAL_ERROR"
)

var codes = []struct {
	err     error
	code    string
	message string
}{
	{ErrInvalidInput, CodeInvalidInput, "Email must contain @ and password must be at least 8 characters."},
	{ErrEmailExists, CodeEmailExists, "An account with this email already exists."},
	{ErrAppBaseURLMissing, CodeAppBaseURLMissing, "Verification links cannot be built right now."},
	{ErrMailFailed, CodeMailFailed, "The verification email could not be sent."},
	{ErrInvalidToken, CodeInvalidToken, "The verification link is invalid."},
	{ErrTokenExpired, CodeTokenExpired, "The verification link has expired."},
	{ErrInvalidCredentials, CodeInvalidCredentials, "Invalid email or password."},
	{ErrEmailNotVerified, CodeEmailNotVerified, "Please verify your email first."},
	{ErrAuthRequired, CodeAuthRequired, "Authentication required."},
}

// Code maps an error returned by Auth to its envelope code. Anything
// unrecognised is INTERNAL_ERROR.
func Code(err error) string {
	code, _ := Describe(err)
	return code
}

// Describe returns the envelope code and a user-facing message for err.
func Describe(err error) (code, message string) {
	if err == nil {
		return "", ""
	}

	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, c.message
		}
	}

	return CodeInternal, "Something went wrong. Please try again later."
}
