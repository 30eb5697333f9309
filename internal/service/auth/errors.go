package auth

import "errors"

var (
	// ErrInvalidInput means registration input was incomplete.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserExists means the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials means email/password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled means the account is disabled or inactive.
	ErrUserDisabled = errors.New("user disabled")
	// ErrTokenInvalid means the refresh token failed verification.
	ErrTokenInvalid = errors.New("token invalid")
)
