package domain

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrNoAccounts      = errors.New("no accounts configured")

	// Login failures.
	ErrInvalidInput   = errors.New("invalid input")
	ErrLoginCancelled = errors.New("login cancelled")
	ErrLoginRejected  = errors.New("login rejected")

	// Fetch failures.
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnreachable       = errors.New("provider unreachable")
	ErrMalformedResponse = errors.New("malformed provider response")

	// Store failures.
	ErrStoreCorrupt = errors.New("account store corrupt")
	ErrStoreIO      = errors.New("account store io failure")
)
