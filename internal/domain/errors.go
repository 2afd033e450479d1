package domain

import "errors"

// Expected failure taxonomy. Handlers map these to HTTP statuses via
// errors.Is; anything else is an internal error and surfaces as a 500.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOrExpired = errors.New("invalid or expired")
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("access denied")
)
