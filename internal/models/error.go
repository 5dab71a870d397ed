package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Auth flow errors
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrRateLimited     = errors.New("too many invalid code attempts")
	ErrNotEligible     = errors.New("user is not fully verified for 2FA login")
	ErrUnauthenticated = errors.New("invalid or missing session token")

	// Delivery channel errors
	ErrDeliveryFailed        = errors.New("delivery channel failure")
	ErrMisconfiguredDelivery = errors.New("delivery credentials are missing")
)
