// Package common defines shared constants, helpers and sentinel errors used
// across mailauth layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors. These are the only kinds that reach callers of
	// the authentication service.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorBadRequest   = errors.New("bad request")

	// Token errors, reported by the token codec.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsClassified reports whether err already carries a service-level kind and
// must be returned to the caller as is.
func IsClassified(err error) bool {
	return errors.Is(err, ErrorUnauthorized) ||
		errors.Is(err, ErrorBadRequest) ||
		errors.Is(err, ErrorAlreadyExists) ||
		errors.Is(err, ErrorInternal)
}
