package api

import "errors"

var (
	// ErrAuthDisabled is returned when minting a token without a secret.
	ErrAuthDisabled = errors.New("jwt authentication is not configured")

	// ErrInvalidToken is returned when a bearer token fails validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrForbiddenRole is returned when a valid token lacks the admin role.
	ErrForbiddenRole = errors.New("token does not grant admin access")

	// ErrInvalidQuery is returned when a query parameter cannot be parsed.
	ErrInvalidQuery = errors.New("invalid query parameter")
)
