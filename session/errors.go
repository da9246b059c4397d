package session

import "errors"

var (
	// ErrForbidden is returned when an operation requires a session identity
	// and the request carries none.
	ErrForbidden = errors.New("forbidden")
	// ErrToken is returned when a CSRF token is missing, malformed or bound
	// to another session.
	ErrToken = errors.New("invalid csrf token")
	// ErrSealInvalid is returned when a sealed cookie value fails verification.
	ErrSealInvalid = errors.New("cookie seal invalid")
)
