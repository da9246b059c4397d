package goCrud

import (
	"errors"

	"github.com/MrEthical07/goCrud/session"
	"github.com/MrEthical07/goCrud/store"
)

// Store and session sentinels are re-exported so callers can match every
// engine error with a single import.
var (
	// ErrExists is returned when a record or unique value is already present.
	ErrExists = store.ErrExists
	// ErrNotFound is returned when a record is absent.
	ErrNotFound = store.ErrNotFound
	// ErrConflict is returned when a record changed between read and write.
	ErrConflict = store.ErrConflict
	// ErrUnavailable wraps failures of the backing store.
	ErrUnavailable = store.ErrUnavailable
	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = store.ErrCorrupt
	// ErrForbidden is returned when a session identity is missing, a password
	// does not verify, or the caller does not own the record.
	ErrForbidden = session.ErrForbidden
	// ErrToken is returned when a CSRF token is missing or invalid.
	ErrToken = session.ErrToken
)

var (
	// ErrInvalidRequest is returned when a command is missing required
	// fields or carries contradictory ones.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrLoginRateLimited is returned when the failed-login throttle refuses
	// an attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by methods called on a nil or partially
	// built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
