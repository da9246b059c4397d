package store

import "errors"

var (
	// ErrExists is returned when a key that must be absent is already present.
	ErrExists = errors.New("key already exists")
	// ErrNotFound is returned when a key that must be present is absent.
	ErrNotFound = errors.New("key not found")
	// ErrConflict is returned when a compare-and-swap finds a value other
	// than the one the caller expected.
	ErrConflict = errors.New("stored value changed")
	// ErrUnavailable wraps every failure of the backing store.
	ErrUnavailable = errors.New("store unavailable")
	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("stored record corrupt")
)
