package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrSessionIDSize is returned for a decoded id of the wrong length.
	ErrSessionIDSize = errors.New("session id must decode to 16 bytes")

	sidEncoding = base64.RawURLEncoding
)

// SessionID is the anonymous session id carried by the CSRF cookie. Its text
// form is unpadded base64url.
type SessionID [16]byte

// NewSessionID draws a SessionID from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	if _, err := rand.Read(sid[:]); err != nil {
		return sid, fmt.Errorf("session id: %w", err)
	}
	return sid, nil
}

func (s SessionID) String() string { return sidEncoding.EncodeToString(s[:]) }

func (s SessionID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SessionID) UnmarshalText(text []byte) error {
	if sidEncoding.DecodedLen(len(text)) != len(s) {
		return ErrSessionIDSize
	}
	var sid SessionID
	if _, err := sidEncoding.Decode(sid[:], text); err != nil {
		return err
	}
	*s = sid
	return nil
}

// ParseSessionID decodes the text form of a SessionID.
func ParseSessionID(text string) (SessionID, error) {
	var sid SessionID
	err := sid.UnmarshalText([]byte(text))
	return sid, err
}

// NewNid returns a fresh record identifier: a random (v4) UUID in its
// canonical hyphenated form.
func NewNid() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("nid: %w", err)
	}
	return id.String(), nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("random length %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
