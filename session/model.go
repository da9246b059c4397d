package session

import (
	"net/http"
	"time"
)

// Session describes who is making a request. The zero value is an
// anonymous client that has never been issued a CSRF token.
type Session struct {
	// ID is the anonymous session id carried by the CSRF cookie.
	ID string
	// Identity is the nid named by the session identity cookie.
	Identity string
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.Identity != ""
}

// Anonymous returns s without its identity.
func (s Session) Anonymous() Session {
	return Session{ID: s.ID}
}

// Cookie is the logical content of a cookie. Value is the plain value; the
// transport seals it before writing (see [Authenticator.HTTPCookie]).
type Cookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// MutationKind says what a [Mutation] does to its cookie.
type MutationKind uint8

const (
	// MutationNone is the zero value and leaves cookies untouched.
	MutationNone MutationKind = iota
	// MutationSet writes the cookie.
	MutationSet
	// MutationRemove expires the cookie.
	MutationRemove
)

// Mutation is an instruction for the transport to change one cookie.
type Mutation struct {
	Kind   MutationKind
	Cookie Cookie
}

// CSRFGrant is the result of issuing a CSRF token. Session is the session
// the token is bound to, which carries a freshly minted ID when the request
// had none; Mutations then persist that ID client-side.
type CSRFGrant struct {
	Token     string
	Session   Session
	Mutations []Mutation
}
