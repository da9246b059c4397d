package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goCrud/internal"
)

const (
	csrfNonceSize   = 16
	minCSRFKeyBytes = 32
)

// Hasher hashes and verifies credentials. password.Argon2 satisfies it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Config controls cookie attributes and the keys used to seal cookies and
// bind CSRF tokens.
type Config struct {
	CookiePath     string
	Secure         bool
	HTTPOnly       bool
	SameSite       http.SameSite
	MaxAge         time.Duration
	SigningKey     []byte
	Issuer         string
	CSRFCookieName string
	CSRFKey        []byte
}

// Authenticator hashes and verifies credentials, issues and clears the
// session identity cookie, and issues and verifies CSRF tokens.
type Authenticator struct {
	config Config
	hasher Hasher
	sealer *Sealer
}

// NewAuthenticator validates cfg and returns an [Authenticator].
func NewAuthenticator(cfg Config, hasher Hasher) (*Authenticator, error) {
	if hasher == nil {
		return nil, errors.New("session: hasher required")
	}
	if cfg.CSRFCookieName == "" {
		return nil, errors.New("session: csrf cookie name required")
	}
	if len(cfg.CSRFKey) < minCSRFKeyBytes {
		return nil, fmt.Errorf("session: csrf key must be at least %d bytes", minCSRFKeyBytes)
	}
	if cfg.MaxAge < 0 {
		return nil, errors.New("session: max age must be >= 0")
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}

	sealer, err := NewSealer(SealerConfig{Key: cfg.SigningKey, Issuer: cfg.Issuer})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	csrfKey := make([]byte, len(cfg.CSRFKey))
	copy(csrfKey, cfg.CSRFKey)
	cfg.CSRFKey = csrfKey
	cfg.SigningKey = nil

	return &Authenticator{config: cfg, hasher: hasher, sealer: sealer}, nil
}

// HashPassword returns a one-way hash of password.
func (a *Authenticator) HashPassword(password string) (string, error) {
	return a.hasher.Hash(password)
}

// VerifyPassword reports whether password matches encodedHash. A malformed
// hash never verifies.
func (a *Authenticator) VerifyPassword(password, encodedHash string) bool {
	ok, err := a.hasher.Verify(password, encodedHash)
	return err == nil && ok
}

// IssueSessionCookie returns the mutation that binds the session identity
// cookie for kind to value.
func (a *Authenticator) IssueSessionCookie(kind, value string) Mutation {
	return Mutation{
		Kind: MutationSet,
		Cookie: Cookie{
			Name:     kind,
			Value:    value,
			Path:     a.config.CookiePath,
			MaxAge:   a.config.MaxAge,
			Secure:   a.config.Secure,
			HTTPOnly: a.config.HTTPOnly,
			SameSite: a.config.SameSite,
		},
	}
}

// ClearSessionCookie returns the mutation that removes the session identity
// cookie for kind. It fails with ErrForbidden when sess carries no identity.
func (a *Authenticator) ClearSessionCookie(sess Session, kind string) (Mutation, error) {
	if !sess.Authenticated() {
		return Mutation{}, ErrForbidden
	}
	return Mutation{
		Kind: MutationRemove,
		Cookie: Cookie{
			Name:     kind,
			Path:     a.config.CookiePath,
			Secure:   a.config.Secure,
			HTTPOnly: a.config.HTTPOnly,
			SameSite: a.config.SameSite,
		},
	}, nil
}

// IssueCSRFToken returns a token bound to sess. A session without an
// anonymous id gets a fresh one, persisted by the returned mutation.
func (a *Authenticator) IssueCSRFToken(sess Session) (CSRFGrant, error) {
	grant := CSRFGrant{Session: sess}

	if sess.ID == "" {
		sid, err := internal.NewSessionID()
		if err != nil {
			return CSRFGrant{}, err
		}
		grant.Session.ID = sid.String()
		grant.Mutations = append(grant.Mutations, Mutation{
			Kind: MutationSet,
			Cookie: Cookie{
				Name:     a.config.CSRFCookieName,
				Value:    grant.Session.ID,
				Path:     a.config.CookiePath,
				Secure:   a.config.Secure,
				HTTPOnly: true,
				SameSite: a.config.SameSite,
			},
		})
	}

	nonce, err := internal.RandomBytes(csrfNonceSize)
	if err != nil {
		return CSRFGrant{}, err
	}

	raw := make([]byte, 0, csrfNonceSize+sha256.Size)
	raw = append(raw, nonce...)
	raw = append(raw, a.csrfMAC(grant.Session, nonce)...)
	grant.Token = base64.RawURLEncoding.EncodeToString(raw)

	return grant, nil
}

// VerifyCSRFToken checks token against sess. Sessions without an anonymous
// id cannot hold a valid token.
func (a *Authenticator) VerifyCSRFToken(sess Session, token string) error {
	if token == "" || sess.ID == "" {
		return ErrToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != csrfNonceSize+sha256.Size {
		return ErrToken
	}

	nonce, mac := raw[:csrfNonceSize], raw[csrfNonceSize:]
	if !hmac.Equal(mac, a.csrfMAC(sess, nonce)) {
		return ErrToken
	}
	return nil
}

func (a *Authenticator) csrfMAC(sess Session, nonce []byte) []byte {
	mac := hmac.New(sha256.New, a.config.CSRFKey)
	mac.Write([]byte("csrf"))
	mac.Write([]byte{0})
	mac.Write([]byte(sess.ID))
	mac.Write([]byte{0})
	mac.Write([]byte(sess.Identity))
	mac.Write([]byte{0})
	mac.Write(nonce)
	return mac.Sum(nil)
}

// Load rebuilds the session for kind from request cookies. lookup returns
// the raw (sealed) cookie value by name. Cookies that fail verification, and
// CSRF cookies not holding a well-formed session id, are treated as absent.
func (a *Authenticator) Load(kind string, lookup func(name string) (string, bool)) Session {
	var sess Session
	if lookup == nil {
		return sess
	}

	if raw, ok := lookup(kind); ok {
		if v, err := a.sealer.Open(kind, raw); err == nil {
			sess.Identity = v
		}
	}
	if raw, ok := lookup(a.config.CSRFCookieName); ok {
		if v, err := a.sealer.Open(a.config.CSRFCookieName, raw); err == nil {
			if _, err := internal.ParseSessionID(v); err == nil {
				sess.ID = v
			}
		}
	}

	return sess
}

// HTTPCookie renders m as an http.Cookie, sealing the value of set
// mutations.
func (a *Authenticator) HTTPCookie(m Mutation) (*http.Cookie, error) {
	c := &http.Cookie{
		Name:     m.Cookie.Name,
		Path:     m.Cookie.Path,
		Secure:   m.Cookie.Secure,
		HttpOnly: m.Cookie.HTTPOnly,
		SameSite: m.Cookie.SameSite,
	}

	switch m.Kind {
	case MutationSet:
		sealed, err := a.sealer.Seal(m.Cookie.Name, m.Cookie.Value, m.Cookie.MaxAge)
		if err != nil {
			return nil, err
		}
		c.Value = sealed
		if m.Cookie.MaxAge > 0 {
			c.MaxAge = int(m.Cookie.MaxAge / time.Second)
		}
	case MutationRemove:
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	default:
		return nil, errors.New("session: empty cookie mutation")
	}

	return c, nil
}

// Sealer exposes the cookie sealer.
func (a *Authenticator) Sealer() *Sealer {
	return a.sealer
}
