package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	minSealKeyLength = 32
	maxFutureIAT     = 10 * time.Minute
)

// SealerConfig configures a [Sealer].
type SealerConfig struct {
	Key    []byte
	Issuer string
	Leeway time.Duration
}

// Sealer signs cookie values as compact HS256 JWTs. The cookie name is the
// audience, so a value sealed for one cookie cannot be replayed in another.
type Sealer struct {
	config SealerConfig
	parser *jwt.Parser
}

type sealClaims struct {
	jwt.RegisteredClaims
}

// NewSealer validates cfg and returns a [Sealer].
func NewSealer(cfg SealerConfig) (*Sealer, error) {
	if len(cfg.Key) < minSealKeyLength {
		return nil, fmt.Errorf("seal key must be at least %d bytes", minSealKeyLength)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)
	cfg.Key = key

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}

	return &Sealer{config: cfg, parser: jwt.NewParser(options...)}, nil
}

// Seal signs value for the cookie called name. A positive ttl bounds the
// seal's lifetime; zero leaves it unbounded like a browser-session cookie.
func (s *Sealer) Seal(name, value string, ttl time.Duration) (string, error) {
	if name == "" || value == "" {
		return "", errors.New("seal requires cookie name and value")
	}

	now := time.Now()
	claims := sealClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  value,
			Audience: jwt.ClaimStrings{name},
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   s.config.Issuer,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Key)
}

// Open verifies raw as a seal for the cookie called name and returns the
// plain value. Every failure is reported as ErrSealInvalid.
func (s *Sealer) Open(name, raw string) (string, error) {
	if raw == "" {
		return "", ErrSealInvalid
	}

	var claims sealClaims
	token, err := s.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return s.config.Key, nil
	})
	if err != nil || !token.Valid {
		return "", ErrSealInvalid
	}

	if !audienceContains(claims.Audience, name) || claims.Subject == "" {
		return "", ErrSealInvalid
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(time.Now().Add(maxFutureIAT)) {
		return "", ErrSealInvalid
	}

	return claims.Subject, nil
}

func audienceContains(aud jwt.ClaimStrings, name string) bool {
	for _, a := range aud {
		if a == name {
			return true
		}
	}
	return false
}
