package goCrud

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goCrud/store"
)

// Config is the complete engine configuration. Start from [DefaultConfig],
// override what you need, and pass it to [Builder.WithConfig]. The engine
// keeps its own copy; later changes to the value have no effect.
type Config struct {
	Store    StoreConfig
	Session  SessionConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls where records live. Every tree is stored under
// "<Prefix>:<tree>"; Codec selects the record encoding ("json" or "cbor").
type StoreConfig struct {
	Prefix string
	Codec  string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session identity and CSRF cookies.
//
// SigningKey seals cookie values and CSRFKey binds CSRF tokens to sessions;
// both must be at least 32 bytes and should differ. MaxAge of zero issues
// browser-session cookies.
type SessionConfig struct {
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

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the minimum accepted
// password length in bytes. With UpgradeOnLogin a hash produced with weaker
// parameters is replaced after the next successful login.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls failed-login throttling. Throttling needs a Redis
// client ([Builder.WithRedis]).
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration goCrud ships with. SigningKey and
// CSRFKey are left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Prefix: "gocrud",
			Codec:  store.CodecJSON,
		},
		Session: SessionConfig{
			CookiePath:     "/",
			Secure:         true,
			HTTPOnly:       true,
			SameSite:       http.SameSiteLaxMode,
			MaxAge:         0,
			Issuer:         "gocrud",
			CSRFCookieName: "csrf",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      1,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.SigningKey = cloneBytes(cfg.Session.SigningKey)
	out.Session.CSRFKey = cloneBytes(cfg.Session.CSRFKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Store
	if strings.ContainsAny(c.Store.Prefix, " \t\r\n") {
		return errors.New("Store Prefix must not contain whitespace")
	}
	if _, err := store.CodecByName(c.Store.Codec); err != nil {
		return fmt.Errorf("Store Codec: %w", err)
	}

	// Session
	if len(c.Session.SigningKey) < 32 {
		return errors.New("Session SigningKey must be at least 32 bytes")
	}
	if len(c.Session.CSRFKey) < 32 {
		return errors.New("Session CSRFKey must be at least 32 bytes")
	}
	if c.Session.CSRFCookieName == "" {
		return errors.New("Session CSRFCookieName must be set")
	}
	switch c.Session.CSRFCookieName {
	case treeUser, treeGroup, treeAuth, treeUserEmail:
		return errors.New("Session CSRFCookieName must not collide with a tree name")
	}
	if c.Session.MaxAge < 0 {
		return errors.New("Session MaxAge must be >= 0")
	}
	if c.Session.SameSite == http.SameSiteNoneMode && !c.Session.Secure {
		return errors.New("Session SameSite=None requires Secure cookies")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
