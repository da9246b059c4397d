// Package serverconfig loads the settings of the gocrud server: built-in
// defaults, then an optional YAML file, then command-line flags. Cookie keys
// may also come from the environment so they stay out of argv.
package serverconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the matching key is not configured.
const (
	EnvSigningKey = "GOCRUD_SIGNING_KEY"
	EnvCSRFKey    = "GOCRUD_CSRF_KEY"
)

// Config holds runtime settings for the gocrud server.
type Config struct {
	Listen          string        `yaml:"listen"`
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	StorePrefix   string `yaml:"store_prefix"`
	StoreCodec    string `yaml:"store_codec"`

	SigningKey     string        `yaml:"signing_key"`
	CSRFKey        string        `yaml:"csrf_key"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	CookieSameSite string        `yaml:"cookie_same_site"`
	SessionMaxAge  time.Duration `yaml:"session_max_age"`

	LoginThrottle    bool          `yaml:"login_throttle"`
	IPThrottle       bool          `yaml:"ip_throttle"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	LoginCooldown    time.Duration `yaml:"login_cooldown"`

	AuditLog bool `yaml:"audit_log"`
	Metrics  bool `yaml:"metrics"`
}

// Defaults returns development defaults. Keys are empty and must be set.
func Defaults() Config {
	engine := goCrud.DefaultConfig()
	return Config{
		Listen:           ":8080",
		ShutdownTimeout:  10 * time.Second,
		RedisAddr:        "127.0.0.1:6379",
		StorePrefix:      engine.Store.Prefix,
		StoreCodec:       engine.Store.Codec,
		CookieSecure:     engine.Session.Secure,
		CookieSameSite:   "lax",
		SessionMaxAge:    engine.Session.MaxAge,
		LoginThrottle:    true,
		IPThrottle:       true,
		MaxLoginAttempts: engine.Security.MaxLoginAttempts,
		LoginCooldown:    engine.Security.LoginCooldownDuration,
		AuditLog:         true,
		Metrics:          true,
	}
}

// Load builds a Config from defaults, the YAML file named by --config (if
// any) and the flags in args. Flags win over the file. getenv may be nil.
// A --help request yields pflag.ErrHelp.
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := Defaults()
	var path string
	fs := newFlagSet(&cfg, &path)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if path != "" {
		fileCfg := Defaults()
		if err := loadFile(path, &fileCfg); err != nil {
			return Config{}, err
		}

		// Re-apply explicitly set flags on top of the file.
		var ignored string
		overlay := newFlagSet(&fileCfg, &ignored)
		var setErr error
		fs.Visit(func(f *pflag.Flag) {
			if setErr != nil {
				return
			}
			dst := overlay.Lookup(f.Name)
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				setErr = dst.Value.(pflag.SliceValue).Replace(sv.GetSlice())
				return
			}
			setErr = dst.Value.Set(f.Value.String())
		})
		if setErr != nil {
			return Config{}, setErr
		}
		cfg = fileCfg
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = getenv(EnvSigningKey)
	}
	if cfg.CSRFKey == "" {
		cfg.CSRFKey = getenv(EnvCSRFKey)
	}

	return cfg, nil
}

func newFlagSet(cfg *Config, path *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("gocrud-server", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVarP(path, "config", "c", "", "path to a YAML config file")
	fs.StringVarP(&cfg.Listen, "listen", "a", cfg.Listen, "address and port to serve HTTP on")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "development logging")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown deadline")
	fs.StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "allowed CORS origin (repeatable)")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "redis database number")
	fs.StringVar(&cfg.StorePrefix, "store-prefix", cfg.StorePrefix, "key prefix of every record tree")
	fs.StringVar(&cfg.StoreCodec, "store-codec", cfg.StoreCodec, "record codec (json or cbor)")

	fs.StringVar(&cfg.SigningKey, "signing-key", cfg.SigningKey, "cookie sealing key, at least 32 bytes (or "+EnvSigningKey+")")
	fs.StringVar(&cfg.CSRFKey, "csrf-key", cfg.CSRFKey, "CSRF token key, at least 32 bytes (or "+EnvCSRFKey+")")
	fs.BoolVar(&cfg.CookieSecure, "cookie-secure", cfg.CookieSecure, "send cookies over HTTPS only")
	fs.StringVar(&cfg.CookieSameSite, "cookie-same-site", cfg.CookieSameSite, "cookie SameSite policy (lax, strict, none)")
	fs.DurationVar(&cfg.SessionMaxAge, "session-max-age", cfg.SessionMaxAge, "identity cookie lifetime, 0 for browser session")

	fs.BoolVar(&cfg.LoginThrottle, "login-throttle", cfg.LoginThrottle, "throttle failed logins per email")
	fs.BoolVar(&cfg.IPThrottle, "ip-throttle", cfg.IPThrottle, "throttle failed logins per client IP")
	fs.IntVar(&cfg.MaxLoginAttempts, "max-login-attempts", cfg.MaxLoginAttempts, "failed logins allowed per cooldown window")
	fs.DurationVar(&cfg.LoginCooldown, "login-cooldown", cfg.LoginCooldown, "failed login window")

	fs.BoolVar(&cfg.AuditLog, "audit-log", cfg.AuditLog, "write audit events to the log")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "record metrics and serve /metrics")

	return fs
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Engine maps c onto an engine configuration. The result still needs
// [goCrud.Config.Validate].
func (c Config) Engine() (goCrud.Config, error) {
	cfg := goCrud.DefaultConfig()
	cfg.Store.Prefix = c.StorePrefix
	cfg.Store.Codec = c.StoreCodec

	cfg.Session.SigningKey = []byte(c.SigningKey)
	cfg.Session.CSRFKey = []byte(c.CSRFKey)
	cfg.Session.Secure = c.CookieSecure
	cfg.Session.MaxAge = c.SessionMaxAge
	switch strings.ToLower(c.CookieSameSite) {
	case "lax", "":
		cfg.Session.SameSite = http.SameSiteLaxMode
	case "strict":
		cfg.Session.SameSite = http.SameSiteStrictMode
	case "none":
		cfg.Session.SameSite = http.SameSiteNoneMode
	default:
		return goCrud.Config{}, fmt.Errorf("unknown cookie same-site policy %q", c.CookieSameSite)
	}

	cfg.Security.EnableLoginThrottle = c.LoginThrottle
	cfg.Security.EnableIPThrottle = c.IPThrottle
	cfg.Security.MaxLoginAttempts = c.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.LoginCooldown

	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics

	return cfg, nil
}

// Usage returns the flag help text.
func Usage() string {
	cfg := Defaults()
	var path string
	return newFlagSet(&cfg, &path).FlagUsages()
}
