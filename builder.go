package goCrud

import (
	"errors"
	"fmt"

	internalaudit "github.com/MrEthical07/goCrud/internal/audit"
	"github.com/MrEthical07/goCrud/internal/rate"
	"github.com/MrEthical07/goCrud/password"
	"github.com/MrEthical07/goCrud/session"
	"github.com/MrEthical07/goCrud/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	kv     store.KV
	logger *zap.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores records in Redis and enables the login throttle when
// configured. Ignored for storage if [Builder.WithStore] is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore stores records in kv.
func (b *Builder) WithStore(kv store.KV) *Builder {
	b.kv = kv
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to a no-op
// logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination of audit events. Audit.Enabled must
// also be set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the operation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	kv := b.kv
	if kv == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or store required")
		}
		kv = store.NewRedisKV(b.redis, cfg.Store.Prefix)
	}

	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("Security EnableLoginThrottle requires redis client")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := store.CodecByName(cfg.Store.Codec)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cloneConfig(cfg),
		kv:     kv,
		logger: b.logger,
	}
	if engine.logger == nil {
		engine.logger = zap.NewNop()
	}

	// -------- REPOSITORIES --------
	if engine.users, err = store.NewRepository[User](kv, codec); err != nil {
		return nil, err
	}
	if engine.groups, err = store.NewRepository[Group](kv, codec); err != nil {
		return nil, err
	}
	if engine.grants, err = store.NewRepository[Grant](kv, codec); err != nil {
		return nil, err
	}
	if engine.emails, err = store.NewRepository[emailClaim](kv, codec); err != nil {
		return nil, err
	}

	// -------- SESSION AUTHENTICATOR --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	auth, err := session.NewAuthenticator(session.Config{
		CookiePath:     cfg.Session.CookiePath,
		Secure:         cfg.Session.Secure,
		HTTPOnly:       cfg.Session.HTTPOnly,
		SameSite:       cfg.Session.SameSite,
		MaxAge:         cfg.Session.MaxAge,
		SigningKey:     cloneBytes(cfg.Session.SigningKey),
		Issuer:         cfg.Session.Issuer,
		CSRFCookieName: cfg.Session.CSRFCookieName,
		CSRFKey:        cloneBytes(cfg.Session.CSRFKey),
	}, ph)
	if err != nil {
		return nil, fmt.Errorf("session authenticator: %w", err)
	}
	engine.auth = auth

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Store.Prefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     engine.logger,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
