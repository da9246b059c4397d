package goCrud

import (
	"time"

	"github.com/MrEthical07/goCrud/internal/security"
)

// SecurityReport describes the effective security settings of an engine.
// Warnings lists settings an operator should review.
type SecurityReport struct {
	SealAlgorithm       string
	CookieSecure        bool
	CookieHTTPOnly      bool
	SameSite            string
	SessionMaxAge       time.Duration
	Argon2              PasswordConfigReport
	UpgradeOnLogin      bool
	LoginThrottleActive bool
	IPThrottleActive    bool
	RecordCodec         string
	AuditEnabled        bool
	MetricsEnabled      bool
	Warnings            []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	r := security.BuildReport(security.ReportInput{
		SealAlgorithm:  "HS256",
		CookieSecure:   cfg.Session.Secure,
		CookieHTTPOnly: cfg.Session.HTTPOnly,
		SameSite:       cfg.Session.SameSite,
		SessionMaxAge:  cfg.Session.MaxAge,
		Password: security.PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinLength:   cfg.Password.MinLength,
		},
		UpgradeOnLogin:        cfg.Password.UpgradeOnLogin,
		EnableLoginThrottle:   e.rateLimiter != nil,
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		RecordCodec:           cfg.Store.Codec,
		AuditEnabled:          cfg.Audit.Enabled,
		MetricsEnabled:        cfg.Metrics.Enabled,
	})

	return SecurityReport{
		SealAlgorithm:       r.SealAlgorithm,
		CookieSecure:        r.CookieSecure,
		CookieHTTPOnly:      r.CookieHTTPOnly,
		SameSite:            r.SameSite,
		SessionMaxAge:       r.SessionMaxAge,
		Argon2:              PasswordConfigReport(r.Argon2),
		UpgradeOnLogin:      r.UpgradeOnLogin,
		LoginThrottleActive: r.LoginThrottleActive,
		IPThrottleActive:    r.IPThrottleActive,
		RecordCodec:         r.RecordCodec,
		AuditEnabled:        r.AuditEnabled,
		MetricsEnabled:      r.MetricsEnabled,
		Warnings:            r.Warnings,
	}
}
