package security

import (
	"net/http"
	"time"
)

// Minimum Argon2id memory below which a report carries a warning.
const recommendedArgonMemoryKB = 19 * 1024

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

type Report struct {
	SealAlgorithm       string
	CookieSecure        bool
	CookieHTTPOnly      bool
	SameSite            string
	SessionMaxAge       time.Duration
	Argon2              PasswordReport
	UpgradeOnLogin      bool
	LoginThrottleActive bool
	IPThrottleActive    bool
	RecordCodec         string
	AuditEnabled        bool
	MetricsEnabled      bool
	Warnings            []string
}

type ReportInput struct {
	SealAlgorithm         string
	CookieSecure          bool
	CookieHTTPOnly        bool
	SameSite              http.SameSite
	SessionMaxAge         time.Duration
	Password              PasswordReport
	UpgradeOnLogin        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	RecordCodec           string
	AuditEnabled          bool
	MetricsEnabled        bool
}

func BuildReport(input ReportInput) Report {
	throttle := input.EnableLoginThrottle &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	r := Report{
		SealAlgorithm:       input.SealAlgorithm,
		CookieSecure:        input.CookieSecure,
		CookieHTTPOnly:      input.CookieHTTPOnly,
		SameSite:            sameSiteName(input.SameSite),
		SessionMaxAge:       input.SessionMaxAge,
		Argon2:              input.Password,
		UpgradeOnLogin:      input.UpgradeOnLogin,
		LoginThrottleActive: throttle,
		IPThrottleActive:    throttle && input.EnableIPThrottle,
		RecordCodec:         input.RecordCodec,
		AuditEnabled:        input.AuditEnabled,
		MetricsEnabled:      input.MetricsEnabled,
	}

	if !input.CookieSecure {
		r.Warnings = append(r.Warnings, "session cookies are sent over plain HTTP")
	}
	if !input.CookieHTTPOnly {
		r.Warnings = append(r.Warnings, "session cookies are readable from scripts")
	}
	if input.SameSite == http.SameSiteNoneMode {
		r.Warnings = append(r.Warnings, "session cookies are sent on cross-site requests")
	}
	if input.Password.Memory < recommendedArgonMemoryKB {
		r.Warnings = append(r.Warnings, "argon2id memory below 19 MiB")
	}
	if !throttle {
		r.Warnings = append(r.Warnings, "failed logins are not throttled")
	}

	return r
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
