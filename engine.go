package goCrud

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goCrud/internal/audit"
	"github.com/MrEthical07/goCrud/internal/rate"
	"github.com/MrEthical07/goCrud/password"
	"github.com/MrEthical07/goCrud/session"
	"github.com/MrEthical07/goCrud/store"
	"go.uber.org/zap"
)

// Engine runs user, group and grant operations against a store. It holds no
// per-request state and is safe for concurrent use once built.
type Engine struct {
	config       Config
	kv           store.KV
	users        *store.Repository[User]
	groups       *store.Repository[Group]
	grants       *store.Repository[Grant]
	emails       *store.Repository[emailClaim]
	auth         *session.Authenticator
	passwordHash *password.Argon2
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// MetricsEnabled reports whether the engine records counters.
func (e *Engine) MetricsEnabled() bool {
	return e != nil && e.metrics != nil && e.metrics.Enabled()
}

// Authenticator returns the session authenticator. Transports use it to
// load sessions from cookies and render cookie mutations.
func (e *Engine) Authenticator() *session.Authenticator {
	if e == nil {
		return nil
	}
	return e.auth
}

// LoadSession rebuilds the session of a request from its cookies.
func (e *Engine) LoadSession(lookup func(name string) (string, bool)) session.Session {
	if e == nil || e.auth == nil {
		return session.Session{}
	}
	return e.auth.Load(SessionCookieName, lookup)
}

// Ping checks that the backing store is reachable. Stores without a health
// check always succeed.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.kv == nil {
		return ErrEngineNotReady
	}
	if p, ok := e.kv.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.auth == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// observe records the latency of an operation started at start. Use as
// defer e.observe(time.Now()).
func (e *Engine) observe(start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(MetricOperationLatency, time.Since(start))
}

// storeErr counts store-level failures and returns err unchanged.
func (e *Engine) storeErr(err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		e.metricInc(MetricCASConflict)
	case errors.Is(err, ErrUnavailable):
		e.metricInc(MetricStoreUnavailable)
	}
	return err
}

// VerifyCSRF checks token against the CSRF identity carried by sess, for
// transports that guard operations which take no session of their own.
// A mismatch counts and audits as a rejected token and yields ErrToken.
func (e *Engine) VerifyCSRF(ctx context.Context, sess session.Session, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.requireCSRF(ctx, sess, token)
}

// requireCSRF verifies token against sess before any state change.
func (e *Engine) requireCSRF(ctx context.Context, sess session.Session, token string) error {
	if err := e.auth.VerifyCSRFToken(sess, token); err != nil {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, sess.Identity, "", "", err, nil)
		return err
	}
	return nil
}
