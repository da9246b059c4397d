package middleware

import (
	"context"
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/MrEthical07/goCrud/session"
)

type sessionContextKey struct{}

// SessionFromContext returns the session attached by [Session]. The second
// result is false when the middleware did not run.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(session.Session)
	return sess, ok
}

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// Session loads the request session from its cookies and attaches it to the
// request context. It never rejects a request; cookies that fail
// verification yield an anonymous session.
func Session(engine *goCrud.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := engine.LoadSession(cookieLookup(r))
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func cookieLookup(r *http.Request) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
}

// sessionOf returns the session attached by [Session], loading it from the
// request when the middleware was not installed.
func sessionOf(engine *goCrud.Engine, r *http.Request) session.Session {
	if sess, ok := SessionFromContext(r.Context()); ok {
		return sess
	}
	return engine.LoadSession(cookieLookup(r))
}
