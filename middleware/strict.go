package middleware

import (
	"errors"
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
)

// RequireSession rejects requests without an identity cookie or whose
// identity no longer names a stored user. Store failures answer 503.
func RequireSession(engine *goCrud.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess := sessionOf(engine, r)
			if !sess.Authenticated() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			_, err := engine.GetUser(r.Context(), goCrud.UserQuery{Nid: sess.Identity})
			switch {
			case err == nil:
			case errors.Is(err, goCrud.ErrNotFound):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			default:
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
