package middleware

import (
	"net/http"

	goCrud "github.com/MrEthical07/goCrud"
)

// RequireIdentity rejects requests whose sealed identity cookie is missing or
// invalid. Only the cookie signature and expiry are checked; the store is
// never consulted, so an identity whose user was deleted still passes. Use
// [RequireSession] when that matters.
func RequireIdentity(engine *goCrud.Engine) func(http.Handler) http.Handler {
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

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
