package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireSession rejects with 401 any request whose attached session has no
// identity. It must run inside [Sessions] for the same engine.
func RequireSession(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := engine.SessionFromContext(r.Context())
			if !ok || !s.HasIdentity() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
