package middleware

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims verified by [RequireToken].
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(jwt.Claims)
	return c, ok
}

// RequireToken verifies the request token without touching Redis and
// rejects with 401 when it is absent or invalid. A destroyed session still
// passes until its token expires.
func RequireToken(engine *goSession.Engine, opts ...Option) func(http.Handler) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	extractor := NewExtractor(engine.ParamName())
	extractor.MaxBodyBytes = engine.MaxBodyBytes()
	extractor.PathValue = o.pathValue

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := extractor.Extract(r)
			claims, err := engine.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
