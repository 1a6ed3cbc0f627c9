package goSession

import "context"

// sessionContextKey is unique per configured request key, so two engines with
// different request keys can attach sessions to the same request.
type sessionContextKey struct {
	name string
}

// WithSession attaches s to ctx under the engine's request key.
func (e *Engine) WithSession(ctx context.Context, s *Session) context.Context {
	if e == nil {
		return ctx
	}
	return context.WithValue(ctx, e.ctxKey, s)
}

// SessionFromContext returns the session attached by [Engine.WithSession],
// usually by the session middleware.
func (e *Engine) SessionFromContext(ctx context.Context) (*Session, bool) {
	if e == nil || ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(e.ctxKey).(*Session)
	return s, ok && s != nil
}
