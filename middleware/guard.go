package middleware

import (
	"context"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// Stage is how far the middleware got with a request.
type Stage int

// Stages recorded in [Outcome].
const (
	// StageNoToken: the request carried no token; an empty session is attached.
	StageNoToken Stage = iota
	// StageTokenFound: a token was extracted but not yet checked.
	StageTokenFound
	// StageVerified: the token verified; storage was not consulted yet.
	StageVerified
	// StageLoaded: the stored session was read.
	StageLoaded
	// StageAttached: the loaded session is in the request context.
	StageAttached
	// StageTokenInvalid: verification failed; an empty session is attached.
	StageTokenInvalid
	// StageSessionMissing: the token is valid but its session expired or was destroyed.
	StageSessionMissing
	// StageStorageFailure: Redis failed, so the outcome is unknown.
	StageStorageFailure
)

func (s Stage) String() string {
	switch s {
	case StageNoToken:
		return "no_token"
	case StageTokenFound:
		return "token_found"
	case StageVerified:
		return "verified"
	case StageLoaded:
		return "loaded"
	case StageAttached:
		return "attached"
	case StageTokenInvalid:
		return "token_invalid"
	case StageSessionMissing:
		return "session_missing"
	case StageStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Outcome records what the middleware did for one request. Err is nil for
// StageAttached and StageNoToken, and under FailureSilent.
type Outcome struct {
	Stage  Stage
	Source Source
	Err    error
}

type outcomeContextKey struct{}

// OutcomeFromContext returns the outcome recorded by [Sessions].
func OutcomeFromContext(ctx context.Context) (Outcome, bool) {
	o, ok := ctx.Value(outcomeContextKey{}).(Outcome)
	return o, ok
}

// SessionFromContext returns the session attached by [Sessions] for engine.
func SessionFromContext(ctx context.Context, engine *goSession.Engine) (*goSession.Session, bool) {
	return engine.SessionFromContext(ctx)
}

// ErrorHandler writes the response when the middleware aborts a request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option customizes [Sessions].
type Option func(*options)

type options struct {
	pathValue    func(r *http.Request, name string) string
	errorHandler ErrorHandler
}

// WithPathValue sets how route variables are read, for routers that do not
// populate (*http.Request).PathValue.
func WithPathValue(fn func(r *http.Request, name string) string) Option {
	return func(o *options) { o.pathValue = fn }
}

// WithErrorHandler replaces the default 503 response on storage failure.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.errorHandler = h }
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
}

// Sessions attaches a fresh session to every request. A valid token loads
// the stored session; anything else attaches an empty one the handler can
// Create on. Only storage failures can stop the request, and only under
// [goSession.StorageAbort].
func Sessions(engine *goSession.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := options{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(&o)
	}
	extractor := NewExtractor(engine.ParamName())
	extractor.MaxBodyBytes = engine.MaxBodyBytes()
	extractor.PathValue = o.pathValue
	if h := engine.HeaderName(); h != "" {
		extractor.Header = h
	}
	policy := engine.Policy()
	logger := engine.Logger().With().Str("component", "middleware").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				o.errorHandler(w, r, goSession.ErrEngineNotReady)
				return
			}
			ctx := r.Context()
			token, source := extractor.Extract(r)
			outcome := Outcome{Stage: StageTokenFound, Source: source}

			s, err := engine.Open(ctx, token)
			switch {
			case err == nil:
				outcome.Stage = StageLoaded
				if policy.TouchOnLoad {
					if terr := s.Touch(ctx); terr != nil {
						err = terr
						s = nil
						outcome.Stage = StageSessionMissing
						if errors.Is(terr, goSession.ErrStorage) {
							outcome.Stage = StageStorageFailure
						}
					}
				}
			case errors.Is(err, goSession.ErrNoToken):
				outcome.Stage = StageNoToken
				err = nil
			case errors.Is(err, goSession.ErrInvalidToken):
				outcome.Stage = StageTokenInvalid
				logger.Debug().Err(err).Stringer("source", source).Msg("session token rejected")
			case errors.Is(err, goSession.ErrSessionMissing), errors.Is(err, goSession.ErrSerialization):
				outcome.Stage = StageSessionMissing
			default:
				outcome.Stage = StageStorageFailure
			}

			if outcome.Stage == StageStorageFailure {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("session store failure")
				if policy.Storage == goSession.StorageAbort {
					o.errorHandler(w, r, err)
					return
				}
			}

			if s == nil {
				s = engine.NewSession()
			} else {
				outcome.Stage = StageAttached
			}
			if err != nil && (policy.Failure == goSession.FailureReport || outcome.Stage == StageStorageFailure) {
				outcome.Err = err
			}

			ctx = engine.WithSession(ctx, s)
			ctx = context.WithValue(ctx, outcomeContextKey{}, outcome)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
