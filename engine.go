package goSession

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/paramname"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

const maxCreateAttempts = 3

// Engine ties the token codec, the Redis store, metrics, audit and logging
// together. It is safe for concurrent use after [Builder.Build].
type Engine struct {
	config  Config
	codec   *jwt.Codec
	store   *session.Store
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  zerolog.Logger
	header  string
	ctxKey  sessionContextKey
}

// Close flushes pending audit events. It does not close the Redis client,
// which the caller owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]float64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// countErr maps a store error to its failure counter.
func (e *Engine) countErr(err error) {
	switch {
	case errors.Is(err, ErrStorage):
		e.metricInc(MetricStorageFailure)
	case errors.Is(err, ErrSerialization):
		e.metricInc(MetricSerializationFailure)
	}
}

// Logger returns the engine logger.
func (e *Engine) Logger() zerolog.Logger {
	if e == nil {
		return zerolog.Nop()
	}
	return e.logger
}

// ParamName is the request parameter that carries the token.
func (e *Engine) ParamName() string {
	if e == nil {
		return ""
	}
	return e.config.Request.Param
}

// HeaderName is the header form of [Engine.ParamName], e.g. x-access-token.
func (e *Engine) HeaderName() string {
	if e == nil {
		return ""
	}
	return e.header
}

// RequestKey is the name the session is attached under in the request context.
func (e *Engine) RequestKey() string {
	if e == nil {
		return ""
	}
	return e.config.Request.Key
}

// MaxBodyBytes bounds how much of a request body the middleware reads when
// looking for the token.
func (e *Engine) MaxBodyBytes() int64 {
	if e == nil {
		return 0
	}
	return e.config.Request.MaxBodyBytes
}

// Policy returns the middleware error policies.
func (e *Engine) Policy() PolicyConfig {
	if e == nil {
		return PolicyConfig{}
	}
	return e.config.Policy
}

// MaxAge is the TTL applied on every create, update and touch.
func (e *Engine) MaxAge() time.Duration {
	if e == nil {
		return 0
	}
	return e.store.MaxAge()
}

// NewSession returns an empty, identity-less session bound to e.
func (e *Engine) NewSession() *Session {
	return &Session{Record: *session.NewRecord(), engine: e}
}

// Create starts a new session for owner with empty data and returns it with
// its signed token. An empty owner falls back to a string `sub` claim.
//
//	Performance: 1 Redis SET NX.
func (e *Engine) Create(ctx context.Context, owner string, claims map[string]any) (*Session, string, error) {
	if e == nil {
		return nil, "", ErrEngineNotReady
	}
	s := e.NewSession()
	token, err := e.create(ctx, s, owner, claims)
	if err != nil {
		return nil, "", err
	}
	return s, token, nil
}

func (e *Engine) create(ctx context.Context, s *Session, owner string, claims map[string]any) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	signed := jwt.Claims(claims).Clone()
	if owner == "" {
		owner = signed.Subject()
	}
	if owner == "" {
		owner = s.Owner
	}
	if err := e.store.CheckOwner(owner); err != nil {
		return "", err
	}
	if owner != "" {
		signed[jwt.ClaimSubject] = owner
	}
	if s.Data == nil {
		s.Data = make(map[string]any)
	}

	var (
		token  string
		issued jwt.Claims
		err    error
	)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token, issued, err = e.codec.Issue(signed)
		if err != nil {
			return "", err
		}
		rec := session.Record{ID: issued.ID(), Owner: owner, Data: s.Data}
		err = e.store.Create(ctx, &rec)
		if !errors.Is(err, ErrSessionExists) {
			break
		}
	}
	if err != nil {
		e.countErr(err)
		e.logger.Warn().Err(err).Str("owner", owner).Msg("session create failed")
		e.emitAudit(ctx, AuditSessionCreated, "", owner, err, nil)
		return "", err
	}

	s.ID = issued.ID()
	s.Owner = owner
	s.Claims = issued
	s.RawToken = token
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditSessionCreated, s.ID, owner, nil, nil)
	e.logger.Debug().Object("session", &s.Record).Msg("session created")
	return token, nil
}

// Verify checks a token's signature and claims without touching storage.
// ctx bounds the audit emission of a rejected token.
func (e *Engine) Verify(ctx context.Context, token string) (jwt.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		e.metricInc(MetricNoToken)
		return nil, ErrNoToken
	}
	claims, err := e.codec.Verify(token)
	if err != nil {
		e.metricInc(MetricTokenInvalid)
		e.emitAudit(ctx, AuditTokenRejected, "", "", err, nil)
		return nil, err
	}
	return claims, nil
}

// Open verifies token and loads the session it names. The returned error is
// [ErrNoToken], [ErrInvalidToken], [ErrSessionMissing], [ErrSerialization] or
// [ErrStorage]; only the last one means the outcome is unknown.
//
//	Performance: 1 Redis GET.
func (e *Engine) Open(ctx context.Context, token string) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	claims, err := e.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	owner := claims.Subject()
	if err := e.store.CheckOwner(owner); err != nil {
		e.metricInc(MetricTokenInvalid)
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	data, err := e.store.Load(ctx, owner, claims.ID())
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoadLatency, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, ErrSessionMissing) {
			e.metricInc(MetricSessionMissing)
		} else {
			e.countErr(err)
		}
		return nil, err
	}

	s := &Session{
		Record: session.Record{
			ID:       claims.ID(),
			Owner:    owner,
			Data:     data,
			Claims:   claims,
			RawToken: token,
		},
		engine: e,
	}
	e.metricInc(MetricSessionLoaded)
	return s, nil
}

// Touch resets the TTL of s without rewriting its data.
//
//	Performance: 1 Redis EXPIRE.
func (e *Engine) Touch(ctx context.Context, s *Session) error {
	if e == nil || s == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Touch(ctx, &s.Record); err != nil {
		e.countErr(err)
		return err
	}
	e.metricInc(MetricSessionTouched)
	return nil
}

// Update persists the full data of s and resets its TTL. Last write wins.
//
//	Performance: 1 Redis SET.
func (e *Engine) Update(ctx context.Context, s *Session) error {
	if e == nil || s == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Update(ctx, &s.Record); err != nil {
		e.countErr(err)
		return err
	}
	e.metricInc(MetricSessionUpdated)
	return nil
}

// Reload merges the stored data into s.
//
//	Performance: 1 Redis GET.
func (e *Engine) Reload(ctx context.Context, s *Session) error {
	if e == nil || s == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Reload(ctx, &s.Record); err != nil {
		e.countErr(err)
		return err
	}
	e.metricInc(MetricSessionReloaded)
	return nil
}

// Destroy deletes the stored session. It is idempotent.
//
//	Performance: 1 Redis DEL.
func (e *Engine) Destroy(ctx context.Context, s *Session) error {
	if e == nil || s == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Destroy(ctx, &s.Record); err != nil {
		e.countErr(err)
		return err
	}
	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(ctx, AuditSessionDestroyed, s.ID, s.Owner, nil, nil)
	return nil
}

// Keys lazily enumerates the storage keys of owner's sessions. It requires
// the owner key scheme.
func (e *Engine) Keys(ctx context.Context, owner string) iter.Seq2[string, error] {
	if e == nil {
		return func(yield func(string, error) bool) { yield("", ErrEngineNotReady) }
	}
	return e.store.Keys(ctx, owner)
}

// UpdateAllForOwner writes data to every session of owner and returns how
// many were written. On a mid-way failure the returned *BulkError lists the
// keys that were not processed.
func (e *Engine) UpdateAllForOwner(ctx context.Context, owner string, data map[string]any) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if owner == "" {
		return 0, ErrIdentity
	}
	n, err := e.store.UpdateAll(ctx, owner, data)
	e.metrics.Add(MetricBulkUpdated, uint64(n))
	e.finishBulk(ctx, AuditUpdateAll, owner, n, err)
	return n, err
}

// DestroyAllForOwner deletes every session of owner and returns how many
// were removed.
func (e *Engine) DestroyAllForOwner(ctx context.Context, owner string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if owner == "" {
		return 0, ErrIdentity
	}
	n, err := e.store.DestroyAll(ctx, owner)
	e.metrics.Add(MetricBulkDestroyed, uint64(n))
	e.finishBulk(ctx, AuditDestroyAll, owner, n, err)
	return n, err
}

// CountForOwner returns how many sessions owner has. It scans the keyspace
// and is not meant for request hot paths.
func (e *Engine) CountForOwner(ctx context.Context, owner string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if owner == "" {
		return 0, ErrIdentity
	}
	n, err := e.store.Count(ctx, owner)
	if err != nil {
		e.countErr(err)
	}
	return n, err
}

func (e *Engine) finishBulk(ctx context.Context, event, owner string, n int, err error) {
	meta := map[string]string{"count": strconv.Itoa(n)}
	if err != nil {
		e.countErr(err)
		ev := e.logger.Error().Err(err).Str("owner", owner).Int("processed", n)
		var bulkErr *BulkError
		if errors.As(err, &bulkErr) {
			ev = ev.Str("failed_key", bulkErr.Key).Int("unprocessed", len(bulkErr.Unprocessed))
			meta["unprocessed"] = strconv.Itoa(len(bulkErr.Unprocessed))
		}
		ev.Msg(event + " failed")
	}
	e.emitAudit(ctx, event, "", owner, err, meta)
}

// Ping reports Redis availability and round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

func newEngine(cfg Config, codec *jwt.Codec, store *session.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		config: cfg,
		codec:  codec,
		store:  store,
		logger: logger,
		header: paramname.ToHeader(cfg.Request.Param),
		ctxKey: sessionContextKey{name: cfg.Request.Key},
	}
}
