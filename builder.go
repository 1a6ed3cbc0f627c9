package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	logger    *zerolog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client. A *redis.Client, *redis.ClusterClient or
// ring all work. The engine never closes it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the engine logger. Without it Build creates one from
// Config.Log writing to stderr.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets where audit events go and enables auditing. Without a
// sink, an enabled audit config writes events through the engine logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles the in-process counters read by
// [Engine.MetricsSnapshot] and the exporters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records the load latency histogram. It has no effect
// unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger zerolog.Logger
	if b.logger != nil {
		logger = *b.logger
	} else {
		l, err := NewLogger(cfg.Log, nil)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	codec, err := jwt.NewCodec(cfg.Token.codecConfig())
	if err != nil {
		return nil, err
	}

	storeCfg, err := cfg.Store.storeConfig()
	if err != nil {
		return nil, err
	}
	store := session.NewStore(b.redis, storeCfg)

	engine := newEngine(cfg, codec, store, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	sink := b.auditSink
	if sink == nil {
		sink = NewZerologSink(logger)
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	for _, w := range cfg.Lint() {
		ev := logger.Info()
		if w.Severity == LintWarn {
			ev = logger.Warn()
		}
		ev.Str("code", w.Code).Msg(w.Message)
	}

	logger.Debug().
		Str("keyspace", storeCfg.Keyspace).
		Stringer("key_scheme", storeCfg.Scheme).
		Dur("max_age", storeCfg.MaxAge).
		Str("param", cfg.Request.Param).
		Msg("session engine built")

	b.built = true
	return engine, nil
}
