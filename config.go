package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

// Config is the full engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token   TokenConfig
	Store   StoreConfig
	Request RequestConfig
	Policy  PolicyConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Log     LogConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig describes how session tokens are signed and verified.
type TokenConfig struct {
	Algorithm  string // "HS256" (default), "HS384", "HS512", "EdDSA"
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
	// TTL of issued tokens; 0 issues tokens without exp.
	TTL          time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	KeyID        string
	VerifyKeys   map[string][]byte
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig describes Redis key layout and expiry.
type StoreConfig struct {
	Keyspace        string
	MaxAge          time.Duration
	KeyScheme       string // "id" (default) or "owner"
	ScanCount       int64
	BulkParallelism int
}

/*
====================================
REQUEST CONFIG
====================================
*/

// RequestConfig names the request parameter carrying the token and the key
// the session is attached under.
type RequestConfig struct {
	// Key is the request context key name; "session" by default.
	Key string
	// Param is the token parameter name; its header form is derived from it.
	Param        string
	MaxBodyBytes int64
}

/*
====================================
POLICY CONFIG
====================================
*/

// FailurePolicy controls what the middleware records for invalid tokens and
// missing sessions. Both policies attach an empty session and continue.
type FailurePolicy int

const (
	// FailureReport records the cause in the request outcome.
	FailureReport FailurePolicy = iota
	// FailureSilent records only the stage.
	FailureSilent
)

// StoragePolicy controls how the middleware reacts to backend failures.
type StoragePolicy int

const (
	// StorageAbort answers 503 without calling the next handler.
	StorageAbort StoragePolicy = iota
	// StorageProceed attaches an empty session and records the error.
	StorageProceed
)

// PolicyConfig groups middleware error policies.
type PolicyConfig struct {
	Failure     FailurePolicy
	Storage     StoragePolicy
	TouchOnLoad bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the load latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LogConfig selects the zerolog level and output format of [NewLogger].
type LogConfig struct {
	Level   string // zerolog level name, "info" by default
	Console bool   // human-readable output instead of JSON
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the baseline configuration. It has no signing secret;
// callers must supply Token.Secret or EdDSA keys before building an engine.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Algorithm: string(jwt.AlgHS256),
		},
		Store: StoreConfig{
			Keyspace:        session.DefaultKeyspace,
			MaxAge:          session.DefaultMaxAge,
			KeyScheme:       session.KeyByID.String(),
			ScanCount:       100,
			BulkParallelism: 4,
		},
		Request: RequestConfig{
			Key:          "session",
			Param:        "accessToken",
			MaxBodyBytes: 1 << 20,
		},
		Policy: PolicyConfig{
			Failure:     FailureReport,
			Storage:     StorageAbort,
			TouchOnLoad: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c TokenConfig) codecConfig() jwt.Config {
	return jwt.Config{
		Algorithm:    jwt.Algorithm(c.Algorithm),
		Secret:       c.Secret,
		PrivateKey:   c.PrivateKey,
		PublicKey:    c.PublicKey,
		TTL:          c.TTL,
		Issuer:       c.Issuer,
		Audience:     c.Audience,
		Leeway:       c.Leeway,
		MaxFutureIAT: c.MaxFutureIAT,
		KeyID:        c.KeyID,
		VerifyKeys:   c.VerifyKeys,
	}
}

func (c StoreConfig) storeConfig() (session.Config, error) {
	scheme, ok := session.ParseKeyScheme(c.KeyScheme)
	if !ok {
		return session.Config{}, fmt.Errorf("unknown key scheme %q", c.KeyScheme)
	}
	return session.Config{
		Keyspace:        c.Keyspace,
		MaxAge:          c.MaxAge,
		Scheme:          scheme,
		ScanCount:       c.ScanCount,
		BulkParallelism: c.BulkParallelism,
	}, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error. Token signing material is
// checked in full by the codec at build time.
func (c *Config) Validate() error {
	// Token
	switch jwt.Algorithm(c.Token.Algorithm) {
	case jwt.AlgHS256, jwt.AlgHS384, jwt.AlgHS512:
		if len(c.Token.Secret) == 0 {
			return errors.New("Token Secret is required for HMAC algorithms")
		}
	case jwt.AlgEdDSA:
		if len(c.Token.PublicKey) == 0 && len(c.Token.VerifyKeys) == 0 {
			return errors.New("Token EdDSA requires PublicKey or VerifyKeys")
		}
	default:
		return fmt.Errorf("unsupported Token Algorithm %q", c.Token.Algorithm)
	}
	if c.Token.TTL < 0 {
		return errors.New("Token TTL must be >= 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}
	if c.Token.Issuer != "" && strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer must not be blank")
	}
	if c.Token.Audience != "" && strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("Token Audience must not be blank")
	}
	if c.Token.MaxFutureIAT < 0 {
		return errors.New("Token MaxFutureIAT must be >= 0")
	}

	// Store
	if c.Store.Keyspace == "" {
		return errors.New("Store Keyspace must not be empty")
	}
	if c.Store.MaxAge < time.Second {
		return errors.New("Store MaxAge must be >= 1s")
	}
	if _, ok := session.ParseKeyScheme(c.Store.KeyScheme); !ok {
		return fmt.Errorf("Store KeyScheme must be 'id' or 'owner', got %q", c.Store.KeyScheme)
	}
	if c.Store.ScanCount <= 0 {
		return errors.New("Store ScanCount must be > 0")
	}
	if c.Store.BulkParallelism <= 0 {
		return errors.New("Store BulkParallelism must be > 0")
	}

	// Request
	if strings.TrimSpace(c.Request.Key) == "" {
		return errors.New("Request Key must not be empty")
	}
	if strings.TrimSpace(c.Request.Param) == "" {
		return errors.New("Request Param must not be empty")
	}
	if c.Request.MaxBodyBytes <= 0 {
		return errors.New("Request MaxBodyBytes must be > 0")
	}

	// Policy
	if c.Policy.Failure != FailureReport && c.Policy.Failure != FailureSilent {
		return errors.New("Policy Failure is invalid")
	}
	if c.Policy.Storage != StorageAbort && c.Policy.Storage != StorageProceed {
		return errors.New("Policy Storage is invalid")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Log
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("Log Level is invalid: %w", err)
		}
	}

	return nil
}
