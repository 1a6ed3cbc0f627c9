package goSession

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk TOML shape. Durations are Go duration strings.
type fileConfig struct {
	Token struct {
		Algorithm    string            `toml:"algorithm"`
		Secret       string            `toml:"secret"`
		SecretEnv    string            `toml:"secret_env"`
		PrivateKey   string            `toml:"private_key_file"`
		PublicKey    string            `toml:"public_key_file"`
		TTL          duration          `toml:"ttl"`
		Issuer       string            `toml:"issuer"`
		Audience     string            `toml:"audience"`
		Leeway       duration          `toml:"leeway"`
		MaxFutureIAT duration          `toml:"max_future_iat"`
		KeyID        string            `toml:"key_id"`
		VerifyKeys   map[string]string `toml:"verify_key_files"`
	} `toml:"token"`
	Store struct {
		Keyspace        *string  `toml:"keyspace"`
		MaxAge          duration `toml:"max_age"`
		KeyScheme       string   `toml:"key_scheme"`
		ScanCount       int64    `toml:"scan_count"`
		BulkParallelism int      `toml:"bulk_parallelism"`
	} `toml:"store"`
	Request struct {
		Key          string `toml:"key"`
		Param        string `toml:"param"`
		MaxBodyBytes int64  `toml:"max_body_bytes"`
	} `toml:"request"`
	Policy struct {
		Failure     string `toml:"failure"`
		Storage     string `toml:"storage"`
		TouchOnLoad *bool  `toml:"touch_on_load"`
	} `toml:"policy"`
	Audit struct {
		Enabled    *bool `toml:"enabled"`
		BufferSize int   `toml:"buffer_size"`
		DropIfFull *bool `toml:"drop_if_full"`
	} `toml:"audit"`
	Metrics struct {
		Enabled          *bool `toml:"enabled"`
		LatencyHistogram *bool `toml:"latency_histograms"`
	} `toml:"metrics"`
	Log struct {
		Level   string `toml:"level"`
		Console *bool  `toml:"console"`
	} `toml:"log"`
}

// duration decodes TOML strings such as "15m" or "24h".
type duration struct {
	time.Duration
	set bool
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	d.set = true
	return nil
}

// LoadConfigFile reads a TOML file and applies it on top of [DefaultConfig].
// Unset keys keep their defaults. Key material may be referenced by file path,
// and the HMAC secret may come from the environment variable named by
// token.secret_env. The result is validated.
func LoadConfigFile(path string) (Config, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	cfg, err := fc.apply(defaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg Config) (Config, error) {
	t := fc.Token
	if t.Algorithm != "" {
		cfg.Token.Algorithm = t.Algorithm
	}
	switch {
	case t.SecretEnv != "":
		secret, ok := os.LookupEnv(t.SecretEnv)
		if !ok || secret == "" {
			return cfg, fmt.Errorf("token secret env %s is not set", t.SecretEnv)
		}
		cfg.Token.Secret = []byte(secret)
	case t.Secret != "":
		cfg.Token.Secret = []byte(t.Secret)
	}
	var err error
	if cfg.Token.PrivateKey, err = readKeyFile(t.PrivateKey, cfg.Token.PrivateKey); err != nil {
		return cfg, err
	}
	if cfg.Token.PublicKey, err = readKeyFile(t.PublicKey, cfg.Token.PublicKey); err != nil {
		return cfg, err
	}
	if len(t.VerifyKeys) > 0 {
		cfg.Token.VerifyKeys = make(map[string][]byte, len(t.VerifyKeys))
		for kid, path := range t.VerifyKeys {
			key, err := readKeyFile(path, nil)
			if err != nil {
				return cfg, err
			}
			cfg.Token.VerifyKeys[kid] = key
		}
	}
	if t.TTL.set {
		cfg.Token.TTL = t.TTL.Duration
	}
	if t.Issuer != "" {
		cfg.Token.Issuer = t.Issuer
	}
	if t.Audience != "" {
		cfg.Token.Audience = t.Audience
	}
	if t.Leeway.set {
		cfg.Token.Leeway = t.Leeway.Duration
	}
	if t.MaxFutureIAT.set {
		cfg.Token.MaxFutureIAT = t.MaxFutureIAT.Duration
	}
	if t.KeyID != "" {
		cfg.Token.KeyID = t.KeyID
	}

	s := fc.Store
	if s.Keyspace != nil {
		cfg.Store.Keyspace = *s.Keyspace
	}
	if s.MaxAge.set {
		cfg.Store.MaxAge = s.MaxAge.Duration
	}
	if s.KeyScheme != "" {
		cfg.Store.KeyScheme = s.KeyScheme
	}
	if s.ScanCount != 0 {
		cfg.Store.ScanCount = s.ScanCount
	}
	if s.BulkParallelism != 0 {
		cfg.Store.BulkParallelism = s.BulkParallelism
	}

	r := fc.Request
	if r.Key != "" {
		cfg.Request.Key = r.Key
	}
	if r.Param != "" {
		cfg.Request.Param = r.Param
	}
	if r.MaxBodyBytes != 0 {
		cfg.Request.MaxBodyBytes = r.MaxBodyBytes
	}

	p := fc.Policy
	switch p.Failure {
	case "":
	case "report":
		cfg.Policy.Failure = FailureReport
	case "silent":
		cfg.Policy.Failure = FailureSilent
	default:
		return cfg, fmt.Errorf("policy.failure must be 'report' or 'silent', got %q", p.Failure)
	}
	switch p.Storage {
	case "":
	case "abort":
		cfg.Policy.Storage = StorageAbort
	case "proceed":
		cfg.Policy.Storage = StorageProceed
	default:
		return cfg, fmt.Errorf("policy.storage must be 'abort' or 'proceed', got %q", p.Storage)
	}
	if p.TouchOnLoad != nil {
		cfg.Policy.TouchOnLoad = *p.TouchOnLoad
	}

	if fc.Audit.Enabled != nil {
		cfg.Audit.Enabled = *fc.Audit.Enabled
	}
	if fc.Audit.BufferSize != 0 {
		cfg.Audit.BufferSize = fc.Audit.BufferSize
	}
	if fc.Audit.DropIfFull != nil {
		cfg.Audit.DropIfFull = *fc.Audit.DropIfFull
	}
	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}
	if fc.Metrics.LatencyHistogram != nil {
		cfg.Metrics.EnableLatencyHistograms = *fc.Metrics.LatencyHistogram
	}
	if fc.Log.Level != "" {
		cfg.Log.Level = fc.Log.Level
	}
	if fc.Log.Console != nil {
		cfg.Log.Console = *fc.Log.Console
	}
	return cfg, nil
}

func readKeyFile(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("key file " + path + " is empty")
	}
	return data, nil
}
