package goSession

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gosession.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[token]
secret = "a-file-secret-that-is-long-enough-123"
ttl = "2h"
issuer = "shire"
leeway = "30s"

[store]
keyspace = "jwt:"
max_age = "12h"
key_scheme = "owner"
bulk_parallelism = 8

[request]
param = "sessionToken"

[policy]
failure = "silent"
storage = "proceed"
touch_on_load = false

[metrics]
enabled = true
latency_histograms = true

[log]
level = "debug"
console = true
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	require.Equal(t, "HS256", cfg.Token.Algorithm)
	require.Equal(t, []byte("a-file-secret-that-is-long-enough-123"), cfg.Token.Secret)
	require.Equal(t, 2*time.Hour, cfg.Token.TTL)
	require.Equal(t, "shire", cfg.Token.Issuer)
	require.Equal(t, 30*time.Second, cfg.Token.Leeway)
	require.Equal(t, "jwt:", cfg.Store.Keyspace)
	require.Equal(t, 12*time.Hour, cfg.Store.MaxAge)
	require.Equal(t, "owner", cfg.Store.KeyScheme)
	require.Equal(t, int64(100), cfg.Store.ScanCount)
	require.Equal(t, 8, cfg.Store.BulkParallelism)
	require.Equal(t, "sessionToken", cfg.Request.Param)
	require.Equal(t, "session", cfg.Request.Key)
	require.Equal(t, FailureSilent, cfg.Policy.Failure)
	require.Equal(t, StorageProceed, cfg.Policy.Storage)
	require.False(t, cfg.Policy.TouchOnLoad)
	require.True(t, cfg.Metrics.Enabled)
	require.True(t, cfg.Metrics.EnableLatencyHistograms)
	require.Equal(t, LogConfig{Level: "debug", Console: true}, cfg.Log)
}

func TestLoadConfigFileSecretFromEnv(t *testing.T) {
	t.Setenv("GOSESSION_TEST_SECRET", "env-secret-value-of-sufficient-length")
	path := writeConfigFile(t, `
[token]
secret = "ignored-when-env-is-named"
secret_env = "GOSESSION_TEST_SECRET"
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("env-secret-value-of-sufficient-length"), cfg.Token.Secret)
}

func TestLoadConfigFileMissingEnvSecret(t *testing.T) {
	path := writeConfigFile(t, `
[token]
secret_env = "GOSESSION_TEST_UNSET_SECRET"
`)

	_, err := LoadConfigFile(path)
	require.ErrorContains(t, err, "GOSESSION_TEST_UNSET_SECRET")
}

func TestLoadConfigFileEdDSAKeyFiles(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "ed25519.key")
	pubPath := filepath.Join(dir, "ed25519.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o600))

	path := writeConfigFile(t, `
[token]
algorithm = "EdDSA"
private_key_file = "`+filepath.ToSlash(privPath)+`"
public_key_file = "`+filepath.ToSlash(pubPath)+`"
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte(priv), cfg.Token.PrivateKey)
	require.Equal(t, []byte(pub), cfg.Token.PublicKey)
}

func TestLoadConfigFileRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[store]\nkeyspaces = \"x\"\n", "unknown key"},
		{"bad duration", "[token]\nsecret = \"s\"\nttl = \"soon\"\n", "decode config"},
		{"bad policy", "[token]\nsecret = \"s\"\n[policy]\nfailure = \"loud\"\n", "policy.failure"},
		{"invalid result", "[token]\nsecret = \"s\"\n[store]\nkey_scheme = \"tenant\"\n", "KeyScheme"},
		{"missing secret", "[store]\nkeyspace = \"jwt:\"\n", "Secret"},
		{"missing key file", "[token]\nalgorithm = \"EdDSA\"\npublic_key_file = \"/does/not/exist\"\n", "read key file"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfigFile(t, tc.body))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadConfigFileMissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
