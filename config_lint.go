package goSession

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
)

func (s LintSeverity) String() string {
	if s == LintWarn {
		return "warn"
	}
	return "info"
}

// LintWarning is an advisory finding about a configuration that validates but
// is probably not what a production deployment wants.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// Lint reports advisory findings. It never fails; use [Config.Validate] for
// hard errors.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	switch jwt.Algorithm(c.Token.Algorithm) {
	case jwt.AlgHS256, jwt.AlgHS384, jwt.AlgHS512:
		if n := len(c.Token.Secret); n > 0 && n < 32 {
			add("hmac_secret_short", LintWarn, "HMAC secret is %d bytes; use at least 32", n)
		}
	}
	if c.Token.TTL == 0 {
		add("token_ttl_unset", LintInfo, "tokens carry no exp; reachability is bounded by the store max age only")
	} else if c.Token.TTL > c.Store.MaxAge {
		add("token_outlives_session", LintInfo, "token TTL %s exceeds store max age %s", c.Token.TTL, c.Store.MaxAge)
	}
	if c.Token.Leeway > time.Minute {
		add("leeway_large", LintWarn, "leeway %s is larger than 1m", c.Token.Leeway)
	}
	if c.Store.MaxAge > 30*24*time.Hour {
		add("max_age_long", LintWarn, "store max age %s is longer than 30 days", c.Store.MaxAge)
	}
	if scheme, _ := session.ParseKeyScheme(c.Store.KeyScheme); scheme == session.KeyByOwner && strings.HasSuffix(c.Store.Keyspace, ":") {
		add("keyspace_double_separator", LintInfo, "owner keys are joined with ':'; keyspace %q yields %s:<owner>:<id>", c.Store.Keyspace, c.Store.Keyspace)
	}
	if c.Policy.Storage == StorageProceed {
		add("storage_failure_proceeds", LintInfo, "requests continue with an empty session when Redis is unavailable")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", LintWarn, "audit emission blocks request paths when the buffer is full")
	}
	return ws
}
