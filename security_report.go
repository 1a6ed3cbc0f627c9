package goSession

import "time"

// SecurityReport summarizes the security-relevant settings an engine was
// built with. It carries no key material.
type SecurityReport struct {
	SigningAlgorithm   string
	KeyRotation        bool
	TokenTTL           time.Duration
	TokenExpires       bool
	Leeway             time.Duration
	IssuerChecked      bool
	AudienceChecked    bool
	MaxAge             time.Duration
	KeyScheme          string
	StorageFailureOpen bool
	AuditActive        bool
	AuditLossy         bool
	MetricsActive      bool
	LintWarnings       []string
}

// SecurityReport returns the posture of e.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	var warnings []string
	for _, w := range cfg.Lint() {
		if w.Severity == LintWarn {
			warnings = append(warnings, w.Code)
		}
	}

	return SecurityReport{
		SigningAlgorithm:   string(e.codec.Algorithm()),
		KeyRotation:        len(cfg.Token.VerifyKeys) > 0,
		TokenTTL:           cfg.Token.TTL,
		TokenExpires:       cfg.Token.TTL > 0,
		Leeway:             cfg.Token.Leeway,
		IssuerChecked:      cfg.Token.Issuer != "",
		AudienceChecked:    cfg.Token.Audience != "",
		MaxAge:             e.store.MaxAge(),
		KeyScheme:          e.store.Scheme().String(),
		StorageFailureOpen: cfg.Policy.Storage == StorageProceed,
		AuditActive:        e.audit != nil,
		AuditLossy:         e.audit != nil && cfg.Audit.DropIfFull,
		MetricsActive:      e.metrics.Enabled(),
		LintWarnings:       warnings,
	}
}
