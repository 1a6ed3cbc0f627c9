package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "gosession_created_total", Help: "Sessions persisted by create."},
	{ID: goSession.MetricSessionLoaded, Name: "gosession_loaded_total", Help: "Tokens resolved to a stored session."},
	{ID: goSession.MetricSessionMissing, Name: "gosession_missing_total", Help: "Valid tokens whose session expired or was destroyed."},
	{ID: goSession.MetricTokenInvalid, Name: "gosession_token_invalid_total", Help: "Tokens rejected by verification."},
	{ID: goSession.MetricNoToken, Name: "gosession_no_token_total", Help: "Requests without a session token."},
	{ID: goSession.MetricSessionTouched, Name: "gosession_touched_total", Help: "Session TTL refreshes."},
	{ID: goSession.MetricSessionUpdated, Name: "gosession_updated_total", Help: "Full session data rewrites."},
	{ID: goSession.MetricSessionReloaded, Name: "gosession_reloaded_total", Help: "Session reloads from storage."},
	{ID: goSession.MetricSessionDestroyed, Name: "gosession_destroyed_total", Help: "Single-session deletions."},
	{ID: goSession.MetricBulkUpdated, Name: "gosession_bulk_updated_total", Help: "Sessions rewritten by owner bulk updates."},
	{ID: goSession.MetricBulkDestroyed, Name: "gosession_bulk_destroyed_total", Help: "Sessions removed by owner bulk deletes."},
	{ID: goSession.MetricStorageFailure, Name: "gosession_storage_failure_total", Help: "Backend errors surfaced to callers."},
	{ID: goSession.MetricSerializationFailure, Name: "gosession_serialization_failure_total", Help: "Session payloads that could not be encoded or decoded."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoadLatency, Name: "gosession_load_latency_seconds", Help: "Latency of verifying a token and loading its session."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine's eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
