package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is one session lifecycle record delivered to an [AuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's async dispatcher.
type AuditSink = audit.Sink

// AuditStats reports dispatcher queue depth and delivery counters.
type AuditStats = audit.Stats

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	ZerologSink    = audit.ZerologSink
)

// Audit event types.
const (
	AuditSessionCreated   = audit.EventSessionCreated
	AuditSessionDestroyed = audit.EventSessionDestroyed
	AuditUpdateAll        = audit.EventUpdateAll
	AuditDestroyAll       = audit.EventDestroyAll
	AuditTokenRejected    = audit.EventTokenRejected
)

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
)

// NewZerologSink writes audit events through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return audit.NewZerologSink(logger)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, sid, owner string, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: sid,
		Owner:     owner,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditStats returns the audit dispatcher counters. With auditing disabled
// every field is zero.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}
