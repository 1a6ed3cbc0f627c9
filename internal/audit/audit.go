package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types emitted by the session engine.
const (
	EventSessionCreated   = "session_created"
	EventSessionDestroyed = "session_destroyed"
	EventUpdateAll        = "session_update_all"
	EventDestroyAll       = "session_destroy_all"
	EventTokenRejected    = "token_rejected"
)

// Event is the canonical audit record shared by the dispatcher and the root API.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	Owner     string            `json:"owner,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MarshalZerologObject lets events be logged with zerolog's Object helpers.
func (e Event) MarshalZerologObject(ev *zerolog.Event) {
	ev.Time("timestamp", e.Timestamp).
		Str("event_type", e.EventType).
		Bool("success", e.Success)
	if e.SessionID != "" {
		ev.Str("session_id", e.SessionID)
	}
	if e.Owner != "" {
		ev.Str("owner", e.Owner)
	}
	if e.Error != "" {
		ev.Str("error", e.Error)
	}
	if len(e.Metadata) > 0 {
		dict := zerolog.Dict()
		for k, v := range e.Metadata {
			dict.Str(k, v)
		}
		ev.Dict("metadata", dict)
	}
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink returns a sink buffering up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events is the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink writes events to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZerologSink writes each event as one structured log line at info level,
// or warn when the event records a failure.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink writes events through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	ev := s.logger.Info()
	if !event.Success {
		ev = s.logger.Warn()
	}
	ev.EmbedObject(event).Msg("audit")
}
