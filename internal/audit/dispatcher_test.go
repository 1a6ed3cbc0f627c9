package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate    chan struct{}
	entered chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
}

func (s *gateSink) Emit(context.Context, Event) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.gate
}

type panicSink struct {
	calls atomic.Int64
}

func (s *panicSink) Emit(context.Context, Event) {
	if s.calls.Add(1) == 1 {
		panic("sink failure")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDisabledDispatcherIsNilAndSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: EventSessionCreated})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 || d.Stats() != (Stats{}) {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestBlockingEmitWaitsForSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestBlockingEmitHonoursContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	select {
	case <-sink.entered:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first event")
	}
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Emit(ctx, Event{EventType: "e3"})
	if time.Since(start) > time.Second {
		t.Fatal("expected emit to return once the context expired")
	}
	if got := d.Stats(); got.Abandoned != 1 || got.Pending != 1 || got.Dropped != 0 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestSinkPanicDoesNotStopDelivery(t *testing.T) {
	sink := &panicSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Emit(context.Background(), Event{EventType: EventSessionCreated})
	d.Emit(context.Background(), Event{EventType: EventSessionDestroyed})
	d.Close()

	if got := sink.calls.Load(); got != 2 {
		t.Fatalf("expected both events to reach the sink, got %d", got)
	}
	if got := d.Stats(); got.Delivered != 2 || got.SinkPanics != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestCloseFlushesQueuedEvents(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: EventSessionCreated})
	}
	d.Close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
	if d.Delivered() != 10 {
		t.Fatalf("expected delivered counter 10, got %d", d.Delivered())
	}
}

func TestCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, &countingSink{})

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp: time.Now().UTC(),
		EventType: EventSessionCreated,
		SessionID: "sid-1",
		Owner:     "frodo",
		Success:   true,
	})

	out := buf.String()
	if !strings.Contains(out, `"event_type":"session_created"`) {
		t.Fatalf("expected event type in %q", out)
	}
	if !strings.Contains(out, `"owner":"frodo"`) {
		t.Fatalf("expected owner in %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated JSON line")
	}
}

func TestZerologSinkLevelsByOutcome(t *testing.T) {
	var buf syncBuffer
	sink := NewZerologSink(zerolog.New(&buf))

	sink.Emit(context.Background(), Event{EventType: EventDestroyAll, Owner: "frodo", Success: true, Metadata: map[string]string{"count": "3"}})
	sink.Emit(context.Background(), Event{EventType: EventTokenRejected, Error: "bad signature"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], `"count":"3"`) {
		t.Fatalf("unexpected success line %q", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) || !strings.Contains(lines[1], `"error":"bad signature"`) {
		t.Fatalf("unexpected failure line %q", lines[1])
	}
	if !strings.Contains(lines[1], `"component":"audit"`) {
		t.Fatalf("expected component field in %q", lines[1])
	}
}
