package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the queue is full. Otherwise Emit waits for
	// room until the caller's context ends.
	DropIfFull bool
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	// Pending events are queued but not yet handed to the sink.
	Pending int
	// Delivered events reached the sink, including ones whose sink panicked.
	Delivered uint64
	// Dropped events found the queue full under DropIfFull.
	Dropped uint64
	// Abandoned events were never queued because the emitting request's
	// context ended while waiting for room.
	Abandoned uint64
	// SinkPanics counts sink calls that panicked and were recovered.
	SinkPanics uint64
}

// Dispatcher relays session lifecycle events to a sink on one background
// goroutine, so request paths never wait on sink I/O. A nil *Dispatcher is
// valid and discards everything.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	delivered  atomic.Uint64
	dropped    atomic.Uint64
	abandoned  atomic.Uint64
	sinkPanics atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing
// is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			// Drain what was queued before Close.
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event
// but not the worker.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.sinkPanics.Add(1)
		}
		d.delivered.Add(1)
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull a full queue drops the event and bumps
// Dropped; otherwise Emit blocks until there is room, ctx ends (the event is
// then counted as abandoned), or the dispatcher is closed.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.abandoned.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events, flushes the queue and waits for delivery.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many events were dropped on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns how many events were handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Stats returns all dispatcher counters. A nil dispatcher reports zeros.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Pending:    len(d.ch),
		Delivered:  d.delivered.Load(),
		Dropped:    d.dropped.Load(),
		Abandoned:  d.abandoned.Load(),
		SinkPanics: d.sinkPanics.Load(),
	}
}
