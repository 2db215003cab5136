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
	// DropIfFull discards events when the buffer is full instead of blocking the caller.
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink from a single goroutine.
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	events     chan Event
	dropIfFull bool

	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg.Enabled is false.
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
		sink:       sink,
		events:     make(chan Event, cfg.BufferSize),
		dropIfFull: cfg.DropIfFull,
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case ev := <-d.events:
			d.sink.Emit(context.Background(), ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.events:
			d.sink.Emit(context.Background(), ev)
		default:
			return
		}
	}
}

// Emit queues event. It reports false when the event was dropped or the dispatcher is
// closed.
func (d *Dispatcher) Emit(ctx context.Context, event Event) bool {
	if d == nil || d.closed.Load() {
		return false
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
			return true
		case <-d.stop:
			return false
		default:
			d.dropped.Add(1)
			return false
		}
	}

	select {
	case d.events <- event:
		return true
	case <-ctx.Done():
		return false
	case <-d.stop:
		return false
	}
}

// Close stops accepting events, delivers what is buffered and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

// Dropped returns the number of events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
