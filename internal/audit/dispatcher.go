package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior. With DropIfFull a full
// buffer drops the event and counts it; otherwise Emit blocks until there
// is room, the context ends or the dispatcher closes.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink. Drops are
// counted per event type, and a sink that panics loses only the event it
// was handling.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	dropped    atomic.Uint64
	droppedBy  sync.Map // event type -> *atomic.Uint64
	sinkPanics atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled; every method is safe on a nil *Dispatcher.
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

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.sinkPanics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event for delivery. A zero Timestamp is set to now.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	c, ok := d.droppedBy.Load(eventType)
	if !ok {
		c, _ = d.droppedBy.LoadOrStore(eventType, new(atomic.Uint64))
	}
	c.(*atomic.Uint64).Add(1)
}

// Close stops accepting events and waits for the buffer to drain.
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

// Dropped returns how many events were discarded, either on a full buffer
// or because the emitting context ended first.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType breaks Dropped down by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	d.droppedBy.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return out
}

// SinkPanics returns how many deliveries panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.sinkPanics.Load()
}
