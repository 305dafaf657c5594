package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) { s.count.Add(1) }

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) { <-s.gate }

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := sink.count.Load(); got != 50 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event is held by the blocked sink, one fills the buffer.
	d.Emit(context.Background(), Event{})
	time.Sleep(20 * time.Millisecond)
	d.Emit(context.Background(), Event{})
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(sink.gate)
	d.Close()
}

func TestBlockingEmitHonoursContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{})
	time.Sleep(20 * time.Millisecond)
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{})
	if time.Since(start) > time.Second {
		t.Fatal("blocking emit did not return on context cancel")
	}
}

func TestDropsAreCountedPerEventType(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	d.Emit(context.Background(), Event{EventType: "login_success"})
	time.Sleep(20 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "login_success"})
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "quiz_session_finished"})
	}
	d.Emit(context.Background(), Event{EventType: "logout"})

	byType := d.DroppedByType()
	if byType["quiz_session_finished"] != 3 || byType["logout"] != 1 {
		t.Fatalf("unexpected per-type drops: %v", byType)
	}
	if _, ok := byType["login_success"]; ok {
		t.Fatalf("delivered event type must not be counted: %v", byType)
	}
	if d.Dropped() != 4 {
		t.Fatalf("expected 4 drops, got %d", d.Dropped())
	}

	close(sink.gate)
	d.Close()
}

func TestCanceledBlockingEmitCountsAsDrop(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{})
	time.Sleep(20 * time.Millisecond)
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Emit(ctx, Event{EventType: "refresh_success"})

	if got := d.DroppedByType()["refresh_success"]; got != 1 {
		t.Fatalf("expected canceled emit to count as a drop, got %d", got)
	}

	close(sink.gate)
	d.Close()
}

type panicSink struct {
	delivered atomic.Int64
}

func (s *panicSink) Emit(_ context.Context, e Event) {
	if e.EventType == "boom" {
		panic("sink failure")
	}
	s.delivered.Add(1)
}

func TestSinkPanicDoesNotStopDelivery(t *testing.T) {
	sink := &panicSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	if got := sink.delivered.Load(); got != 2 {
		t.Fatalf("expected 2 delivered events around the panic, got %d", got)
	}
	if d.SinkPanics() != 1 {
		t.Fatalf("expected 1 sink panic, got %d", d.SinkPanics())
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "refresh_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "refresh_reuse_detected", UserID: "u1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "refresh_reuse_detected" || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials"})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["level"] != "WARN" {
		t.Fatalf("expected WARN, got %v", rec["level"])
	}
	if rec["event"] != "login_failure" || rec["error"] != "invalid_credentials" {
		t.Fatalf("unexpected record %v", rec)
	}
}
