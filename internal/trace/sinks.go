package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// passes reports whether ev clears the level filter. Heartbeats and
// failures skip the scope check.
func passes(l Level, ev *Event) bool {
	if ev == nil || l == LevelOff {
		return false
	}
	return ev.Kind == KindHeartbeat || ev.Kind == KindFailure || l.ShouldEmit(ev.Scope)
}

// StreamTracer writes each event as it arrives.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	origin time.Time
	closed bool
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: w, level: level, format: format, origin: time.Now()}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !passes(t.level, ev) {
		return
	}
	line := FormatEvent(ev, t.format, t.origin)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		_, _ = t.w.Write(line) // трассировка не должна ронять проверку
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return flushWriter(t.w)
}

func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return errors.Join(flushWriter(t.w), closeWriter(t.w))
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

func flushWriter(w io.Writer) error {
	switch w := w.(type) {
	case interface{ Flush() error }:
		return w.Flush()
	case *os.File:
		if w != os.Stderr && w != os.Stdout {
			return w.Sync()
		}
	}
	return nil
}

// RingTracer keeps the most recent events. With a sink (ring mode from
// New) it writes them out on Close.
type RingTracer struct {
	mu     sync.Mutex
	buf    []Event
	total  uint64 // events ever stored
	level  Level
	sink   io.Writer
	format Format
	closed bool
}

func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, capacity), level: level, format: FormatText}
}

func (t *RingTracer) Emit(ev *Event) {
	if !passes(t.level, ev) {
		return
	}
	t.mu.Lock()
	t.buf[t.total%uint64(len(t.buf))] = *ev
	t.total++
	t.mu.Unlock()
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := uint64(len(t.buf))
	n := min(t.total, size)
	out := make([]Event, 0, n)
	for i := t.total - n; i < t.total; i++ {
		out = append(out, t.buf[i%size])
	}
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	var origin time.Time
	if len(events) > 0 {
		origin = events[0].Time
	}
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format, origin)); err != nil {
			return fmt.Errorf("dump trace ring: %w", err)
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error {
	t.mu.Lock()
	sink, done := t.sink, t.closed
	t.closed = true
	t.mu.Unlock()
	if sink == nil || done {
		return nil
	}
	return errors.Join(t.Dump(sink, t.format), closeWriter(sink))
}

func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

// MultiTracer copies every event to each child.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{tracers: tracers, level: level}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, child := range t.tracers {
		cp := *ev
		child.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	errs := make([]error, 0, len(t.tracers))
	for _, child := range t.tracers {
		errs = append(errs, child.Flush())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Close() error {
	errs := make([]error, 0, len(t.tracers))
	for _, child := range t.tracers {
		errs = append(errs, child.Close())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }

// DumpRecent writes the in-memory history of t to w when t keeps one and
// has no sink of its own. It is used after an internal failure.
func DumpRecent(t Tracer, w io.Writer) error {
	var ring *RingTracer
	switch t := t.(type) {
	case *RingTracer:
		if t.sink == nil {
			ring = t
		}
	case *MultiTracer:
		for _, child := range t.tracers {
			if r, ok := child.(*RingTracer); ok && r.sink == nil {
				ring = r
				break
			}
		}
	}
	if ring == nil {
		return nil
	}
	if _, err := fmt.Fprintln(w, "trace: recent events"); err != nil {
		return err
	}
	return ring.Dump(w, FormatText)
}
