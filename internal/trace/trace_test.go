package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"off", LevelOff, false},
		{"PHASE", LevelPhase, false},
		{" debug ", LevelDebug, false},
		{"loud", LevelOff, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLevelScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeModule, false},
		{LevelDetail, ScopeModule, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v", tt.level, tt.scope, got)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	span := Begin(tr, ScopePass, "check", 0)
	Begin(tr, ScopeModule, "fn:main", span.ID()).End("")
	span.WithExtra("diags", "2").End("app.yaml")

	out := buf.String()
	if strings.Contains(out, "fn:main") {
		t.Fatalf("module scope leaked at phase level:\n%s", out)
	}
	if !strings.Contains(out, "→ check") || !strings.Contains(out, "← check (app.yaml) [") || !strings.Contains(out, "{diags=2}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSpanEndsOnce(t *testing.T) {
	ring := NewRingTracer(8, LevelPhase)
	before := OpenSpans()
	span := Begin(ring, ScopeDriver, "file", 0)
	if OpenSpans() != before+1 {
		t.Fatalf("open spans = %d, want %d", OpenSpans(), before+1)
	}
	span.End("")
	span.End("")
	if got := len(ring.Snapshot()); got != 2 {
		t.Fatalf("events = %d, want begin and end only", got)
	}
	if OpenSpans() != before {
		t.Fatalf("open spans = %d after End", OpenSpans())
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeNode, "await", "line 3")

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if ev["kind"] != "point" || ev["name"] != "await" || ev["detail"] != "line 3" || ev["scope"] != "node" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeDriver, name, "")
	}
	got := ring.Snapshot()
	if len(got) != 3 {
		t.Fatalf("snapshot len = %d", len(got))
	}
	for i, want := range []string{"c", "d", "e"} {
		if got[i].Name != want {
			t.Fatalf("snapshot[%d] = %s, want %s", i, got[i].Name, want)
		}
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump lines:\n%s", buf.String())
	}
}

func TestRingModeWritesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeRing, OutputPath: path, RingSize: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{"decode", "check", "lower"} {
		Point(tr, ScopePass, name, "")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"name":"check"`) {
		t.Fatalf("ring output:\n%s", data)
	}
}

func TestMultiTracerFanOutAndDumpRecent(t *testing.T) {
	var stream bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &stream})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopeDriver, "run", 0).End("")
	if !strings.Contains(stream.String(), "run") {
		t.Fatalf("stream did not receive events")
	}
	var dump bytes.Buffer
	if err := DumpRecent(tr, &dump); err != nil {
		t.Fatalf("DumpRecent: %v", err)
	}
	if !strings.HasPrefix(dump.String(), "trace: recent events\n") || strings.Count(dump.String(), "run") != 2 {
		t.Fatalf("dump:\n%s", dump.String())
	}
}

func TestDumpRecentWithoutRing(t *testing.T) {
	var buf bytes.Buffer
	if err := DumpRecent(NewStreamTracer(&bytes.Buffer{}, LevelPhase, FormatText), &buf); err != nil || buf.Len() != 0 {
		t.Fatalf("dump = %q, %v", buf.String(), err)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("missing tracer must be Nop")
	}
	ring := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
	ctx = WithSpanContext(ctx, SpanContext{SpanID: 7})
	if CurrentSpan(ctx).SpanID != 7 {
		t.Fatalf("span context not propagated")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("off tracer: %v %v", tr, err)
	}
	if span := Begin(tr, ScopeDriver, "x", 0); span.ID() != 0 || span.End("") != 0 {
		t.Fatalf("nop span recorded something")
	}
}

func TestFailureBypassesScopeFilter(t *testing.T) {
	ring := NewRingTracer(4, LevelError)
	Point(ring, ScopeDriver, "ignored", "")
	Fail(ring, "validate", os.ErrInvalid)
	got := ring.Snapshot()
	if len(got) != 1 || got[0].Kind != KindFailure || got[0].Detail != os.ErrInvalid.Error() {
		t.Fatalf("snapshot = %+v", got)
	}
}
