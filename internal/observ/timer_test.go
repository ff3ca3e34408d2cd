package observ

import (
	"strings"
	"testing"
)

func TestReportMergesPhasesByName(t *testing.T) {
	tm := NewTimer()
	tm.Track("check", func() string { return "" })
	tm.Track("lower", func() string { return "3 funcs" })
	tm.Track("check", func() string { return "" })

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %+v", r.Phases)
	}
	if r.Phases[0].Name != "check" || r.Phases[1].Name != "lower" || r.Phases[1].Note != "3 funcs" {
		t.Fatalf("phases = %+v", r.Phases)
	}
}

func TestEndIgnoresUnknownHandle(t *testing.T) {
	tm := NewTimer()
	tm.End(5, "nothing")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("phases = %+v", r.Phases)
	}
}

func TestSummaryHasTotal(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("decode"), "")
	s := tm.Summary()
	if !strings.Contains(s, "decode") || !strings.Contains(s, "total") {
		t.Fatalf("summary = %q", s)
	}
}
