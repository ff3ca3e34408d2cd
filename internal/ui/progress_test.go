package ui

import (
	"math"
	"strings"
	"testing"
	"time"

	"mendes/internal/driver"
)

func TestApplyTracksStages(t *testing.T) {
	m := NewProgressModel("checking", []string{"a.yaml", "b.yaml"}, nil)

	m.apply(driver.Event{File: "a.yaml", Stage: driver.StageCheck, Status: driver.StatusWorking})
	if got := itemLabel(m.items[0]); got != "checking" {
		t.Fatalf("label = %q", got)
	}
	m.apply(driver.Event{File: "a.yaml", Stage: driver.StageDone, Status: driver.StatusOK, Elapsed: 3 * time.Millisecond})
	m.apply(driver.Event{File: "b.yaml", Stage: driver.StageCheck, Status: driver.StatusError})
	m.apply(driver.Event{File: "b.yaml", Stage: driver.StageLower, Status: driver.StatusSkipped})
	if got := itemLabel(m.items[1]); got != "error" {
		t.Fatalf("label = %q", got)
	}
	if got := m.Percent(); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("percent = %v", got)
	}

	m.apply(driver.Event{File: "b.yaml", Stage: driver.StageDone, Status: driver.StatusError})
	// после завершения поздние события игнорируются
	m.apply(driver.Event{File: "b.yaml", Stage: driver.StageCheck, Status: driver.StatusWorking})
	finished, failed := m.counts()
	if finished != 2 || failed != 1 || m.Percent() != 1 {
		t.Fatalf("finished = %d, failed = %d, percent = %v", finished, failed, m.Percent())
	}
}

func TestApplyIgnoresUnknownFiles(t *testing.T) {
	m := NewProgressModel("checking", []string{"a.yaml"}, nil)
	if cmd := m.apply(driver.Event{File: "other.yaml", Stage: driver.StageDone}); cmd != nil {
		t.Fatalf("unexpected command")
	}
	if m.Percent() != 0 {
		t.Fatalf("percent = %v", m.Percent())
	}
}

func TestViewListsFiles(t *testing.T) {
	m := NewProgressModel("checking", []string{"a.yaml", "cached.yaml"}, nil)
	m.apply(driver.Event{File: "cached.yaml", Stage: driver.StageDone, Status: driver.StatusCached})
	m.done = true

	out := m.View()
	for _, want := range []string{"done: checking 1/2", "queued", "a.yaml", "cached", "cached.yaml"} {
		if !strings.Contains(out, want) {
			t.Errorf("view lacks %q:\n%s", want, out)
		}
	}
}

func TestListenForEventReportsClose(t *testing.T) {
	events := make(chan driver.Event, 1)
	m := NewProgressModel("checking", []string{"a.yaml"}, events)
	events <- driver.Event{File: "a.yaml", Stage: driver.StageDecode}
	close(events)

	if msg := m.listenForEvent()(); msg != eventMsg(driver.Event{File: "a.yaml", Stage: driver.StageDecode}) {
		t.Fatalf("msg = %#v", msg)
	}
	if _, ok := m.listenForEvent()().(doneMsg); !ok {
		t.Fatalf("closed channel should finish the view")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("internal/very/long/path.yaml", 12); got != "internal/..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
