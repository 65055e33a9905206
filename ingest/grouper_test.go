package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/xiaot623/driftscope/domain"
)

func groupEvent(traceID string, offset int) domain.Event {
	return domain.Event{
		Timestamp: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Second),
		TraceID:   traceID,
		EventType: "step",
	}
}

func TestGroupByTracePreservesArrivalOrder(t *testing.T) {
	// Interleaved traces; within each trace the input order must survive,
	// including out-of-timestamp-order events.
	events := []domain.Event{
		groupEvent("t1", 0),
		groupEvent("t2", 0),
		groupEvent("t1", 5),
		groupEvent("t1", 3), // earlier timestamp, later arrival
		groupEvent("t2", 1),
	}

	sessions, warnings := GroupByTrace(events)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	// First-appearance order.
	if sessions[0].TraceID != "t1" || sessions[1].TraceID != "t2" {
		t.Fatalf("session order: %s, %s", sessions[0].TraceID, sessions[1].TraceID)
	}

	offsets := []int{}
	for _, ev := range sessions[0].Events {
		offsets = append(offsets, ev.Timestamp.Second())
	}
	want := []int{0, 5, 3}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("t1 arrival order not preserved: %v", offsets)
		}
	}

	if len(warnings) != 1 {
		t.Fatalf("expected 1 regression warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "trace t1") {
		t.Errorf("warning should name the trace: %q", warnings[0])
	}
}

func TestGroupByTraceEmptyInput(t *testing.T) {
	sessions, warnings := GroupByTrace(nil)
	if len(sessions) != 0 || len(warnings) != 0 {
		t.Fatalf("expected nothing, got %d sessions %d warnings", len(sessions), len(warnings))
	}
}

func TestGroupByTraceMonotonicNoWarnings(t *testing.T) {
	events := []domain.Event{
		groupEvent("t1", 0), groupEvent("t1", 0), groupEvent("t1", 1),
	}
	_, warnings := GroupByTrace(events)
	if len(warnings) != 0 {
		t.Fatalf("equal timestamps are not regressions: %v", warnings)
	}
}
