package metrics

import (
	"reflect"
	"testing"
	"time"

	"github.com/xiaot623/driftscope/domain"
)

func sanityEvent(traceID, spanID, parentSpanID string, offset int) domain.Event {
	return domain.Event{
		Timestamp:    time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Second),
		TraceID:      traceID,
		SpanID:       spanID,
		ParentSpanID: parentSpanID,
		Component:    "agent",
		EventType:    "step",
	}
}

func TestCheckTracesCounts(t *testing.T) {
	sessions := []domain.Session{
		{TraceID: "t1", Events: []domain.Event{
			sanityEvent("t1", "s1", "", 0),
			sanityEvent("t1", "s2", "s1", 1),
			sanityEvent("t1", "s3", "s1", 2),
		}},
		{TraceID: "t2", Events: []domain.Event{
			sanityEvent("t2", "s4", "", 0),
		}},
	}

	report := CheckTraces(sessions)
	if report.Events != 4 || report.Traces != 2 {
		t.Fatalf("counts: %+v", report)
	}
	if report.SessionsWithRegressions != 0 || report.TimestampViolations != 0 {
		t.Errorf("unexpected regressions: %+v", report)
	}
	// s1 has two children.
	if !reflect.DeepEqual(report.FanOut, map[int]int{2: 1}) {
		t.Errorf("fan-out: %+v", report.FanOut)
	}
	if !reflect.DeepEqual(report.ShortSessions, []string{"t2"}) {
		t.Errorf("short sessions: %+v", report.ShortSessions)
	}
}

func TestCheckTracesTimestampRegressions(t *testing.T) {
	sessions := []domain.Session{
		{TraceID: "t1", Events: []domain.Event{
			sanityEvent("t1", "", "", 5),
			sanityEvent("t1", "", "", 2), // regression
			sanityEvent("t1", "", "", 1), // regression
			sanityEvent("t1", "", "", 8),
		}},
	}

	report := CheckTraces(sessions)
	if report.SessionsWithRegressions != 1 {
		t.Errorf("expected 1 regressing session, got %d", report.SessionsWithRegressions)
	}
	if report.TimestampViolations != 2 {
		t.Errorf("expected 2 violations, got %d", report.TimestampViolations)
	}
}

func TestCheckTracesReusedSpanIDs(t *testing.T) {
	sessions := []domain.Session{
		{TraceID: "t1", Events: []domain.Event{
			sanityEvent("t1", "shared", "", 0),
			sanityEvent("t1", "shared", "", 1), // reuse within a trace is fine
			sanityEvent("t1", "own", "", 2),
		}},
		{TraceID: "t2", Events: []domain.Event{
			sanityEvent("t2", "shared", "", 0),
			sanityEvent("t2", "also", "", 1),
			sanityEvent("t2", "also2", "", 2),
		}},
	}

	report := CheckTraces(sessions)
	if !reflect.DeepEqual(report.ReusedSpanIDs, []string{"shared"}) {
		t.Errorf("reused span ids: %+v", report.ReusedSpanIDs)
	}
}
