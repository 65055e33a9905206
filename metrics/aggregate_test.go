package metrics

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/xiaot623/driftscope/domain"
)

func aggEvent(traceID string, turn int, component, eventType string, extra map[string]interface{}) domain.Event {
	payload := map[string]interface{}{"turn": turn}
	for k, v := range extra {
		payload[k] = v
	}
	raw, _ := json.Marshal(payload)
	return domain.Event{
		Timestamp: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(turn) * time.Second),
		TraceID:   traceID,
		Component: component,
		EventType: eventType,
		Payload:   raw,
	}
}

func TestRatiosUndefinedOnZeroDenominator(t *testing.T) {
	// No corrections, no lifecycle phases anywhere.
	sessions := []domain.Session{{TraceID: "t1", Events: []domain.Event{
		aggEvent("t1", 0, "agent", "step", nil),
		aggEvent("t1", 1, "agent", "step", nil),
	}}}

	agg := NewAggregator(DefaultConfig(), nil)
	report, err := agg.Analyze(context.Background(), sessions)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.RelapseRate.Defined {
		t.Errorf("relapse rate must be undefined, got %+v", report.RelapseRate)
	}
	if report.FailoverFrequency.Defined {
		t.Errorf("failover frequency must be undefined, got %+v", report.FailoverFrequency)
	}
	if report.RelapseRate.Percent() != "n/a" {
		t.Errorf("undefined ratio must print n/a, got %s", report.RelapseRate.Percent())
	}
}

func TestFailoverFrequency(t *testing.T) {
	mk := func(turn int, phase string) domain.Event {
		ev := aggEvent("t1", turn, "runtime", "step", nil)
		ev.Phase = phase
		return ev
	}
	sessions := []domain.Session{{TraceID: "t1", Events: []domain.Event{
		mk(0, "drift"),
		mk(1, "repair"),
		mk(2, "failover"),
		mk(3, "none"),    // not a recognized lifecycle phase
		mk(4, ""),        // no phase at all
		mk(5, "outcome"),
	}}}

	agg := NewAggregator(DefaultConfig(), nil)
	report, err := agg.Analyze(context.Background(), sessions)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !report.FailoverFrequency.Defined {
		t.Fatal("expected defined failover frequency")
	}
	if report.FailoverFrequency.Num != 1 || report.FailoverFrequency.Den != 4 {
		t.Errorf("expected 1/4, got %d/%d", report.FailoverFrequency.Num, report.FailoverFrequency.Den)
	}
}

// TestEndToEndScenario runs the spec's five-event drift/correct/recover
// shape through the full aggregation.
func TestEndToEndScenario(t *testing.T) {
	events := []domain.Event{
		aggEvent("t1", 0, "agent", "step", nil),
		aggEvent("t1", 1, "agent", "drift_like", map[string]interface{}{
			"signals": map[string]interface{}{"instability": true},
		}),
		aggEvent("t1", 2, "agent", "correction", nil),
		aggEvent("t1", 3, "agent", "recover", map[string]interface{}{
			"signals": map[string]interface{}{"recovered": true},
		}),
		aggEvent("t1", 4, "agent", "step", nil),
	}
	sessions := []domain.Session{{TraceID: "t1", Events: events}}

	agg := NewAggregator(DefaultConfig(), nil)
	report, err := agg.Analyze(context.Background(), sessions)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(report.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(report.Sessions))
	}
	m := report.Sessions[0]
	if len(m.Episodes) != 1 {
		t.Fatalf("expected 1 episode, got %+v", m.Episodes)
	}
	ep := m.Episodes[0]
	if ep.OnsetTurn != 1 || ep.RecoveryTurn != 3 || ep.Distance != 2 {
		t.Errorf("expected onset 1 recovery 3 distance 2, got %+v", ep)
	}
	// Last event is agent "step" in stage "", not a final marker.
	if m.Closure != domain.ClosurePrematureTermination {
		t.Errorf("expected premature termination, got %s", m.Closure)
	}
	if !m.HadCorrection || m.Relapsed {
		t.Errorf("expected correction without relapse, got %+v", m)
	}
	if !report.RelapseRate.Defined || report.RelapseRate.Value != 0 {
		t.Errorf("expected defined 0%% relapse rate, got %+v", report.RelapseRate)
	}
}

func TestAggregatorIsIdempotent(t *testing.T) {
	sessions := []domain.Session{
		{TraceID: "t2", Events: []domain.Event{
			aggEvent("t2", 0, "agent", "step", map[string]interface{}{"latency_ms": 100}),
			aggEvent("t2", 1, "agent", "step", map[string]interface{}{"latency_ms": 250}),
			aggEvent("t2", 2, "agent", "correction", nil),
			aggEvent("t2", 3, "agent", "drift_like", nil),
		}},
		{TraceID: "t1", Events: []domain.Event{
			aggEvent("t1", 0, "user", "user_message", nil),
			aggEvent("t1", 1, "agent", "step", nil),
		}},
	}

	agg := NewAggregator(DefaultConfig(), nil)
	first, err := agg.Analyze(context.Background(), sessions)
	if err != nil {
		t.Fatalf("first Analyze failed: %v", err)
	}
	second, err := agg.Analyze(context.Background(), sessions)
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatal("repeated aggregation over the same input must be byte-identical")
	}

	// Sessions come back sorted by trace_id.
	if first.Sessions[0].TraceID != "t1" || first.Sessions[1].TraceID != "t2" {
		t.Errorf("sessions not sorted: %s, %s", first.Sessions[0].TraceID, first.Sessions[1].TraceID)
	}
}

func TestClosureProfileCountsAndFractions(t *testing.T) {
	sessions := []domain.Session{
		{TraceID: "a", Events: []domain.Event{aggEvent("a", 0, "agent", "final_answer", nil)}},
		{TraceID: "b", Events: []domain.Event{aggEvent("b", 0, "agent", "final_answer", nil)}},
		{TraceID: "c", Events: []domain.Event{aggEvent("c", 0, "user", "user_message", nil)}},
		{TraceID: "d", Events: []domain.Event{aggEvent("d", 0, "runtime", "step", nil)}},
	}

	agg := NewAggregator(DefaultConfig(), nil)
	report, err := agg.Analyze(context.Background(), sessions)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	wantCounts := map[domain.ClosureCategory]int{
		domain.ClosureNaturalCompletion:    2,
		domain.ClosureUserAbandonment:      1,
		domain.ClosurePrematureTermination: 1,
	}
	if !reflect.DeepEqual(report.ClosureProfile, wantCounts) {
		t.Errorf("closure profile: got %+v want %+v", report.ClosureProfile, wantCounts)
	}
	if report.ClosureFractions[domain.ClosureNaturalCompletion] != 0.5 {
		t.Errorf("natural completion fraction: got %v", report.ClosureFractions[domain.ClosureNaturalCompletion])
	}
}

func TestAnalyzeSessionRejectsEmptySession(t *testing.T) {
	agg := NewAggregator(DefaultConfig(), nil)
	_, err := agg.AnalyzeSession(context.Background(), domain.Session{TraceID: "t1"})
	if err == nil {
		t.Fatal("expected error for empty session")
	}
}

func TestDistanceStats(t *testing.T) {
	stats := DistanceStats([]int{1, 3, 5, 7})
	if stats.Count != 4 || stats.Mean != 4 || stats.Median != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if zero := DistanceStats(nil); zero.Count != 0 {
		t.Errorf("expected empty stats, got %+v", zero)
	}
}
