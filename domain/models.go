// Package domain defines the core domain models for driftscope.
package domain

import (
	"encoding/json"
	"time"
)

// Event is one observed occurrence in a session. Events are created once
// when read from input and never mutated afterwards.
type Event struct {
	Timestamp      time.Time       `json:"timestamp"`
	TraceID        string          `json:"trace_id"`
	SpanID         string          `json:"span_id,omitempty"`
	ParentSpanID   string          `json:"parent_span_id,omitempty"`
	Component      string          `json:"component,omitempty"`
	EventType      string          `json:"event_type"`
	ExecutionStage string          `json:"execution_stage,omitempty"`
	Phase          string          `json:"phase,omitempty"`
	Turn           *int            `json:"turn,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// EventPayload holds the named payload sub-fields consumed by specific
// metrics. Everything else in the payload is opaque and ignored.
type EventPayload struct {
	LatencyMS     *float64        `json:"latency_ms"`
	Turn          *int            `json:"turn"`
	Phase         string          `json:"phase"`
	StabilityTag  string          `json:"stability_tag"`
	Status        string          `json:"status"`
	FinalStatus   string          `json:"final_status"`
	Pattern       string          `json:"pattern"`
	Tool          string          `json:"tool"`
	Method        string          `json:"method"`
	ResponseClass string          `json:"response_class"`
	Args          json.RawMessage `json:"args"`
	Signals       EventSignals    `json:"signals"`
}

// EventSignals are explicit instability markers supplied by the producer.
type EventSignals struct {
	Instability bool `json:"instability"`
	Recovered   bool `json:"recovered"`
}

// DecodedPayload decodes the named payload sub-fields. A missing or
// non-object payload decodes to the zero value.
func (e *Event) DecodedPayload() EventPayload {
	var p EventPayload
	if len(e.Payload) == 0 {
		return p
	}
	// Unknown or mistyped fields are tolerated; the zero value stands in.
	_ = json.Unmarshal(e.Payload, &p)
	return p
}

// LatencyMS returns the event's latency_ms payload field, if present.
func (e *Event) LatencyMS() (float64, bool) {
	p := e.DecodedPayload()
	if p.LatencyMS == nil {
		return 0, false
	}
	return *p.LatencyMS, true
}

// TurnIndex returns the caller-supplied turn ordinal for this event.
// The payload field wins over the top-level one; fallback is the event's
// position within its session.
func (e *Event) TurnIndex(position int) int {
	p := e.DecodedPayload()
	if p.Turn != nil {
		return *p.Turn
	}
	if e.Turn != nil {
		return *e.Turn
	}
	return position
}

// LifecyclePhase returns the event's lifecycle phase, preferring the
// top-level field over the payload one.
func (e *Event) LifecyclePhase() string {
	if e.Phase != "" {
		return e.Phase
	}
	return e.DecodedPayload().Phase
}

// Session is the ordered sequence of events sharing one trace_id.
// Events keep arrival order; timestamps are expected (not enforced) to be
// non-decreasing within the sequence.
type Session struct {
	TraceID string
	Events  []Event
}

// Episode is a completed instability interval within a session. Distance
// is measured in turn-index units, not wall-clock time.
type Episode struct {
	OnsetTurn    int `json:"onset_turn"`
	RecoveryTurn int `json:"recovery_turn"`
	Distance     int `json:"distance"`
}

// SpanGroupResult is the comparator output for one structurally
// comparable group of events.
type SpanGroupResult struct {
	Key        string    `json:"key"`
	Size       int       `json:"size"`
	Gaps       []float64 `json:"gaps,omitempty"`
	Divergence int       `json:"divergence"`
}

// AnalysisRun identifies one persisted metrics pass over an input file.
type AnalysisRun struct {
	RunID          string    `json:"run_id"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	EventCount     int       `json:"event_count"`
	SessionCount   int       `json:"session_count"`
	MalformedLines int       `json:"malformed_lines"`
}
