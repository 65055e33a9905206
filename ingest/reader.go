// Package ingest reads JSONL trace files into normalized events and groups
// them into per-trace sessions.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xiaot623/driftscope/domain"
)

// maxLineBytes bounds a single JSONL line. Trace payloads are small; one
// megabyte is generous.
const maxLineBytes = 1 << 20

// Options control how a JSONL stream is read.
type Options struct {
	// MaxSessions stops reading after this many distinct trace_ids.
	// Zero means unlimited.
	MaxSessions int
	// Strict additionally validates each object against the event JSON
	// schema before the typed decode.
	Strict bool
}

// Result is the outcome of one read pass.
type Result struct {
	Events         []domain.Event
	MalformedLines int
	// LineErrors holds one message per malformed line, capped so a fully
	// broken file cannot balloon the result.
	LineErrors []string
}

const maxLineErrors = 50

// rawEvent is the wire shape of one JSONL record. Unknown extra fields
// are tolerated.
type rawEvent struct {
	Timestamp      string          `json:"timestamp"`
	TraceID        string          `json:"trace_id"`
	SpanID         string          `json:"span_id"`
	ParentSpanID   string          `json:"parent_span_id"`
	Component      string          `json:"component"`
	EventType      string          `json:"event_type"`
	ExecutionStage string          `json:"execution_stage"`
	Phase          string          `json:"phase"`
	Turn           *int            `json:"turn"`
	Payload        json.RawMessage `json:"payload"`
}

// ReadFile reads a JSONL trace file. Malformed lines are skipped and
// counted, never fatal.
func ReadFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()
	return Read(f, opts)
}

// Read consumes a JSONL stream in a single forward pass. Files that end
// without a trailing newline are handled; blank lines are ignored.
func Read(r io.Reader, opts Options) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	result := &Result{}
	seenTraces := map[string]bool{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}

		ev, err := ParseEvent(line, opts.Strict)
		if err != nil {
			result.MalformedLines++
			if len(result.LineErrors) < maxLineErrors {
				result.LineErrors = append(result.LineErrors, fmt.Sprintf("line %d: %v", lineNo, err))
			}
			continue
		}

		if !seenTraces[ev.TraceID] {
			if opts.MaxSessions > 0 && len(seenTraces) >= opts.MaxSessions {
				break
			}
			seenTraces[ev.TraceID] = true
		}
		result.Events = append(result.Events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace input: %w", err)
	}
	return result, nil
}

// ParseEvent normalizes one raw JSONL record into an Event. Required
// fields are timestamp, trace_id and event_type; everything else is
// optional. An unparseable timestamp rejects the record rather than
// silently defaulting it.
func ParseEvent(line []byte, strict bool) (domain.Event, error) {
	if strict {
		if err := validateSchema(line); err != nil {
			return domain.Event{}, err
		}
	}

	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return domain.Event{}, &domain.MalformedEventError{Field: "line", Reason: "not a JSON object"}
	}
	if raw.TraceID == "" {
		return domain.Event{}, &domain.MalformedEventError{Field: "trace_id", Reason: "missing"}
	}
	if raw.EventType == "" {
		return domain.Event{}, &domain.MalformedEventError{Field: "event_type", Reason: "missing"}
	}
	if raw.Timestamp == "" {
		return domain.Event{}, &domain.MalformedEventError{Field: "timestamp", Reason: "missing"}
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return domain.Event{}, &domain.MalformedEventError{Field: "timestamp", Reason: err.Error()}
	}

	return domain.Event{
		Timestamp:      ts,
		TraceID:        raw.TraceID,
		SpanID:         raw.SpanID,
		ParentSpanID:   raw.ParentSpanID,
		Component:      raw.Component,
		EventType:      raw.EventType,
		ExecutionStage: raw.ExecutionStage,
		Phase:          raw.Phase,
		Turn:           raw.Turn,
		Payload:        raw.Payload,
	}, nil
}

// timestampLayouts are tried in order. The generator emits millisecond
// RFC3339 with a trailing Z; zone-less local timestamps are tolerated.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r') {
		end--
	}
	return b[start:end]
}
