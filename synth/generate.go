// Package synth emits synthetic JSONL traces for exercising the metrics
// engine: small JSON objects, one per line, with the same vocabulary the
// analyzer recognizes.
package synth

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"
)

// Variant names accepted by Generate.
const (
	VariantLongHorizon          = "long_horizon"
	VariantSimpleCorrectionLoop = "simple_correction_loop"
	VariantNoisyMixed           = "noisy_mixed"
)

// Options control a generation run.
type Options struct {
	Variant  string
	Sessions int
	Turns    int    // long_horizon only
	Noise    string // low, medium, high
	Seed     int64  // same seed, same output
}

// Generate writes synthetic traces to w, one JSON object per line.
func Generate(w io.Writer, opts Options) error {
	if opts.Sessions <= 0 {
		opts.Sessions = 3
	}
	if opts.Turns <= 0 {
		opts.Turns = 30
	}
	if opts.Noise == "" {
		opts.Noise = "medium"
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	for i := 0; i < opts.Sessions; i++ {
		var events []event
		switch opts.Variant {
		case VariantLongHorizon, "":
			events = longHorizonSession(rng, i, opts.Turns, opts.Noise)
		case VariantSimpleCorrectionLoop:
			events = correctionLoopSession(rng, i)
		case VariantNoisyMixed:
			events = noisyMixedSession(rng, i, opts.Noise)
		default:
			return fmt.Errorf("unknown variant %q", opts.Variant)
		}
		for _, ev := range events {
			line, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
	return nil
}

// event is the wire shape of one generated record.
type event struct {
	Timestamp      string                 `json:"timestamp"`
	TraceID        string                 `json:"trace_id"`
	SpanID         string                 `json:"span_id"`
	Component      string                 `json:"component"`
	EventType      string                 `json:"event_type"`
	ExecutionStage string                 `json:"execution_stage"`
	Payload        map[string]interface{} `json:"payload"`
}

// emitter tracks per-session timestamp and span counters.
type emitter struct {
	rng     *rand.Rand
	traceID string
	ts      time.Time
	spans   int
	events  []event
}

func newEmitter(rng *rand.Rand, traceID string) *emitter {
	// Fixed base so runs with the same seed are identical.
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC).
		Add(time.Duration(rng.Intn(60)) * time.Second)
	return &emitter{rng: rng, traceID: traceID, ts: base}
}

func (e *emitter) emit(component, eventType, stage string, gapMinMS, gapMaxMS int, payload map[string]interface{}) {
	e.spans++
	e.ts = e.ts.Add(time.Duration(gapMinMS+e.rng.Intn(gapMaxMS-gapMinMS+1)) * time.Millisecond)
	e.events = append(e.events, event{
		Timestamp:      e.ts.Format("2006-01-02T15:04:05.000Z07:00"),
		TraceID:        e.traceID,
		SpanID:         fmt.Sprintf("%s_s%04d", e.traceID, e.spans),
		Component:      component,
		EventType:      eventType,
		ExecutionStage: stage,
		Payload:        payload,
	})
}

func (e *emitter) intBetween(lo, hi int) int {
	return lo + e.rng.Intn(hi-lo+1)
}

// longHorizonSession produces a long session with one drift interval, a
// recovery and a late relapse.
func longHorizonSession(rng *rand.Rand, idx, turns int, noise string) []event {
	e := newEmitter(rng, fmt.Sprintf("lh_%03d", idx))

	e.emit("system", "session_init", "init", 20, 120, map[string]interface{}{
		"session_id": "sess_" + e.traceID,
		"variant":    VariantLongHorizon,
	})
	e.emit("user", "user_message", "input", 20, 120, map[string]interface{}{
		"turn":    1,
		"content": "Run a multi-step checklist and keep it stable over time.",
	})

	var driftTurn int
	switch noise {
	case "low":
		driftTurn = e.intBetween(max(3, turns/4), max(4, turns/3))
	case "high":
		driftTurn = e.intBetween(2, max(3, turns/5))
	default:
		driftTurn = e.intBetween(max(3, turns/5), max(4, turns/3))
	}
	recoveryTurn := min(turns-3, driftTurn+e.intBetween(2, 5))
	relapseTurn := min(turns-1, recoveryTurn+e.intBetween(3, 8))

	for turn := 1; turn <= turns; turn++ {
		latency := e.intBetween(90, 160)
		switch {
		case turn >= driftTurn && turn < recoveryTurn:
			latency += e.intBetween(60, 220)
		case turn >= recoveryTurn && turn < relapseTurn:
			latency += e.intBetween(-30, 40)
		case turn >= relapseTurn:
			latency += e.intBetween(80, 260)
		}

		e.emit("agent", "reason_step", "processing", 20, 120, map[string]interface{}{
			"turn":       turn,
			"latency_ms": latency,
			"note":       reasonNote(turn, driftTurn, recoveryTurn, relapseTurn),
		})

		if turn == driftTurn+1 || turn == recoveryTurn || turn == relapseTurn {
			e.emit("agent", "self_check", "recovery", 20, 120, map[string]interface{}{
				"turn":       turn,
				"kind":       "lightweight_correction",
				"latency_ms": e.intBetween(80, 180),
			})
		}
	}

	finalStatus := "stable"
	if relapseTurn <= turns {
		finalStatus = "relapse_after_recovery"
	}
	e.emit("system", "session_end", "complete", 20, 120, map[string]interface{}{
		"turns":         turns,
		"drift_turn":    driftTurn,
		"recovery_turn": recoveryTurn,
		"relapse_turn":  relapseTurn,
		"final_status":  finalStatus,
	})
	return e.events
}

func reasonNote(turn, drift, recovery, relapse int) string {
	switch {
	case turn < drift:
		return "baseline pattern, stable"
	case turn < recovery:
		return "growing deviation, early instability"
	case turn < relapse:
		return "temporarily stabilized after correction"
	}
	return "late-stage wobble / relapse"
}

// correctionLoopSession produces the minimal drift -> correction ->
// recovered shape.
func correctionLoopSession(rng *rand.Rand, idx int) []event {
	e := newEmitter(rng, fmt.Sprintf("loop_%03d", idx))

	e.emit("system", "session_init", "init", 40, 140, map[string]interface{}{
		"session_id": "sess_" + e.traceID,
	})
	e.emit("user", "user_message", "input", 40, 140, map[string]interface{}{
		"turn":    1,
		"content": "Create a short checklist with exactly 3 items.",
	})
	e.emit("agent", "agent_step", "processing", 40, 140, map[string]interface{}{
		"turn":       1,
		"latency_ms": e.intBetween(200, 320),
		"summary":    "Initial 3-item checklist created.",
	})
	e.emit("agent", "drift_like", "processing", 40, 140, map[string]interface{}{
		"turn":       2,
		"latency_ms": e.intBetween(260, 380),
		"note":       "Checklist grows to 6 items, constraint partially dropped.",
	})
	e.emit("agent", "correction", "recovery", 40, 140, map[string]interface{}{
		"turn":       3,
		"kind":       "self_check",
		"latency_ms": e.intBetween(160, 260),
		"note":       "Re-read instruction and compress back to 3 items.",
	})
	e.emit("agent", "agent_step", "output", 40, 140, map[string]interface{}{
		"turn":          4,
		"latency_ms":    e.intBetween(200, 320),
		"summary":       "3-item checklist, constraints respected.",
		"stability_tag": "recovered",
	})
	e.emit("system", "session_end", "complete", 40, 140, map[string]interface{}{
		"turns":               4,
		"instability_signals": 1,
		"corrections":         1,
		"final_status":        "completed_after_correction",
	})
	return e.events
}

// noisyMixedSession composes stable, corrected and incomplete shapes.
func noisyMixedSession(rng *rand.Rand, idx int, noise string) []event {
	modes := []string{"stable", "corrected", "incomplete"}
	if noise == "high" {
		modes = []string{"corrected", "incomplete", "incomplete"}
	}
	mode := modes[rng.Intn(len(modes))]

	e := newEmitter(rng, fmt.Sprintf("mix_%03d", idx))
	e.emit("system", "session_init", "init", 30, 180, map[string]interface{}{
		"session_id": "sess_" + e.traceID,
	})
	e.emit("user", "user_message", "input", 30, 180, map[string]interface{}{
		"content":       "Run a small multi-step task.",
		"approx_length": "short",
	})

	switch mode {
	case "stable":
		e.emit("agent", "agent_step", "processing", 30, 180, map[string]interface{}{
			"turn": 1, "latency_ms": e.intBetween(150, 260),
		})
		e.emit("agent", "agent_step", "output", 30, 180, map[string]interface{}{
			"turn": 2, "latency_ms": e.intBetween(150, 260),
		})
		e.emit("system", "session_end", "complete", 30, 180, map[string]interface{}{
			"status": "ok", "pattern": "stable",
		})
	case "corrected":
		e.emit("agent", "agent_step", "processing", 30, 180, map[string]interface{}{
			"turn": 1, "latency_ms": e.intBetween(180, 320),
		})
		e.emit("agent", "drift_like", "processing", 30, 180, map[string]interface{}{
			"turn": 2, "latency_ms": e.intBetween(220, 380),
			"note": "off-topic or low-quality output",
		})
		e.emit("monitor", "warning", "monitoring", 30, 180, map[string]interface{}{
			"reason": "content_mismatch",
		})
		e.emit("agent", "correction", "recovery", 30, 180, map[string]interface{}{
			"action": "retry", "turn": 3,
		})
		e.emit("agent", "agent_step", "output", 30, 180, map[string]interface{}{
			"turn": 4, "latency_ms": e.intBetween(170, 300),
			"stability_tag": "recovered",
		})
		e.emit("system", "session_end", "complete", 30, 180, map[string]interface{}{
			"status": "corrected", "pattern": "corrected",
		})
	default: // incomplete
		e.emit("agent", "agent_step", "processing", 30, 180, map[string]interface{}{
			"turn": 1, "latency_ms": e.intBetween(150, 280),
		})
		e.emit("user", "user_message", "input", 30, 180, map[string]interface{}{
			"content": "Actually never mind.",
		})
	}
	return e.events
}
