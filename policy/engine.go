// Package policy provides a Rego-programmable signal classifier for the
// episode tracker.
package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/xiaot623/driftscope/domain"
	"github.com/xiaot623/driftscope/metrics"
)

// Engine evaluates a trace-signal policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.trace_signals.signal"),
		rego.Module("trace_signals.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate classifies one event via the policy. Input keys: event_type,
// component, phase, execution_stage, payload, signals. Returns one of
// "instability", "recovery", "correction" or "none".
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The default rule in the policy should make this unreachable.
		return "none", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "none", nil
}

// Classify adapts the engine to the metrics.Detector interface.
func (e *Engine) Classify(ctx context.Context, ev domain.Event) (metrics.Signal, error) {
	input := map[string]interface{}{
		"event_type":      ev.EventType,
		"component":       ev.Component,
		"phase":           ev.LifecyclePhase(),
		"execution_stage": ev.ExecutionStage,
	}

	var payload map[string]interface{}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err == nil {
			input["payload"] = payload
			if signals, ok := payload["signals"]; ok {
				input["signals"] = signals
			}
		}
	}

	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return metrics.SignalNone, err
	}

	switch decision {
	case "instability":
		return metrics.SignalInstability, nil
	case "recovery":
		return metrics.SignalRecovery, nil
	case "correction":
		return metrics.SignalCorrection, nil
	}
	return metrics.SignalNone, nil
}

// DefaultPolicy mirrors the built-in heuristic detector: explicit
// recovery flags are authoritative, then correction-type events, then
// instability markers.
const DefaultPolicy = `
package trace_signals

default signal := "none"

signal := "recovery" if is_recovery

signal := "correction" if {
	is_correction
	not is_recovery
}

signal := "instability" if {
	is_instability
	not is_recovery
	not is_correction
}

is_recovery if input.signals.recovered == true

is_recovery if input.payload.stability_tag == "recovered"

is_recovery if input.event_type == "recover"

is_correction if input.event_type == "correction"

is_correction if input.event_type == "self_check"

is_instability if input.signals.instability == true

is_instability if input.event_type == "drift_like"
`
