package policy

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/driftscope/domain"
	"github.com/xiaot623/driftscope/metrics"
)

func policyEvent(eventType string, payload map[string]interface{}) domain.Event {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	return domain.Event{
		Timestamp: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		TraceID:   "t1",
		Component: "agent",
		EventType: eventType,
		Payload:   raw,
	}
}

func TestDefaultPolicyClassification(t *testing.T) {
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)

	cases := []struct {
		name string
		ev   domain.Event
		want metrics.Signal
	}{
		{"plain step", policyEvent("agent_step", nil), metrics.SignalNone},
		{"drift_like", policyEvent("drift_like", nil), metrics.SignalInstability},
		{"instability flag", policyEvent("agent_step", map[string]interface{}{
			"signals": map[string]interface{}{"instability": true},
		}), metrics.SignalInstability},
		{"correction", policyEvent("correction", nil), metrics.SignalCorrection},
		{"self_check", policyEvent("self_check", nil), metrics.SignalCorrection},
		{"recover event", policyEvent("recover", nil), metrics.SignalRecovery},
		{"recovered flag", policyEvent("agent_step", map[string]interface{}{
			"signals": map[string]interface{}{"recovered": true},
		}), metrics.SignalRecovery},
		{"stability tag", policyEvent("agent_step", map[string]interface{}{
			"stability_tag": "recovered",
		}), metrics.SignalRecovery},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Classify(context.Background(), tc.ev)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRecoveryWinsOverInstability(t *testing.T) {
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)

	// An event flagged both unstable and recovered resolves to recovery.
	ev := policyEvent("drift_like", map[string]interface{}{
		"signals": map[string]interface{}{"instability": true, "recovered": true},
	})
	got, err := engine.Classify(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, metrics.SignalRecovery, got)
}

func TestCustomPolicy(t *testing.T) {
	// A policy that treats any monitoring-stage event as instability.
	custom := `
package trace_signals

default signal := "none"

signal := "instability" if input.execution_stage == "monitoring"
`
	engine, err := NewEngine(context.Background(), custom)
	require.NoError(t, err)

	ev := policyEvent("warning", nil)
	ev.ExecutionStage = "monitoring"
	got, err := engine.Classify(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, metrics.SignalInstability, got)

	got, err = engine.Classify(context.Background(), policyEvent("drift_like", nil))
	require.NoError(t, err)
	assert.Equal(t, metrics.SignalNone, got, "custom policy fully replaces the defaults")
}

func TestNewEngineRejectsBrokenPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package trace_signals\n\nsignal :=")
	assert.Error(t, err)
}

func TestUnknownDecisionMapsToNone(t *testing.T) {
	custom := `
package trace_signals

default signal := "escalate"
`
	engine, err := NewEngine(context.Background(), custom)
	require.NoError(t, err)

	got, err := engine.Classify(context.Background(), policyEvent("agent_step", nil))
	require.NoError(t, err)
	assert.Equal(t, metrics.SignalNone, got)
}
