package domain

// ClosureCategory is the terminal category assigned to a session.
type ClosureCategory string

const (
	ClosureNaturalCompletion    ClosureCategory = "natural_completion"
	ClosureUserAbandonment      ClosureCategory = "user_abandonment"
	ClosureForcedStop           ClosureCategory = "forced_stop"
	ClosurePrematureTermination ClosureCategory = "premature_termination"
	ClosureToolChainFailure     ClosureCategory = "tool_chain_failure"
	ClosureCorrectionExhaustion ClosureCategory = "correction_loop_exhaustion"
)

// ClosureCategories lists every category in a stable order.
var ClosureCategories = []ClosureCategory{
	ClosureNaturalCompletion,
	ClosureUserAbandonment,
	ClosureForcedStop,
	ClosurePrematureTermination,
	ClosureToolChainFailure,
	ClosureCorrectionExhaustion,
}

// Lifecycle phases recognized for failover accounting.
const (
	PhaseDrift    = "drift"
	PhaseRepair   = "repair"
	PhaseReentry  = "reentry"
	PhaseContinue = "continue"
	PhaseOutcome  = "outcome"
	PhaseFailover = "failover"
	PhaseNone     = "none"
)

var recognizedPhases = map[string]bool{
	PhaseDrift:    true,
	PhaseRepair:   true,
	PhaseReentry:  true,
	PhaseContinue: true,
	PhaseOutcome:  true,
	PhaseFailover: true,
}

// RecognizedPhase reports whether p is a lifecycle phase that counts
// toward the failover-frequency denominator. Empty and "none" do not.
func RecognizedPhase(p string) bool {
	return recognizedPhases[p]
}

// Component role tags used for grouping and closure rules.
const (
	ComponentAgent   = "agent"
	ComponentTool    = "tool"
	ComponentSystem  = "system"
	ComponentUser    = "user"
	ComponentRuntime = "runtime"
)

// Event types with metric-level meaning. The vocabulary is open; these
// are just the markers the built-in heuristics recognize.
const (
	EventTypeDriftLike  = "drift_like"
	EventTypeCorrection = "correction"
	EventTypeSelfCheck  = "self_check"
	EventTypeRecover    = "recover"
	EventTypeSessionEnd = "session_end"
	EventTypeError      = "error"
)

// finalAnswerTypes mark an agent event as a terminal/final answer.
var finalAnswerTypes = map[string]bool{
	"final_answer":   true,
	"final_response": true,
	"session_end":    true,
}

// terminalStages mark an agent event as producing session output.
var terminalStages = map[string]bool{
	"output":   true,
	"complete": true,
}

// IsFinalMarker reports whether the event looks like a terminal or
// final-answer marker.
func IsFinalMarker(ev Event) bool {
	return finalAnswerTypes[ev.EventType] || terminalStages[ev.ExecutionStage]
}

// IsSystemError reports whether the event carries a system-error marker.
func IsSystemError(ev Event) bool {
	if ev.EventType == "system_error" {
		return true
	}
	if ev.Component != ComponentSystem && ev.Component != ComponentRuntime {
		return false
	}
	return ev.EventType == EventTypeError || ev.DecodedPayload().Status == "error"
}

// IsToolError reports whether the event carries a tool-error marker.
func IsToolError(ev Event) bool {
	if ev.EventType == "tool_error" {
		return true
	}
	return ev.Component == ComponentTool && ev.EventType == EventTypeError
}
