package metrics

import (
	"context"

	"github.com/xiaot623/driftscope/domain"
)

// ClassifyClosure assigns exactly one closure category to a non-empty
// session. The rules are evaluated in order and the first match wins;
// the ordering is part of the contract because the raw signals are not
// mutually exclusive. Every non-empty session gets a category; there is
// no "unknown" outcome.
//
// An empty session is a caller contract violation and returns
// EmptySessionError.
func ClassifyClosure(s domain.Session) (domain.ClosureCategory, error) {
	if len(s.Events) == 0 {
		return "", &domain.EmptySessionError{TraceID: s.TraceID}
	}

	last := s.Events[len(s.Events)-1]

	// 1. Agent finished with a terminal/final-answer marker.
	if last.Component == domain.ComponentAgent && domain.IsFinalMarker(last) {
		return domain.ClosureNaturalCompletion, nil
	}

	// 2. Any system-error marker anywhere in the session.
	for _, ev := range s.Events {
		if domain.IsSystemError(ev) {
			return domain.ClosureForcedStop, nil
		}
	}

	// 3. Any tool-error marker.
	for _, ev := range s.Events {
		if domain.IsToolError(ev) {
			return domain.ClosureToolChainFailure, nil
		}
	}

	// 4. Repeated corrections with no subsequent stabilization.
	if correctionExhaustion(s) {
		return domain.ClosureCorrectionExhaustion, nil
	}

	// 5. The user had the last word.
	if last.Component == domain.ComponentUser {
		return domain.ClosureUserAbandonment, nil
	}

	// 6. Fallback bucket.
	return domain.ClosurePrematureTermination, nil
}

// correctionExhaustion reports whether the session shows at least two
// correction-type events with no recovery marker after the last one.
func correctionExhaustion(s domain.Session) bool {
	corrections := 0
	lastCorrection := -1
	for i, ev := range s.Events {
		if ev.EventType == domain.EventTypeCorrection || ev.EventType == domain.EventTypeSelfCheck {
			corrections++
			lastCorrection = i
		}
	}
	if corrections < 2 {
		return false
	}
	det := HeuristicDetector{}
	for _, ev := range s.Events[lastCorrection+1:] {
		if sig, _ := det.Classify(context.Background(), ev); sig == SignalRecovery {
			return false
		}
	}
	return true
}
