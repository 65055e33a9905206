package metrics

import (
	"context"

	"github.com/xiaot623/driftscope/domain"
)

// Signal is the metric-level classification of one event.
type Signal int

const (
	SignalNone Signal = iota
	SignalInstability
	SignalRecovery
	SignalCorrection
)

// Detector classifies single events into signals. The episode tracker
// consumes signals only through this interface, so callers can swap the
// built-in heuristic for a policy-driven or windowed detector.
type Detector interface {
	Classify(ctx context.Context, ev domain.Event) (Signal, error)
}

// HeuristicDetector is the default detector. It trusts explicit signal
// flags first and falls back to event-type markers. An explicit recovery
// flag is authoritative and wins over any other marker on the same
// event.
type HeuristicDetector struct{}

// Classify never returns an error.
func (HeuristicDetector) Classify(_ context.Context, ev domain.Event) (Signal, error) {
	p := ev.DecodedPayload()
	switch {
	case p.Signals.Recovered, p.StabilityTag == "recovered", ev.EventType == domain.EventTypeRecover:
		return SignalRecovery, nil
	case ev.EventType == domain.EventTypeCorrection, ev.EventType == domain.EventTypeSelfCheck:
		return SignalCorrection, nil
	case p.Signals.Instability, ev.EventType == domain.EventTypeDriftLike:
		return SignalInstability, nil
	}
	return SignalNone, nil
}

// QuietWindowDetector is the optional rolling-window alternative to an
// explicit recovery signal: after Window consecutive events without an
// instability signal, the next such event is reported as a recovery.
// Explicit recovery signals from the inner detector still pass through
// untouched.
//
// The detector is stateful; use one instance per session and Reset it
// between sessions.
type QuietWindowDetector struct {
	Inner  Detector
	Window int

	quiet int
}

// Reset clears the rolling window.
func (d *QuietWindowDetector) Reset() { d.quiet = 0 }

// Classify delegates to the inner detector and overlays the quiet-window
// recovery rule.
func (d *QuietWindowDetector) Classify(ctx context.Context, ev domain.Event) (Signal, error) {
	sig, err := d.Inner.Classify(ctx, ev)
	if err != nil {
		return SignalNone, err
	}
	if sig == SignalInstability {
		d.quiet = 0
		return sig, nil
	}
	d.quiet++
	if sig == SignalNone && d.Window > 0 && d.quiet >= d.Window {
		return SignalRecovery, nil
	}
	return sig, nil
}
