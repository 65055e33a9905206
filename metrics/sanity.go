package metrics

import (
	"sort"

	"github.com/xiaot623/driftscope/domain"
)

// shortSessionMin is the event count below which a session is flagged as
// suspiciously short.
const shortSessionMin = 3

// SanityReport holds lightweight structural checks that are useful
// before running the full instability analysis. All checks are advisory.
type SanityReport struct {
	Events int `json:"events"`
	Traces int `json:"traces"`

	SessionsWithRegressions int `json:"sessions_with_regressions"`
	TimestampViolations     int `json:"timestamp_violations"`

	// FanOut maps child count to the number of spans with that many
	// children, derived from parent_span_id links.
	FanOut map[int]int `json:"fan_out,omitempty"`

	ShortSessions []string `json:"short_sessions,omitempty"`

	// ReusedSpanIDs lists span_ids observed in more than one trace.
	ReusedSpanIDs []string `json:"reused_span_ids,omitempty"`
}

// CheckTraces runs the structural sanity checks over grouped sessions.
func CheckTraces(sessions []domain.Session) *SanityReport {
	report := &SanityReport{
		Traces: len(sessions),
		FanOut: map[int]int{},
	}

	spanOwner := map[string]string{}
	reused := map[string]bool{}

	for _, s := range sessions {
		report.Events += len(s.Events)

		violations := 0
		for i := 1; i < len(s.Events); i++ {
			if s.Events[i].Timestamp.Before(s.Events[i-1].Timestamp) {
				violations++
			}
		}
		if violations > 0 {
			report.SessionsWithRegressions++
			report.TimestampViolations += violations
		}

		children := map[string]int{}
		for _, ev := range s.Events {
			if ev.ParentSpanID != "" {
				children[ev.ParentSpanID]++
			}
			if ev.SpanID == "" {
				continue
			}
			if owner, ok := spanOwner[ev.SpanID]; ok && owner != s.TraceID {
				reused[ev.SpanID] = true
			} else {
				spanOwner[ev.SpanID] = s.TraceID
			}
		}
		for _, n := range children {
			report.FanOut[n]++
		}

		if len(s.Events) < shortSessionMin {
			report.ShortSessions = append(report.ShortSessions, s.TraceID)
		}
	}

	for id := range reused {
		report.ReusedSpanIDs = append(report.ReusedSpanIDs, id)
	}
	sort.Strings(report.ReusedSpanIDs)
	return report
}
