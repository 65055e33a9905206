package ingest

import (
	"fmt"

	"github.com/xiaot623/driftscope/domain"
)

// GroupByTrace partitions events into per-trace_id sessions, preserving
// arrival order within each session. Events are never re-sorted by
// timestamp; arrival order is trusted as already time-ordered.
//
// Sessions come back in first-appearance order. A timestamp observed to
// decrease within a session produces a data-quality warning, not an
// error.
func GroupByTrace(events []domain.Event) ([]domain.Session, []string) {
	index := map[string]int{}
	var sessions []domain.Session

	for _, ev := range events {
		i, ok := index[ev.TraceID]
		if !ok {
			i = len(sessions)
			index[ev.TraceID] = i
			sessions = append(sessions, domain.Session{TraceID: ev.TraceID})
		}
		sessions[i].Events = append(sessions[i].Events, ev)
	}

	var warnings []string
	for _, s := range sessions {
		for i := 1; i < len(s.Events); i++ {
			if s.Events[i].Timestamp.Before(s.Events[i-1].Timestamp) {
				warnings = append(warnings, fmt.Sprintf(
					"trace %s: timestamp regression at event %d (%s < %s)",
					s.TraceID, i,
					s.Events[i].Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
					s.Events[i-1].Timestamp.Format("2006-01-02T15:04:05.000Z07:00")))
			}
		}
	}
	return sessions, warnings
}
