package domain

import "fmt"

// MalformedEventError reports a record that cannot be parsed into the
// minimal required fields. The run skips and counts these lines; a single
// bad line never aborts the whole pass.
type MalformedEventError struct {
	Field  string
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event: field %q: %s", e.Field, e.Reason)
}

// EmptySessionError reports a classifier call on a zero-event session,
// which is a caller contract violation.
type EmptySessionError struct {
	TraceID string
}

func (e *EmptySessionError) Error() string {
	return fmt.Sprintf("empty session %q: closure classification requires at least one event", e.TraceID)
}
