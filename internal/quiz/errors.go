package quiz

import (
	"errors"
	"fmt"
)

// ErrRejected is wrapped by every RejectedError.
var ErrRejected = errors.New("transition rejected")

// ErrStale is returned for engine events whose token no longer matches.
var ErrStale = errors.New("stale event")

// RejectedError reports a learner event that is not legal in the current
// state. The state is unchanged.
type RejectedError struct {
	Event  string
	Stage  Stage
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected in %s: %s", e.Event, e.Stage, e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

func reject(ev Event, s State, reason string) error {
	return &RejectedError{Event: ev.EventName(), Stage: s.Stage, Reason: reason}
}
