// Package fsm defines the transcription session state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateTranscribing State = "transcribing"
)

const (
	EventStart Event = "start"
	EventStop  Event = "stop"
)

// Transition applies one event to a state. Redundant triggers (start while
// transcribing, stop while idle) are rejected here; callers that want
// no-op semantics check the current state first.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateTranscribing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
