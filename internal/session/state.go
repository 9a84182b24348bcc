package session

import "fmt"

// State is the lifecycle state of the recognition control
type State int

const (
	StateIdle        State = iota // No session has run, or a start was rejected
	StateListening                // Session started, nothing recognised yet
	StateRecognising              // A partial result is in flight
	StateRecognised               // The last event finalized an utterance
	StateStopped                  // Session ended; restartable
)

// String returns the label the host sees for the state.
// StateStopped is exposed as "complete".
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecognising:
		return "recognising"
	case StateRecognised:
		return "recognised"
	case StateStopped:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Active reports whether a provider connection belongs to this state
func (s State) Active() bool {
	return s == StateListening || s == StateRecognising || s == StateRecognised
}

// ParseState maps a host label back to a State
func ParseState(label string) (State, error) {
	switch label {
	case "idle", "":
		return StateIdle, nil
	case "listening":
		return StateListening, nil
	case "recognising":
		return StateRecognising, nil
	case "recognised":
		return StateRecognised, nil
	case "complete":
		return StateStopped, nil
	default:
		return StateIdle, fmt.Errorf("unknown state label %q", label)
	}
}
