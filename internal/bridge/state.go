package bridge

import "fmt"

// State is the bridge lifecycle state.
type State int32

const (
	// StateStarting means New has run but Run has not.
	StateStarting State = iota

	// StateRunning means the loops are serving traffic.
	StateRunning

	// StateDraining means a shutdown trigger fired and the loops are
	// winding down.
	StateDraining

	// StateStopped means Run has returned and cleanup is done.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}
