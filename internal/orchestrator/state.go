package orchestrator

import "sync/atomic"

// State is the lifecycle state of a session.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateSucceeded
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is a final state.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCanceled
}

// stateBox holds a State that only moves forward.
type stateBox struct {
	v atomic.Int32
}

func (b *stateBox) load() State { return State(b.v.Load()) }

// advance moves to next if next is later than the current state and the current
// state is not terminal. It reports whether the transition happened.
func (b *stateBox) advance(next State) bool {
	for {
		cur := b.load()
		if cur.IsTerminal() || next <= cur {
			return false
		}
		if b.v.CompareAndSwap(int32(cur), int32(next)) {
			return true
		}
	}
}
