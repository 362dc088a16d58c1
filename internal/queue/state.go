package queue

import "sync/atomic"

// State describes the connection manager lifecycle.
//
//	disconnected -> connecting -> connected -> (connection lost) disconnected
//	any -> closed (terminal, after Close)
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type stateHolder struct {
	v atomic.Int32
}

func (h *stateHolder) load() State { return State(h.v.Load()) }

// transition stores next unless the holder is already closed. It reports the
// previous state and whether the store happened.
func (h *stateHolder) transition(next State) (State, bool) {
	for {
		prev := h.v.Load()
		if State(prev) == StateClosed {
			return StateClosed, false
		}
		if h.v.CompareAndSwap(prev, int32(next)) {
			return State(prev), true
		}
	}
}
