package dispatch

import "sync/atomic"

// LoopState represents the lifecycle state of the dispatcher's event loop.
//
// State Machine:
//
//	StateAwake (0) -> StateRunning (1)     [loop goroutine starts]
//	StateRunning (1) -> StateClosing (2)   [Stop requested, or poll failed]
//	StateAwake (0) -> StateClosing (2)     [Stop requested before start]
//	StateClosing (2) -> StateClosed (3)    [final teardown complete]
//
// Use TryTransition (CAS) for every transition; there is no reachable path
// backwards through this state machine.
type LoopState uint64

const (
	// StateAwake indicates the dispatcher has been created but its loop
	// goroutine has not yet started.
	StateAwake LoopState = 0
	// StateRunning indicates the loop goroutine is polling for I/O.
	StateRunning LoopState = 1
	// StateClosing indicates Stop has been requested but teardown (closing
	// the poller and wake source, disposing remaining sockets) has not
	// completed.
	StateClosing LoopState = 2
	// StateClosed indicates the loop goroutine has exited.
	StateClosed LoopState = 3
)

func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "awake"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FastState is a lock-free state machine guarding the dispatcher's
// lifecycle, adapted from the teacher's atomic-CAS loop state pattern:
// atomic load and compare-and-swap with no mutex, since every transition
// here is a simple monotonic advance rather than a branching state graph.
type FastState struct {
	v atomic.Uint64
}

// NewFastState creates a new state machine in the Awake state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// TryTransition attempts to atomically transition from one state to
// another, returning true on success.
func (s *FastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsClosed reports whether the loop has fully torn down.
func (s *FastState) IsClosed() bool {
	return s.Load() == StateClosed
}

// CanAcceptWork reports whether new sockets may still be registered.
func (s *FastState) CanAcceptWork() bool {
	state := s.Load()
	return state == StateAwake || state == StateRunning
}
