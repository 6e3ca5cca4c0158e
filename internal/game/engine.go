package game

import "encoding/json"

// State is the reconstructed game state after applying all segments so far.
// The core only needs to know whether the game has finished; everything else
// is engine-defined.
type State interface {
	Over() bool
}

// Engine is the deterministic state-transition function supplied by the
// rules implementation. Apply must be pure: it never mutates prev, and the
// same (prev, delta) always yields the same result, so replaying a segment
// sequence from scratch reproduces the persisted snapshot exactly.
type Engine interface {
	// NewState constructs the initial state for an Init segment.
	NewState(seed uint64, startTime int64) State
	// Apply applies one Update delta. An error marks the action illegal
	// against prev and must leave no observable effect.
	Apply(prev State, delta json.RawMessage) (State, error)
	// EncodeState serialises a state for snapshot persistence.
	EncodeState(s State) ([]byte, error)
	// DecodeState reverses EncodeState.
	DecodeState(data []byte) (State, error)
}
