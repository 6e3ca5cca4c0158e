// Package engine ships the reference falling-blocks rules implementation.
// The core never depends on it directly; it consumes the abstract
// game.Engine contract, so this engine exists to run the daemon end-to-end
// and to exercise the replay law in tests.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/blockfall/blockfall/internal/game"
)

const (
	boardRows = 20
	// Action names accepted in Update deltas.
	ActionDrop = "drop"
	ActionHold = "hold"
)

// State is the full game state. All randomness flows from the session seed
// through a splitmix64 stream, so the same delta sequence always reproduces
// the same state.
type State struct {
	Seed      uint64 `json:"seed"`
	StartTime int64  `json:"start_time"`
	Rng       uint64 `json:"rng"`
	Stack     int    `json:"stack"`
	Lines     int    `json:"lines"`
	Score     int    `json:"score"`
	Pieces    int    `json:"pieces"`
	HoldUsed  bool   `json:"hold_used"`
	GameOver  bool   `json:"game_over"`
}

func (s *State) Over() bool { return s.GameOver }

// Delta is one player action.
type Delta struct {
	Action string `json:"action"`
}

// Engine implements game.Engine.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) NewState(seed uint64, startTime int64) game.State {
	return &State{Seed: seed, StartTime: startTime, Rng: seed}
}

func (e *Engine) Apply(prev game.State, delta json.RawMessage) (game.State, error) {
	cur, ok := prev.(*State)
	if !ok {
		return nil, fmt.Errorf("engine: unexpected state type %T", prev)
	}
	if cur.GameOver {
		return nil, fmt.Errorf("engine: game is over")
	}
	var d Delta
	if err := json.Unmarshal(delta, &d); err != nil {
		return nil, fmt.Errorf("engine: malformed delta: %w", err)
	}

	next := *cur
	switch d.Action {
	case ActionDrop:
		next.Pieces++
		height := 1 + int(next.roll()%3)
		next.Stack += height
		next.Score += height * 10
		// Every few pieces the stream grants a clear worth two rows.
		if next.roll()%5 == 0 && next.Stack >= 2 {
			next.Lines++
			next.Stack -= 2
			next.Score += 100
		}
		next.HoldUsed = false
		if next.Stack >= boardRows {
			next.Stack = boardRows
			next.GameOver = true
		}
	case ActionHold:
		if next.HoldUsed {
			return nil, fmt.Errorf("engine: hold already used this piece")
		}
		next.HoldUsed = true
	default:
		return nil, fmt.Errorf("engine: unknown action %q", d.Action)
	}
	return &next, nil
}

func (e *Engine) EncodeState(s game.State) ([]byte, error) {
	cur, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("engine: unexpected state type %T", s)
	}
	return json.Marshal(cur)
}

func (e *Engine) DecodeState(data []byte) (game.State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("engine: decode state: %w", err)
	}
	return &s, nil
}

// roll advances the splitmix64 stream and returns the next value.
func (s *State) roll() uint64 {
	s.Rng += 0x9e3779b97f4a7c15
	z := s.Rng
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

var _ game.Engine = (*Engine)(nil)
