package replay_test

import (
	"encoding/json"
	"fmt"

	"github.com/blockfall/blockfall/internal/game"
)

// stubEngine is a controllable transition function for log tests: a delta
// {"done":true} flips the state to game over, {"fail":true} reports an
// illegal action, anything else just counts.
type stubState struct {
	Applied int  `json:"applied"`
	Done    bool `json:"done"`
}

func (s *stubState) Over() bool { return s.Done }

type stubDelta struct {
	Done bool `json:"done"`
	Fail bool `json:"fail"`
}

type stubEngine struct{}

func (stubEngine) NewState(seed uint64, startTime int64) game.State {
	return &stubState{}
}

func (stubEngine) Apply(prev game.State, delta json.RawMessage) (game.State, error) {
	cur := prev.(*stubState)
	var d stubDelta
	if err := json.Unmarshal(delta, &d); err != nil {
		return nil, err
	}
	if d.Fail {
		return nil, fmt.Errorf("illegal move")
	}
	return &stubState{Applied: cur.Applied + 1, Done: cur.Done || d.Done}, nil
}

func (stubEngine) EncodeState(s game.State) ([]byte, error) {
	return json.Marshal(s)
}

func (stubEngine) DecodeState(data []byte) (game.State, error) {
	var s stubState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
