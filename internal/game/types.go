// Package game holds the value types shared by the replay log, the session
// directory and the matchmaking coordinator: session identities, replay
// segments, session metadata and the abstract rules-engine contract.
package game

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SessionID identifies one played game instance. It is immutable once
// created: the owner who may append to it, the deterministic RNG seed the
// game was started with, and the start time in unix nanoseconds.
type SessionID struct {
	Owner     uuid.UUID `json:"owner"`
	Seed      uint64    `json:"seed"`
	StartTime int64     `json:"start_time"`
}

// String renders the id as "<owner>.<start_time>.<seed>".
func (id SessionID) String() string {
	return fmt.Sprintf("%s.%d.%d", id.Owner, id.StartTime, id.Seed)
}

// ParseSessionID parses the String form of a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SessionID{}, fmt.Errorf("malformed session id %q", s)
	}
	owner, err := uuid.Parse(parts[0])
	if err != nil {
		return SessionID{}, fmt.Errorf("malformed session owner: %w", err)
	}
	start, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return SessionID{}, fmt.Errorf("malformed session start time: %w", err)
	}
	seed, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return SessionID{}, fmt.Errorf("malformed session seed: %w", err)
	}
	return SessionID{Owner: owner, Seed: seed, StartTime: start}, nil
}

// SegmentKind tags the replay segment variants.
type SegmentKind string

const (
	SegmentInit     SegmentKind = "init"
	SegmentUpdate   SegmentKind = "update"
	SegmentGameOver SegmentKind = "game_over"
)

// Init is the first segment of every session and carries what the engine
// needs to construct the initial state.
type Init struct {
	Seed      uint64 `json:"seed"`
	StartTime int64  `json:"start_time"`
}

// Update carries one engine-defined delta. Idx numbers Update segments
// consecutively from 0; the first Update after Init has Idx 0.
type Update struct {
	Idx       uint32          `json:"idx"`
	Delta     json.RawMessage `json:"delta"`
	Timestamp int64           `json:"timestamp"`
}

// Segment is one durable record in a session's replay log. Exactly the
// payload matching Kind is set; segments are immutable once written.
type Segment struct {
	Kind   SegmentKind `json:"kind"`
	Init   *Init       `json:"init,omitempty"`
	Update *Update     `json:"update,omitempty"`
}

// InitSegment builds an Init segment.
func InitSegment(seed uint64, startTime int64) Segment {
	return Segment{Kind: SegmentInit, Init: &Init{Seed: seed, StartTime: startTime}}
}

// UpdateSegment builds an Update segment.
func UpdateSegment(idx uint32, delta json.RawMessage, timestamp int64) Segment {
	return Segment{Kind: SegmentUpdate, Update: &Update{Idx: idx, Delta: delta, Timestamp: timestamp}}
}

// GameOverSegment builds the terminal segment.
func GameOverSegment() Segment {
	return Segment{Kind: SegmentGameOver}
}

// Validate checks that Kind and payload agree.
func (s Segment) Validate() error {
	switch s.Kind {
	case SegmentInit:
		if s.Init == nil || s.Update != nil {
			return fmt.Errorf("init segment must carry exactly the init payload")
		}
	case SegmentUpdate:
		if s.Update == nil || s.Init != nil {
			return fmt.Errorf("update segment must carry exactly the update payload")
		}
	case SegmentGameOver:
		if s.Init != nil || s.Update != nil {
			return fmt.Errorf("game over segment carries no payload")
		}
	default:
		return fmt.Errorf("unknown segment kind %q", s.Kind)
	}
	return nil
}

// SessionMeta is the directory entry for one session. SegmentCount always
// equals the number of durably written segments; InProgress is true from
// bootstrap until a game over segment lands.
type SessionMeta struct {
	InProgress   bool   `json:"in_progress"`
	SegmentCount uint32 `json:"segment_count"`
}
