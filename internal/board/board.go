// Package board keeps the shared custom boards: named engine states any
// player can publish and any player can start a game from.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
)

// ErrInvalidBoard rejects a save whose name or state cannot be accepted. It
// is caller-caused and never worth retrying.
var ErrInvalidBoard = errors.New("invalid board")

const maxNameLen = 64

// Board pairs a board name with its encoded engine state.
type Board struct {
	Name  string          `json:"name"`
	State json.RawMessage `json:"state"`
}

// Store reads and writes custom boards in the shared key-value store.
type Store struct {
	store  kv.Store
	engine game.Engine
}

func New(store kv.Store, engine game.Engine) *Store {
	return &Store{store: store, engine: engine}
}

// Put saves (or replaces) the board under name. The state must decode
// through the rules engine, so the store never serves a board no client can
// load.
func (s *Store) Put(ctx context.Context, name string, state []byte) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: name must be 1..%d bytes", ErrInvalidBoard, maxNameLen)
	}
	if _, err := s.engine.DecodeState(state); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	err := s.store.Update(ctx, func(tx kv.Tx) error {
		return tx.Set(game.BoardKey(name), state)
	})
	if err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// Get returns the encoded state saved under name, or false when no board
// carries that name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, bool, error) {
	var state []byte
	found := false
	err := s.store.View(ctx, func(tx kv.Tx) error {
		raw, ok, err := tx.Get(game.BoardKey(name))
		if err != nil || !ok {
			return err
		}
		state = raw
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get board: %w", err)
	}
	return state, found, nil
}

// List returns every saved board in name order.
func (s *Store) List(ctx context.Context) ([]Board, error) {
	var boards []Board
	err := s.store.View(ctx, func(tx kv.Tx) error {
		return tx.Scan(game.BoardPrefix(), func(key, value []byte) error {
			name, err := game.BoardNameFromKey(key)
			if err != nil {
				return err
			}
			boards = append(boards, Board{Name: name, State: value})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}
