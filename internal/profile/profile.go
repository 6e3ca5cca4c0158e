// Package profile keeps the lightweight per-player profile: a display name
// assigned on first sight.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
)

// Profile is the public face of a player.
type Profile struct {
	DisplayName string `json:"display_name"`
}

// Store reads and creates profiles in the shared key-value store.
type Store struct {
	store kv.Store
	pick  func(n int) int
}

func New(store kv.Store) *Store {
	return &Store{store: store, pick: rand.Intn}
}

// Get returns the profile for player, or false when none exists yet.
func (s *Store) Get(ctx context.Context, player uuid.UUID) (Profile, bool, error) {
	var p Profile
	found := false
	err := s.store.View(ctx, func(tx kv.Tx) error {
		raw, ok, err := tx.Get(game.ProfileKey(player))
		if err != nil || !ok {
			return err
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	return p, found, nil
}

// GetOrCreate returns the existing profile or assigns a random display name
// on first sight.
func (s *Store) GetOrCreate(ctx context.Context, player uuid.UUID) (Profile, error) {
	var p Profile
	err := s.store.Update(ctx, func(tx kv.Tx) error {
		var err error
		p, err = s.GetOrCreateTx(tx, player)
		return err
	})
	if err != nil {
		return Profile{}, fmt.Errorf("get or create profile: %w", err)
	}
	return p, nil
}

// GetOrCreateTx is GetOrCreate inside an existing transaction, so callers can
// make the first-sight assignment atomic with their own writes.
func (s *Store) GetOrCreateTx(tx kv.Tx, player uuid.UUID) (Profile, error) {
	raw, ok, err := tx.Get(game.ProfileKey(player))
	if err != nil {
		return Profile{}, err
	}
	if ok {
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return Profile{}, fmt.Errorf("decode profile: %w", err)
		}
		return p, nil
	}
	p := Profile{DisplayName: s.randomName()}
	out, err := json.Marshal(p)
	if err != nil {
		return Profile{}, err
	}
	if err := tx.Set(game.ProfileKey(player), out); err != nil {
		return Profile{}, err
	}
	return p, nil
}

var (
	nameAdjectives = []string{
		"amber", "bold", "crafty", "dizzy", "eager", "frosty", "gentle",
		"hasty", "ivory", "jolly", "keen", "lucky", "mellow", "nimble",
		"opal", "plucky", "quick", "rusty", "spry", "tidy", "vivid", "witty",
	}
	nameNouns = []string{
		"anchor", "badger", "comet", "drift", "ember", "falcon", "glacier",
		"harbor", "island", "jigsaw", "kestrel", "lantern", "meteor",
		"nebula", "orchid", "pylon", "quarry", "ridge", "summit", "tundra",
	}
)

func (s *Store) randomName() string {
	adj := nameAdjectives[s.pick(len(nameAdjectives))]
	noun := nameNouns[s.pick(len(nameNouns))]
	return adj + "-" + noun
}
