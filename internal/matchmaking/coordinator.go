// Package matchmaking pairs waiting players through a single pending-slot
// rendezvous. At most one player waits at any instant; the second distinct
// caller pairs with the occupant, persists the match record together with
// both implied sessions, and hands the occupant the result through a
// one-shot channel.
package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
	"github.com/blockfall/blockfall/internal/log"
	"github.com/blockfall/blockfall/internal/metrics"
	"github.com/blockfall/blockfall/internal/profile"
	"github.com/blockfall/blockfall/internal/replay"
)

// ErrAlreadyQueued rejects a re-entrant FindMatch from a player who already
// occupies the pending slot.
var ErrAlreadyQueued = errors.New("player already queued for matchmaking")

// Record is a persisted 1v1 pairing. Users keeps the rendezvous order: the
// occupant of the slot first, the caller who completed the pair second. The
// order decides board placement, not ranking.
type Record struct {
	Seed      uint64       `json:"seed"`
	StartTime int64        `json:"start_time"`
	Users     [2]uuid.UUID `json:"users"`
	Title     string       `json:"title"`
}

// SessionIDs derives the two per-player sessions the record implies. Both
// share the record's seed and start time.
func (r Record) SessionIDs() [2]game.SessionID {
	return [2]game.SessionID{
		{Owner: r.Users[0], Seed: r.Seed, StartTime: r.StartTime},
		{Owner: r.Users[1], Seed: r.Seed, StartTime: r.StartTime},
	}
}

// Match pairs a record with its identifier.
type Match struct {
	ID     uuid.UUID `json:"id"`
	Record Record    `json:"record"`
}

type waiter struct {
	player uuid.UUID
	ch     chan Match // buffered(1): pairing never blocks on delivery
}

// Coordinator owns the pending slot and match persistence.
type Coordinator struct {
	store    kv.Store
	profiles *profile.Store
	logger   zerolog.Logger

	mu      sync.Mutex
	waiting *waiter

	// injectable for deterministic tests
	now  func() time.Time
	seed func() uint64
}

func New(store kv.Store, profiles *profile.Store) *Coordinator {
	return &Coordinator{
		store:    store,
		profiles: profiles,
		logger:   log.WithComponent("matchmaking"),
		now:      time.Now,
		seed:     rand.Uint64,
	}
}

// FindMatch blocks the caller until another distinct player arrives, then
// returns the shared match. Cancellation of ctx vacates the slot if the
// caller still holds it; FindMatch never imposes a timeout of its own. A
// caller whose identity already occupies the slot is rejected with
// ErrAlreadyQueued.
func (c *Coordinator) FindMatch(ctx context.Context, caller uuid.UUID) (Match, error) {
	c.mu.Lock()

	if c.waiting == nil {
		w := &waiter{player: caller, ch: make(chan Match, 1)}
		c.waiting = w
		c.mu.Unlock()
		metrics.SetMatchmakingWaiting(true)

		select {
		case m := <-w.ch:
			return m, nil
		case <-ctx.Done():
			c.mu.Lock()
			if c.waiting == w {
				c.waiting = nil
				metrics.SetMatchmakingWaiting(false)
			}
			c.mu.Unlock()
			// A pairing that raced the cancellation has already been
			// persisted and announced to the partner; prefer it over the
			// cancellation.
			select {
			case m := <-w.ch:
				return m, nil
			default:
			}
			return Match{}, ctx.Err()
		}
	}

	if c.waiting.player == caller {
		c.mu.Unlock()
		return Match{}, ErrAlreadyQueued
	}

	occupant := c.waiting
	c.waiting = nil
	metrics.SetMatchmakingWaiting(false)

	rec := Record{
		Seed:      c.seed(),
		StartTime: c.now().UnixNano(),
		Users:     [2]uuid.UUID{occupant.player, caller},
	}
	m := Match{ID: uuid.New()}

	// Persist the record and bootstrap both implied sessions in one
	// transaction, before either caller observes the match. Titles use the
	// players' display names, assigned here on first sight.
	err := c.store.Update(ctx, func(tx kv.Tx) error {
		left, err := c.profiles.GetOrCreateTx(tx, rec.Users[0])
		if err != nil {
			return err
		}
		right, err := c.profiles.GetOrCreateTx(tx, rec.Users[1])
		if err != nil {
			return err
		}
		rec.Title = fmt.Sprintf("1v1 %s vs. %s", left.DisplayName, right.DisplayName)

		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Set(game.MatchKey(m.ID), raw); err != nil {
			return err
		}
		for _, sid := range rec.SessionIDs() {
			if err := replay.BootstrapTx(tx, sid); err != nil {
				return err
			}
		}
		return nil
	})
	m.Record = rec
	if err != nil {
		// Leave the occupant queued so their wait survives a storage blip.
		c.waiting = occupant
		metrics.SetMatchmakingWaiting(true)
		c.mu.Unlock()
		metrics.RecordStoreFailure()
		return Match{}, fmt.Errorf("persist match: %w", err)
	}

	occupant.ch <- m
	c.mu.Unlock()

	metrics.RecordMatchCreated()
	c.logger.Info().
		Str("match", m.ID.String()).
		Str("left", rec.Users[0].String()).
		Str("right", rec.Users[1].String()).
		Msg("match paired")
	return m, nil
}

// Match looks up a persisted match record.
func (c *Coordinator) Match(ctx context.Context, id uuid.UUID) (Record, bool, error) {
	var rec Record
	found := false
	err := c.store.View(ctx, func(tx kv.Tx) error {
		raw, ok, err := tx.Get(game.MatchKey(id))
		if err != nil || !ok {
			return err
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode match record: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("get match: %w", err)
	}
	return rec, found, nil
}

// Matches returns every persisted match.
func (c *Coordinator) Matches(ctx context.Context) ([]Match, error) {
	var out []Match
	err := c.store.View(ctx, func(tx kv.Tx) error {
		return tx.Scan(game.MatchPrefix(), func(key, value []byte) error {
			id, err := game.MatchIDFromKey(key)
			if err != nil {
				return err
			}
			var rec Record
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode match record: %w", err)
			}
			out = append(out, Match{ID: id, Record: rec})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}
