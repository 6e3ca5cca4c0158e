// Package service assembles the game core: replay log, session directory,
// matchmaking coordinator and profiles over one shared store, and exposes
// the operations the transport layer serves.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blockfall/blockfall/internal/board"
	"github.com/blockfall/blockfall/internal/directory"
	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
	"github.com/blockfall/blockfall/internal/log"
	"github.com/blockfall/blockfall/internal/matchmaking"
	"github.com/blockfall/blockfall/internal/metrics"
	"github.com/blockfall/blockfall/internal/profile"
	"github.com/blockfall/blockfall/internal/replay"
)

// Service wires the core components over a single store handle. Lifecycle of
// the store is owned by whoever constructs the Service.
type Service struct {
	store    kv.Store
	replay   *replay.Log
	dir      *directory.Directory
	matches  *matchmaking.Coordinator
	profiles *profile.Store
	boards   *board.Store
	logger   zerolog.Logger

	now  func() time.Time
	seed func() uint64
}

// New assembles a Service over store, deriving session states through engine.
func New(store kv.Store, engine game.Engine) *Service {
	profiles := profile.New(store)
	return &Service{
		store:    store,
		replay:   replay.New(store, engine),
		dir:      directory.New(store),
		matches:  matchmaking.New(store, profiles),
		profiles: profiles,
		boards:   board.New(store, engine),
		logger:   log.WithComponent("service"),
		now:      time.Now,
		seed:     rand.Uint64,
	}
}

// CreateSession retires any still-in-progress sessions of the caller, then
// allocates and bootstraps a fresh one. Retirement and bootstrap commit in
// one transaction.
func (s *Service) CreateSession(ctx context.Context, caller uuid.UUID) (game.SessionID, error) {
	id := game.SessionID{
		Owner:     caller,
		Seed:      s.seed(),
		StartTime: s.now().UnixNano(),
	}
	err := s.store.Update(ctx, func(tx kv.Tx) error {
		type stale struct {
			key  []byte
			meta game.SessionMeta
		}
		var retire []stale
		err := tx.Scan(game.OwnerMetaPrefix(caller), func(key, value []byte) error {
			var meta game.SessionMeta
			if err := json.Unmarshal(value, &meta); err != nil {
				return fmt.Errorf("decode session meta: %w", err)
			}
			if meta.InProgress {
				retire = append(retire, stale{key: append([]byte(nil), key...), meta: meta})
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, old := range retire {
			old.meta.InProgress = false
			out, err := json.Marshal(old.meta)
			if err != nil {
				return err
			}
			if err := tx.Set(old.key, out); err != nil {
				return err
			}
		}
		return replay.BootstrapTx(tx, id)
	})
	if err != nil {
		metrics.RecordStoreFailure()
		return game.SessionID{}, fmt.Errorf("create session: %w", err)
	}
	metrics.RecordSessionCreated()
	s.logger.Debug().
		Str("session", id.String()).
		Msg("session created")
	return id, nil
}

// AppendSegment appends one validated segment to a session's replay log.
func (s *Service) AppendSegment(ctx context.Context, id game.SessionID, seg game.Segment, caller uuid.UUID) error {
	return s.replay.Append(ctx, id, seg, caller)
}

// LatestState returns the authoritative reconstructed state of a session.
func (s *Service) LatestState(ctx context.Context, id game.SessionID) (game.State, bool, error) {
	return s.replay.LatestState(ctx, id)
}

// Segments returns a session's full segment sequence in append order.
func (s *Service) Segments(ctx context.Context, id game.SessionID) ([]game.Segment, error) {
	return s.replay.Segments(ctx, id)
}

// SessionMeta returns the directory entry for one session.
func (s *Service) SessionMeta(ctx context.Context, id game.SessionID) (game.SessionMeta, bool, error) {
	return s.dir.Meta(ctx, id)
}

// ListSessions returns the ranked listing for scope and order, capped at the
// fixed page size.
func (s *Service) ListSessions(ctx context.Context, scope directory.Scope, order directory.Order) ([]directory.Entry, error) {
	return s.dir.List(ctx, scope, order, directory.DefaultPageSize)
}

// FindMatch blocks until the caller is paired, the context is cancelled, or
// the caller turns out to be queued already.
func (s *Service) FindMatch(ctx context.Context, caller uuid.UUID) (matchmaking.Match, error) {
	return s.matches.FindMatch(ctx, caller)
}

// Match looks up one persisted match record.
func (s *Service) Match(ctx context.Context, id uuid.UUID) (matchmaking.Record, bool, error) {
	return s.matches.Match(ctx, id)
}

// Matches returns all persisted match records.
func (s *Service) Matches(ctx context.Context) ([]matchmaking.Match, error) {
	return s.matches.Matches(ctx)
}

// Profile returns the player's profile, assigning a display name on first
// sight.
func (s *Service) Profile(ctx context.Context, player uuid.UUID) (profile.Profile, error) {
	return s.profiles.GetOrCreate(ctx, player)
}

// Boards returns every shared custom board in name order.
func (s *Service) Boards(ctx context.Context) ([]board.Board, error) {
	return s.boards.List(ctx)
}

// Board returns the encoded state of one custom board.
func (s *Service) Board(ctx context.Context, name string) ([]byte, bool, error) {
	return s.boards.Get(ctx, name)
}

// SaveBoard publishes (or replaces) a custom board under name.
func (s *Service) SaveBoard(ctx context.Context, name string, state []byte) error {
	return s.boards.Put(ctx, name, state)
}
