// Package replay owns the append-only per-session segment log. It validates
// ordering and ownership on every append, folds each accepted segment into
// the authoritative session state through the injected rules engine, and
// persists segment, directory entry and state snapshot as one atomic unit.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
	"github.com/blockfall/blockfall/internal/log"
	"github.com/blockfall/blockfall/internal/metrics"
)

// Log is the replay log over one key-value store.
type Log struct {
	store  kv.Store
	engine game.Engine
	locks  *sessionLocks
	logger zerolog.Logger
}

// New builds a Log on top of store, deriving states through engine.
func New(store kv.Store, engine game.Engine) *Log {
	return &Log{
		store:  store,
		engine: engine,
		locks:  newSessionLocks(),
		logger: log.WithComponent("replay"),
	}
}

// Append validates segment against the session's log and, if accepted,
// durably writes the segment, the updated session meta and the new state
// snapshot in one transaction. Rejections are *ValidationError or
// ErrSessionNotFound and never mutate storage. Any other error is a storage
// failure: the append's outcome is unknown and the caller should re-read the
// segment count before retrying.
func (l *Log) Append(ctx context.Context, id game.SessionID, seg game.Segment, caller uuid.UUID) error {
	if caller != id.Owner {
		metrics.RecordAppend("rejected")
		return reject(ReasonNotOwner, "caller %s does not own session", caller)
	}
	if err := seg.Validate(); err != nil {
		metrics.RecordAppend("rejected")
		return reject(ReasonMalformedSegment, "%v", err)
	}

	unlock := l.locks.lock(id)
	defer unlock()

	err := l.store.Update(ctx, func(tx kv.Tx) error {
		meta, found, err := readMeta(tx, id)
		if err != nil {
			return err
		}
		if !found {
			if seg.Kind != game.SegmentInit {
				return ErrSessionNotFound
			}
			meta = game.SessionMeta{}
		}

		prevSeg, prevState, err := l.readTail(tx, id, meta.SegmentCount)
		if err != nil {
			return err
		}
		if err := classify(seg, meta.SegmentCount, prevSeg); err != nil {
			return err
		}
		next, err := l.applySegment(seg, prevState)
		if err != nil {
			return err
		}

		raw, err := json.Marshal(seg)
		if err != nil {
			return fmt.Errorf("encode segment: %w", err)
		}
		if err := tx.Set(game.SegmentKey(id, meta.SegmentCount), raw); err != nil {
			return err
		}
		snap, err := l.engine.EncodeState(next)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := tx.Set(game.SnapshotKey(id), snap); err != nil {
			return err
		}
		newMeta := game.SessionMeta{
			InProgress:   seg.Kind != game.SegmentGameOver,
			SegmentCount: meta.SegmentCount + 1,
		}
		return writeMeta(tx, id, newMeta)
	})
	switch {
	case err == nil:
		metrics.RecordAppend("ok")
		if seg.Kind == game.SegmentGameOver {
			l.logger.Info().
				Str("session", id.String()).
				Msg("session finished")
		}
		return nil
	case IsValidation(err), errors.Is(err, ErrSessionNotFound):
		metrics.RecordAppend("rejected")
		return err
	default:
		metrics.RecordAppend("error")
		metrics.RecordStoreFailure()
		l.logger.Error().
			Err(err).
			Str("session", id.String()).
			Str("kind", string(seg.Kind)).
			Msg("append failed")
		return fmt.Errorf("append segment: %w", err)
	}
}

// readTail loads the last segment and the current snapshot for a session
// with count segments. Both are nil for a fresh session.
func (l *Log) readTail(tx kv.Tx, id game.SessionID, count uint32) (*game.Segment, game.State, error) {
	if count == 0 {
		return nil, nil, nil
	}
	raw, found, err := tx.Get(game.SegmentKey(id, count-1))
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, fmt.Errorf("segment %d missing for session %s", count-1, id)
	}
	var prev game.Segment
	if err := json.Unmarshal(raw, &prev); err != nil {
		return nil, nil, fmt.Errorf("decode segment %d: %w", count-1, err)
	}
	snap, found, err := tx.Get(game.SnapshotKey(id))
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, fmt.Errorf("snapshot missing for session %s", id)
	}
	state, err := l.engine.DecodeState(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &prev, state, nil
}

// classify enforces the log-ordering invariants: Init only at position 0,
// consecutive Update indices, nothing after GameOver.
func classify(seg game.Segment, count uint32, prev *game.Segment) error {
	switch seg.Kind {
	case game.SegmentInit:
		if count != 0 {
			return reject(ReasonDuplicateInit, "init must be the first segment, have %d", count)
		}
	case game.SegmentUpdate:
		if prev == nil {
			return reject(ReasonOutOfOrder, "update before init")
		}
		switch prev.Kind {
		case game.SegmentInit:
			if seg.Update.Idx != 0 {
				return reject(ReasonOutOfOrder, "first update needs idx=0, got %d", seg.Update.Idx)
			}
		case game.SegmentUpdate:
			if prev.Update.Idx+1 != seg.Update.Idx {
				return reject(ReasonOutOfOrder, "want idx=%d, got %d", prev.Update.Idx+1, seg.Update.Idx)
			}
		case game.SegmentGameOver:
			return reject(ReasonSessionOver, "session already over")
		}
	case game.SegmentGameOver:
		if prev == nil {
			return reject(ReasonPrematureOver, "game over before init")
		}
		if prev.Kind == game.SegmentGameOver {
			return reject(ReasonSessionOver, "session already over")
		}
	}
	return nil
}

// applySegment folds seg into the previous state via the engine.
func (l *Log) applySegment(seg game.Segment, prev game.State) (game.State, error) {
	switch seg.Kind {
	case game.SegmentInit:
		return l.engine.NewState(seg.Init.Seed, seg.Init.StartTime), nil
	case game.SegmentUpdate:
		next, err := l.engine.Apply(prev, seg.Update.Delta)
		if err != nil {
			return nil, reject(ReasonIllegalAction, "%v", err)
		}
		return next, nil
	case game.SegmentGameOver:
		if !prev.Over() {
			return nil, reject(ReasonPrematureOver, "reconstructed state does not report game over")
		}
		return prev, nil
	}
	return nil, reject(ReasonMalformedSegment, "unknown kind %q", seg.Kind)
}

// Bootstrap registers a brand-new session in the directory with zero
// segments and the in-progress flag set.
func (l *Log) Bootstrap(ctx context.Context, id game.SessionID) error {
	return l.store.Update(ctx, func(tx kv.Tx) error {
		return BootstrapTx(tx, id)
	})
}

// BootstrapTx writes the fresh-session directory entry inside an existing
// transaction, so callers can make it atomic with their own writes (the
// matchmaking coordinator creates both sessions of a match this way). It
// refuses to overwrite an existing session.
func BootstrapTx(tx kv.Tx, id game.SessionID) error {
	_, found, err := tx.Get(game.MetaKey(id))
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("session %s already exists", id)
	}
	return writeMeta(tx, id, game.SessionMeta{InProgress: true, SegmentCount: 0})
}

// LatestState returns the persisted snapshot for a session. The second
// return is false when the session has no applied segments yet.
func (l *Log) LatestState(ctx context.Context, id game.SessionID) (game.State, bool, error) {
	var state game.State
	found := false
	err := l.store.View(ctx, func(tx kv.Tx) error {
		raw, ok, err := tx.Get(game.SnapshotKey(id))
		if err != nil || !ok {
			return err
		}
		state, err = l.engine.DecodeState(raw)
		if err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("latest state: %w", err)
	}
	return state, found, nil
}

// Segments returns the full segment sequence of a session in append order.
func (l *Log) Segments(ctx context.Context, id game.SessionID) ([]game.Segment, error) {
	var segs []game.Segment
	err := l.store.View(ctx, func(tx kv.Tx) error {
		return tx.Scan(game.SegmentPrefix(id), func(_, value []byte) error {
			var seg game.Segment
			if err := json.Unmarshal(value, &seg); err != nil {
				return fmt.Errorf("decode segment: %w", err)
			}
			segs = append(segs, seg)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return segs, nil
}

func readMeta(tx kv.Tx, id game.SessionID) (game.SessionMeta, bool, error) {
	raw, found, err := tx.Get(game.MetaKey(id))
	if err != nil || !found {
		return game.SessionMeta{}, false, err
	}
	var meta game.SessionMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return game.SessionMeta{}, false, fmt.Errorf("decode session meta: %w", err)
	}
	return meta, true, nil
}

func writeMeta(tx kv.Tx, id game.SessionID, meta game.SessionMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode session meta: %w", err)
	}
	return tx.Set(game.MetaKey(id), raw)
}
