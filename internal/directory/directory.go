// Package directory serves ranked listings over the per-session metadata the
// replay log maintains. Listings are snapshot reads: they sort a bounded
// working set at request time and may trail in-flight appends slightly.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
	"github.com/blockfall/blockfall/internal/metrics"
)

// DefaultPageSize caps every listing reply.
const DefaultPageSize = 9

// recentBucket coarsens start times for the "recent" ranking so sessions
// started near-simultaneously (both halves of a match share one start time)
// rank as contemporaries. Ties break on the full timestamp to keep the order
// deterministic.
const recentBucket = int64(1_000_000_000) // 1s in nanoseconds

// Order selects the listing ranking.
type Order string

const (
	// OrderBest ranks by descending segment count.
	OrderBest Order = "best"
	// OrderRecent ranks by descending bucketed start time.
	OrderRecent Order = "recent"
)

// Scope restricts a listing to one owner's sessions or spans all of them.
type Scope struct {
	owner  uuid.UUID
	scoped bool
}

// ScopeAll spans every session.
func ScopeAll() Scope { return Scope{} }

// ScopeOwner restricts the listing to sessions owned by owner.
func ScopeOwner(owner uuid.UUID) Scope { return Scope{owner: owner, scoped: true} }

// Entry pairs a session with its directory metadata.
type Entry struct {
	ID   game.SessionID   `json:"id"`
	Meta game.SessionMeta `json:"meta"`
}

// Directory reads session metadata from the shared store.
type Directory struct {
	store kv.Store
}

func New(store kv.Store) *Directory {
	return &Directory{store: store}
}

// Meta returns the metadata for one session, or false when the session is
// unknown.
func (d *Directory) Meta(ctx context.Context, id game.SessionID) (game.SessionMeta, bool, error) {
	var meta game.SessionMeta
	found := false
	err := d.store.View(ctx, func(tx kv.Tx) error {
		raw, ok, err := tx.Get(game.MetaKey(id))
		if err != nil || !ok {
			return err
		}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("decode session meta: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return game.SessionMeta{}, false, fmt.Errorf("get session meta: %w", err)
	}
	return meta, found, nil
}

// List scans the sessions in scope, ranks them by order and truncates the
// result to pageSize entries.
func (d *Directory) List(ctx context.Context, scope Scope, order Order, pageSize int) ([]Entry, error) {
	metrics.RecordListing(string(order))
	prefix := game.MetaPrefix()
	if scope.scoped {
		prefix = game.OwnerMetaPrefix(scope.owner)
	}

	var entries []Entry
	err := d.store.View(ctx, func(tx kv.Tx) error {
		return tx.Scan(prefix, func(key, value []byte) error {
			id, err := game.SessionIDFromMetaKey(key)
			if err != nil {
				return err
			}
			var meta game.SessionMeta
			if err := json.Unmarshal(value, &meta); err != nil {
				return fmt.Errorf("decode session meta: %w", err)
			}
			entries = append(entries, Entry{ID: id, Meta: meta})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	switch order {
	case OrderBest:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Meta.SegmentCount != entries[j].Meta.SegmentCount {
				return entries[i].Meta.SegmentCount > entries[j].Meta.SegmentCount
			}
			return entries[i].ID.StartTime > entries[j].ID.StartTime
		})
	case OrderRecent:
		sort.Slice(entries, func(i, j int) bool {
			bi, bj := entries[i].ID.StartTime/recentBucket, entries[j].ID.StartTime/recentBucket
			if bi != bj {
				return bi > bj
			}
			return entries[i].ID.StartTime > entries[j].ID.StartTime
		})
	default:
		return nil, fmt.Errorf("unknown listing order %q", order)
	}

	if pageSize > 0 && len(entries) > pageSize {
		entries = entries[:pageSize]
	}
	return entries, nil
}
