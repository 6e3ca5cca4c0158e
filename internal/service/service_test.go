package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockfall/blockfall/internal/directory"
	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/kv"
	"github.com/blockfall/blockfall/internal/replay"
	"github.com/blockfall/blockfall/internal/service"
)

// stubEngine mirrors the rules-engine contract with full test control: a
// delta {"done":true} finishes the game.
type stubState struct {
	Applied int  `json:"applied"`
	Done    bool `json:"done"`
}

func (s *stubState) Over() bool { return s.Done }

type stubEngine struct{}

func (stubEngine) NewState(uint64, int64) game.State { return &stubState{} }

func (stubEngine) Apply(prev game.State, delta json.RawMessage) (game.State, error) {
	cur := prev.(*stubState)
	var d struct {
		Done bool `json:"done"`
	}
	if err := json.Unmarshal(delta, &d); err != nil {
		return nil, err
	}
	return &stubState{Applied: cur.Applied + 1, Done: cur.Done || d.Done}, nil
}

func (stubEngine) EncodeState(s game.State) ([]byte, error) { return json.Marshal(s) }

func (stubEngine) DecodeState(data []byte) (game.State, error) {
	var s stubState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	store := kv.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return service.New(store, stubEngine{})
}

func TestCreateSession_RetiresPreviousInProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	first, err := svc.CreateSession(ctx, owner)
	require.NoError(t, err)
	meta, found, err := svc.SessionMeta(ctx, first)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, game.SessionMeta{InProgress: true, SegmentCount: 0}, meta)

	second, err := svc.CreateSession(ctx, owner)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	meta, _, err = svc.SessionMeta(ctx, first)
	require.NoError(t, err)
	assert.False(t, meta.InProgress, "previous session must be retired")

	meta, _, err = svc.SessionMeta(ctx, second)
	require.NoError(t, err)
	assert.True(t, meta.InProgress)
}

func TestCreateSession_LeavesOtherOwnersAlone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	aliceSession, err := svc.CreateSession(ctx, alice)
	require.NoError(t, err)

	_, err = svc.CreateSession(ctx, bob)
	require.NoError(t, err)

	meta, _, err := svc.SessionMeta(ctx, aliceSession)
	require.NoError(t, err)
	assert.True(t, meta.InProgress, "bob's session must not retire alice's")
}

// TestSessionLifecycle walks the canonical session: create, init, two
// updates, game over, then a rejected post-mortem update.
func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	id, err := svc.CreateSession(ctx, owner)
	require.NoError(t, err)

	steps := []struct {
		seg       game.Segment
		wantCount uint32
		wantLive  bool
	}{
		{game.InitSegment(id.Seed, id.StartTime), 1, true},
		{game.UpdateSegment(0, json.RawMessage(`{}`), 1), 2, true},
		{game.UpdateSegment(1, json.RawMessage(`{"done":true}`), 2), 3, true},
		{game.GameOverSegment(), 4, false},
	}
	for i, step := range steps {
		require.NoError(t, svc.AppendSegment(ctx, id, step.seg, owner), "step %d", i)
		meta, found, err := svc.SessionMeta(ctx, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, step.wantCount, meta.SegmentCount, "step %d", i)
		assert.Equal(t, step.wantLive, meta.InProgress, "step %d", i)
	}

	err = svc.AppendSegment(ctx, id, game.UpdateSegment(2, json.RawMessage(`{}`), 3), owner)
	var ve *replay.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, replay.ReasonSessionOver, ve.Reason)

	segs, err := svc.Segments(ctx, id)
	require.NoError(t, err)
	assert.Len(t, segs, 4)

	state, found, err := svc.LatestState(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, state.Over())
}

func TestFindMatch_BootstrapsBothSessions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	aliceRes := make(chan error, 1)
	go func() {
		_, err := svc.FindMatch(ctx, alice)
		aliceRes <- err
	}()

	// Bob retries with short waits until the pairing lands; whichever of the
	// two occupies the slot first, both calls end with the same match.
	for {
		bobCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		_, err := svc.FindMatch(bobCtx, bob)
		cancel()
		if err == nil {
			break
		}
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	require.NoError(t, <-aliceRes)

	matches, err := svc.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	rec := matches[0].Record

	for _, sid := range rec.SessionIDs() {
		meta, found, err := svc.SessionMeta(ctx, sid)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, game.SessionMeta{InProgress: true, SegmentCount: 0}, meta)
		require.NoError(t, svc.AppendSegment(ctx, sid, game.InitSegment(rec.Seed, rec.StartTime), sid.Owner))
	}

	got, found, err := svc.Match(ctx, matches[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)
}

func TestListSessions_ScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateSession(ctx, alice)
		require.NoError(t, err)
	}
	_, err := svc.CreateSession(ctx, bob)
	require.NoError(t, err)

	entries, err := svc.ListSessions(ctx, directory.ScopeOwner(alice), directory.OrderRecent)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, alice, e.ID.Owner)
	}

	all, err := svc.ListSessions(ctx, directory.ScopeAll(), directory.OrderBest)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestProfile_StableAcrossCalls(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := uuid.New()

	first, err := svc.Profile(ctx, player)
	require.NoError(t, err)
	require.NotEmpty(t, first.DisplayName)

	second, err := svc.Profile(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAppendSegment_UnknownSession(t *testing.T) {
	svc := newTestService(t)
	owner := uuid.New()
	id := game.SessionID{Owner: owner, Seed: 1, StartTime: 1}

	err := svc.AppendSegment(context.Background(), id, game.UpdateSegment(0, json.RawMessage(`{}`), 1), owner)
	require.ErrorIs(t, err, replay.ErrSessionNotFound)
}

