package board_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockfall/blockfall/internal/board"
	"github.com/blockfall/blockfall/internal/game/engine"
	"github.com/blockfall/blockfall/internal/kv"
)

func newTestStore(t *testing.T) (*board.Store, *engine.Engine) {
	t.Helper()
	kvStore := kv.NewMemoryStore()
	t.Cleanup(func() { _ = kvStore.Close() })
	e := engine.New()
	return board.New(kvStore, e), e
}

func encodedState(t *testing.T, e *engine.Engine, seed uint64) []byte {
	t.Helper()
	raw, err := e.EncodeState(e.NewState(seed, 1))
	require.NoError(t, err)
	return raw
}

func TestPutGetRoundtrip(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()
	state := encodedState(t, e, 7)

	_, found, err := s.Get(ctx, "tower")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "tower", state))

	got, found, err := s.Get(ctx, "tower")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state, got)

	// Saving again replaces the stored state.
	replacement := encodedState(t, e, 8)
	require.NoError(t, s.Put(ctx, "tower", replacement))
	got, found, err = s.Get(ctx, "tower")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, replacement, got)
}

func TestPut_RejectsBadInput(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()
	state := encodedState(t, e, 1)

	tests := []struct {
		name      string
		boardName string
		state     []byte
	}{
		{"empty name", "", state},
		{"name too long", strings.Repeat("x", 65), state},
		{"undecodable state", "ok", []byte(`{{not json`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(ctx, tt.boardName, tt.state)
			require.ErrorIs(t, err, board.ErrInvalidBoard)
		})
	}

	boards, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, boards, "rejected saves must not persist")
}

func TestList_NameOrder(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"well", "arena", "maze"} {
		require.NoError(t, s.Put(ctx, name, encodedState(t, e, 3)))
	}

	boards, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 3)

	names := []string{boards[0].Name, boards[1].Name, boards[2].Name}
	assert.Equal(t, []string{"arena", "maze", "well"}, names)
}
