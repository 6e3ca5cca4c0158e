package replay

import (
	"sync"

	"github.com/blockfall/blockfall/internal/game"
)

// sessionLocks hands out one mutex per live session so appends to the same
// session serialize while appends to different sessions proceed in parallel.
// Entries are reference counted and dropped when the last holder releases.
type sessionLocks struct {
	mu sync.Mutex
	m  map[game.SessionID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[game.SessionID]*lockEntry)}
}

// lock acquires the mutex for id and returns its release func.
func (l *sessionLocks) lock(id game.SessionID) func() {
	l.mu.Lock()
	e, ok := l.m[id]
	if !ok {
		e = &lockEntry{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
