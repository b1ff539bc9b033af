package scene

import "sync"

// sessionLocks serializes turn processing per session. Requests against
// different sessions proceed in parallel; within one session the holder owns
// speaker selection, order assignment, and persistence for the whole turn.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[int64]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[int64]*sessionLock)}
}

// acquire blocks until the session lock is held and returns its release
// func. Entries are refcounted so the table does not grow with dead sessions.
func (l *sessionLocks) acquire(sessionID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
