// Package session provides the in-memory keyed store for in-flight
// conversations. Turns within one session are serialized by a per-session
// lock while unrelated sessions proceed in parallel.
package session

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"honeypot/internal/models"
)

// ErrNotFound is returned when a session ID is unknown to the store.
var ErrNotFound = errors.New("session not found")

type entry struct {
	mu      sync.Mutex
	session *models.Session
}

// Store holds all in-flight sessions.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *zap.Logger
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Acquire returns the session for id with its per-session lock held,
// creating the session when absent. The caller must invoke release when
// done mutating the session.
func (st *Store) Acquire(id string) (s *models.Session, created bool, release func()) {
	st.mu.Lock()
	e, ok := st.entries[id]
	if !ok {
		e = &entry{session: models.NewSession(id)}
		st.entries[id] = e
		created = true
		st.logger.Debug("Session created", zap.String("session_id", id))
	}
	st.mu.Unlock()

	e.mu.Lock()
	return e.session, created, e.mu.Unlock
}

// Lookup returns an existing session with its lock held, or ErrNotFound.
func (st *Store) Lookup(id string) (*models.Session, func(), error) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()

	if !ok {
		return nil, nil, ErrNotFound
	}

	e.mu.Lock()
	return e.session, e.mu.Unlock, nil
}

// Remove deletes a session from the store. Safe to call while another
// goroutine still holds the session; the entry is simply unreachable for
// new callers.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	delete(st.entries, id)
	st.mu.Unlock()
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

// IdleSince returns the IDs of sessions whose last activity is older than
// cutoff, grouped by lifecycle state. Only a snapshot; callers must
// re-check state under the session lock.
func (st *Store) IdleSince(cutoff time.Time) (active, concluded []string) {
	st.mu.RLock()
	snapshot := make(map[string]*entry, len(st.entries))
	for id, e := range st.entries {
		snapshot[id] = e
	}
	st.mu.RUnlock()

	for id, e := range snapshot {
		e.mu.Lock()
		idle := e.session.LastActivity.Before(cutoff)
		status := e.session.Status
		e.mu.Unlock()

		if !idle {
			continue
		}
		if status == models.StatusConcluded {
			concluded = append(concluded, id)
		} else {
			active = append(active, id)
		}
	}
	return active, concluded
}
