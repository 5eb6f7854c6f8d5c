// Package session holds in-progress wizard sessions in memory.
package session

import (
	"errors"
	"maps"
	"sync"
	"time"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Session is one user's in-progress wizard.
type Session struct {
	ID        string
	Cursor    int
	Answers   map[string]string
	CreatedAt time.Time
	// Committing is set once the final answer has been accepted and the
	// report is being written.
	Committing bool
}

func (s Session) clone() Session {
	s.Answers = maps.Clone(s.Answers)
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	return s
}

// entry guards one session. Holding mu never blocks other ids.
type entry struct {
	mu      sync.Mutex
	sess    Session
	removed bool
}

// Store maps session ids to sessions. The map lock is held only for lookups;
// mutations lock the session's own entry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry), now: time.Now}
}

// Begin creates the session for id, replacing any existing one.
func (s *Store) Begin(id string) Session {
	e := &entry{sess: Session{ID: id, Answers: map[string]string{}, CreatedAt: s.now()}}

	s.mu.Lock()
	old := s.entries[id]
	s.entries[id] = e
	s.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.removed = true
		old.mu.Unlock()
	}
	return e.sess.clone()
}

// Get returns a copy of the session for id.
func (s *Store) Get(id string) (Session, error) {
	e := s.lookup(id)
	if e == nil {
		return Session{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Session{}, ErrNotFound
	}
	return e.sess.clone(), nil
}

// Update applies fn to the session for id under that session's lock. If fn
// returns an error the session is left unchanged.
func (s *Store) Update(id string, fn func(*Session) error) error {
	e := s.lookup(id)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return ErrNotFound
	}

	next := e.sess.clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.ID = e.sess.ID
	e.sess = next
	return nil
}

// Remove deletes the session for id. Removing a missing id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	e := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if e != nil {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}
