// Package memory provides the in-memory session store used directly in tests
// and as the transactional core of the durable backends.
package memory

import (
	"context"
	"sort"
	"sync"

	"fieldplot/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SessionStore = (*Store)(nil)

// Store keeps sessions in a map guarded by a mutex. All reads and writes
// operate on defensive copies.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewStore constructs an empty in-memory session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]domain.Session)}
}

// SaveSession stores or replaces a session under its name.
func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[session.Name] = session.Clone()
	s.mu.Unlock()
	return nil
}

// LoadSession returns a copy of the named session. The boolean reports existence.
func (s *Store) LoadSession(ctx context.Context, name string) (domain.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, false, err
	}
	s.mu.RLock()
	session, ok := s.sessions[name]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, false, nil
	}
	return session.Clone(), true, nil
}

// ListSessions returns saved session names in sorted order.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names, nil
}

// DeleteSession removes the named session, reporting whether it existed.
func (s *Store) DeleteSession(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	_, existed := s.sessions[name]
	delete(s.sessions, name)
	s.mu.Unlock()
	return existed, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Snapshot captures every stored session for durable backends.
type Snapshot struct {
	Sessions []domain.Session `json:"sessions"`
}

// ExportState returns a deep copy of all sessions in name order.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{Sessions: make([]domain.Session, 0, len(s.sessions))}
	for _, session := range s.sessions {
		out.Sessions = append(out.Sessions, session.Clone())
	}
	sort.Slice(out.Sessions, func(i, j int) bool {
		return out.Sessions[i].Name < out.Sessions[j].Name
	})
	return out
}

// ImportState replaces the store contents with the snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]domain.Session, len(snapshot.Sessions))
	for _, session := range snapshot.Sessions {
		s.sessions[session.Name] = session.Clone()
	}
}
