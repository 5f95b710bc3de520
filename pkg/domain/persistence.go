package domain

import (
	"context"
	"time"
)

// SelectionKey addresses one specimen in the selection set.
type SelectionKey struct {
	Site     string `json:"site"`
	Specimen string `json:"specimen"`
}

// Session captures the durable state of one working session: the imported
// hierarchy, the active style name, and the checked specimen selection. A
// session is saved wholesale after each import and replaced on the next save.
type Session struct {
	Name      string         `json:"name"`
	Hierarchy Hierarchy      `json:"hierarchy"`
	StyleName string         `json:"style_name"`
	Selection []SelectionKey `json:"selection,omitempty"`
	SavedAt   time.Time      `json:"saved_at"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Hierarchy = s.Hierarchy.Clone()
	out.Selection = append([]SelectionKey(nil), s.Selection...)
	return out
}

// SessionStore is a minimal abstraction over durable backends for session
// state. Implementations snapshot the full session on every save.
type SessionStore interface {
	// SaveSession persists the session, replacing any prior session with the
	// same name.
	SaveSession(ctx context.Context, session Session) error
	// LoadSession returns the named session, reporting false when absent.
	LoadSession(ctx context.Context, name string) (Session, bool, error)
	// ListSessions returns stored session names in ascending order.
	ListSessions(ctx context.Context) ([]string, error)
	// DeleteSession removes a session; returns false when it did not exist.
	DeleteSession(ctx context.Context, name string) (bool, error)
	// Close releases backend resources.
	Close() error
}
