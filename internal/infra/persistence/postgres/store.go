// Package postgres provides a Postgres-backed session store mirroring the
// in-memory semantics, snapshotting sessions as JSONB rows.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"fieldplot/internal/infra/persistence/memory"
	"fieldplot/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SessionStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenSessionStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/fieldplot?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists sessions to Postgres while reusing the in-memory
// implementation for reads.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), ensures the sessions table exists, and hydrates the in-memory
// store from existing rows.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sessions (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, payload FROM sessions`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan sessions: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode session %s: %w", name, err)
		}
		snapshot.Sessions = append(snapshot.Sessions, session)
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate sessions: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	for _, session := range snapshot.Sessions {
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session %s: %w", session.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(name,payload) VALUES($1,$2)`, session.Name, payload); err != nil {
			return fmt.Errorf("insert session %s: %w", session.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// SaveSession stores the session in memory and snapshots to Postgres.
func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	if err := s.Store.SaveSession(ctx, session); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DeleteSession removes the session and snapshots to Postgres when it existed.
func (s *Store) DeleteSession(ctx context.Context, name string) (bool, error) {
	existed, err := s.Store.DeleteSession(ctx, name)
	if err != nil || !existed {
		return existed, err
	}
	return true, s.persist(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
