// Package sqlite persists sessions to a single SQLite table, one row per
// session with a gzip-compressed JSON payload. The in-memory store supplies
// read semantics; every mutation snapshots back to disk.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"fieldplot/internal/infra/persistence/memory"
	"fieldplot/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SessionStore = (*Store)(nil)

// Store is a snapshotting SQLite-backed session store.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path, hydrating the in-memory
// store from any existing rows. An empty path defaults to ./fieldplot.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "fieldplot.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT name, payload FROM sessions`)
	if err != nil {
		return fmt.Errorf("select sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		session, err := decodeSession(payload)
		if err != nil {
			return fmt.Errorf("decode session %s: %w", name, err)
		}
		snapshot.Sessions = append(snapshot.Sessions, session)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sessions: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		retErr = fmt.Errorf("clear sessions: %w", err)
		return retErr
	}
	for _, session := range snapshot.Sessions {
		payload, err := encodeSession(session)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(name,payload) VALUES(?,?)`, session.Name, payload); err != nil {
			retErr = fmt.Errorf("insert session %s: %w", session.Name, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

// SaveSession stores the session in memory and snapshots to SQLite.
func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	if err := s.Store.SaveSession(ctx, session); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DeleteSession removes the session and snapshots to SQLite when it existed.
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func encodeSession(session domain.Session) ([]byte, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	buf := &bytes.Buffer{}
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress session: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress session: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSession(payload []byte) (domain.Session, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return domain.Session{}, fmt.Errorf("decompress: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("decompress: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}
