// Package db provides the durable key-value store behind the session
// manager: one well-known key holding the single session record.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/happypulse/radar/internal/services"
)

// sessionKey matches the storage key the original frontend used, so a
// deployment can keep its database across upgrades.
const sessionKey = "happiness_radar_session"

type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and if needed creates) the session database at path.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	const schema = `CREATE TABLE IF NOT EXISTS session (
		k TEXT PRIMARY KEY,
		issued_at INTEGER NOT NULL,
		role TEXT NOT NULL
	)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Load returns the stored session record, or (nil, nil) when absent.
// Unreadable rows are treated as absent: the session manager must fail
// safe to unauthenticated, never see a parse error.
func (s *SQLiteStore) Load() (*services.SessionRecord, error) {
	var issuedMs int64
	var role string
	err := s.db.QueryRow("SELECT issued_at, role FROM session WHERE k = ?", sessionKey).Scan(&issuedMs, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Printf("sqlite store: load session: %v", err)
		return nil, nil
	}
	return &services.SessionRecord{
		IssuedAt: time.UnixMilli(issuedMs),
		Role:     services.Role(role),
	}, nil
}

func (s *SQLiteStore) Save(rec *services.SessionRecord) error {
	if rec == nil {
		return errors.New("nil session record")
	}
	_, err := s.db.Exec(
		"INSERT INTO session (k, issued_at, role) VALUES (?, ?, ?) ON CONFLICT(k) DO UPDATE SET issued_at = excluded.issued_at, role = excluded.role",
		sessionKey, rec.IssuedAt.UnixMilli(), string(rec.Role),
	)
	return err
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM session WHERE k = ?", sessionKey)
	return err
}

var _ services.SessionStore = (*SQLiteStore)(nil)
