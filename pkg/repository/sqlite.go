package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// SQLite stores sessions in a single table keyed by session id
type SQLite struct {
	db   *sql.DB
	opts options
}

// NewSQLite opens or creates a SQLite database at path
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create db dir", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open db", goerr.V("path", path))
	}

	s := &SQLite{
		db:   db,
		opts: newOptions(opts...),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		updated_at INTEGER NOT NULL,
		data       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return goerr.Wrap(err, "failed to migrate sessions table")
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Load(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, string(id)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("session_id", id))
	}

	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V("session_id", id))
	}
	if s.opts.expired(&session) {
		return nil, nil
	}
	return &session, nil
}

func (s *SQLite) Save(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.New("session id is required")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return goerr.Wrap(err, "failed to encode session", goerr.V("session_id", session.ID))
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO sessions (id, updated_at, data) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, data = excluded.data`,
		string(session.ID), session.UpdatedAt.UnixNano(), string(raw))
	if err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V("session_id", session.ID))
	}
	return nil
}

func (s *SQLite) Cleanup(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, now.Add(-s.opts.ttl).UnixNano())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete expired sessions")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count deleted sessions")
	}
	return int(n), nil
}
