// Package sqlite provides the SQLite-backed session store. A single-row
// table stands in for the browser's durable local storage: the signed-in
// user and bearer token survive restarts, nothing else does.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evercart/storefront/internal/session"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    -- Single-row table: there is exactly one signed-in customer per
    -- storefront instance, like one browser profile.
    id        INTEGER PRIMARY KEY CHECK (id = 1),
    user_id   TEXT NOT NULL,
    token     TEXT NOT NULL,
    saved_at  TEXT NOT NULL
);
`

var _ session.Store = (*Store)(nil)

// Store is the SQLite implementation of session.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the session database at the given path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (*session.Session, error) {
	const q = `SELECT user_id, token, saved_at FROM sessions WHERE id = 1`

	var sess session.Session
	var savedAt string
	err := s.db.QueryRowContext(ctx, q).Scan(&sess.UserID, &sess.Token, &savedAt)
	if err == sql.ErrNoRows {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load session: %w", err)
	}

	sess.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse saved_at %q: %w", savedAt, err)
	}
	return &sess, nil
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	const q = `
		INSERT INTO sessions (id, user_id, token, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id  = excluded.user_id,
			token    = excluded.token,
			saved_at = excluded.saved_at`

	_, err := s.db.ExecContext(ctx, q,
		sess.UserID,
		sess.Token,
		sess.SavedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("sqlite: clear session: %w", err)
	}
	return nil
}
