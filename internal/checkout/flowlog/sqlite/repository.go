// Package sqlite provides a SQLite-backed implementation of
// flowlog.Repository.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — important because checkout handlers write transitions while a
// funnel query may be reading the same table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evercart/storefront/internal/checkout/flowlog"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps the storefront buildable in minimal container images.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
// The table is append-only: each row is an immutable event in a draft's
// lifecycle. Querying the newest row per draft_id gives the current state.
const schema = `
CREATE TABLE IF NOT EXISTS checkout_logs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Checkout draft identifier. Not UNIQUE: one row per transition.
    draft_id    TEXT NOT NULL,

    -- Lifecycle state at the time this row was written.
    status      TEXT NOT NULL,

    -- Flow step name, e.g. "SelectAddress".
    step        TEXT NOT NULL DEFAULT '',

    -- Rejection message, coupon code or order ID, depending on status.
    detail      TEXT NOT NULL DEFAULT '',

    -- W3C trace_id / span_id from the active OTel span, for joining a log
    -- row with its distributed trace.
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',

    -- RFC3339 stored as TEXT, SQLite idiom.
    updated_at  TEXT NOT NULL
);

-- The most common query: "all transitions for draft X in order".
CREATE INDEX IF NOT EXISTS idx_checkout_logs_draft_id ON checkout_logs(draft_id, updated_at);

-- The observability query: "find the checkout for trace Y".
CREATE INDEX IF NOT EXISTS idx_checkout_logs_trace_id ON checkout_logs(trace_id);
`

// Repository is the SQLite implementation of flowlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
//
//	repo, err := sqlite.Open("./data/checkout.db")
func Open(path string) (*Repository, error) {
	// The pure-Go driver uses _pragma query parameters to configure
	// connection state. WAL enables concurrent readers; busy_timeout waits
	// for locks instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a new flow log entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *flowlog.Entry) error {
	const q = `
		INSERT INTO checkout_logs
			(draft_id, status, step, detail, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.DraftID,
		string(entry.Status),
		entry.Step,
		entry.Detail,
		entry.TraceID,
		entry.SpanID,
		entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save flow log for %q: %w", entry.DraftID, err)
	}
	return nil
}

// GetLatest returns the most recent log entry for a given draft ID, i.e.
// the step the checkout last reached.
func (r *Repository) GetLatest(ctx context.Context, draftID string) (*flowlog.Entry, error) {
	const q = `
		SELECT draft_id, status, step, detail, trace_id, span_id, updated_at
		FROM   checkout_logs
		WHERE  draft_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	row := r.db.QueryRowContext(ctx, q, draftID)

	var entry flowlog.Entry
	var updatedAt string
	err := row.Scan(
		&entry.DraftID,
		&entry.Status,
		&entry.Step,
		&entry.Detail,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: draft %q not found", draftID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", draftID, err)
	}

	entry.UpdatedAt, err = parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}
