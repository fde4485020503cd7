// Package sqlite keeps the saga log in a local SQLite file, one row per
// transition. The database runs in WAL mode so the CLI can read it while a
// server appends.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS saga_entries (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    saga_id      TEXT    NOT NULL,
    status       TEXT    NOT NULL,
    step         TEXT    NOT NULL DEFAULT '',
    payload      TEXT,
    errors       TEXT,
    trace_id     TEXT    NOT NULL DEFAULT '',
    span_id      TEXT    NOT NULL DEFAULT '',
    recorded_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saga_entries_saga ON saga_entries(saga_id, seq);
CREATE INDEX IF NOT EXISTS idx_saga_entries_trace ON saga_entries(trace_id);
`

var (
	_ sagalog.Repository = (*Repository)(nil)
	_ sagalog.Reader     = (*Repository)(nil)
)

type Repository struct {
	db *sql.DB
}

// Open creates the database file if needed and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Append(ctx context.Context, e sagalog.Entry) error {
	var errs sql.NullString
	if len(e.Errors) > 0 {
		b, err := json.Marshal(e.Errors)
		if err != nil {
			return fmt.Errorf("sqlite: encode errors for %q: %w", e.SagaID, err)
		}
		errs = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saga_entries (saga_id, status, step, payload, errors, trace_id, span_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SagaID, string(e.Status), e.Step,
		sql.NullString{String: e.Payload, Valid: e.Payload != ""},
		errs, e.TraceID, e.SpanID, e.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append entry for %q: %w", e.SagaID, err)
	}
	return nil
}

const selectEntries = `
	SELECT saga_id, status, step, payload, errors, trace_id, span_id, recorded_at
	FROM saga_entries
	WHERE saga_id = ?`

func (r *Repository) Latest(ctx context.Context, sagaID string) (sagalog.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectEntries+` ORDER BY seq DESC LIMIT 1`, sagaID))
	if errors.Is(err, sql.ErrNoRows) {
		return sagalog.Entry{}, fmt.Errorf("%w: %q", sagalog.ErrNotFound, sagaID)
	}
	if err != nil {
		return sagalog.Entry{}, fmt.Errorf("sqlite: latest entry for %q: %w", sagaID, err)
	}
	return e, nil
}

func (r *Repository) History(ctx context.Context, sagaID string) ([]sagalog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+` ORDER BY seq`, sagaID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history of %q: %w", sagaID, err)
	}
	defer rows.Close()

	var out []sagalog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: history of %q: %w", sagaID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (sagalog.Entry, error) {
	var (
		e               sagalog.Entry
		payload, errs   sql.NullString
		recordedAtNanos int64
	)
	err := s.Scan(&e.SagaID, &e.Status, &e.Step, &payload, &errs, &e.TraceID, &e.SpanID, &recordedAtNanos)
	if err != nil {
		return sagalog.Entry{}, err
	}
	e.Payload = payload.String
	if errs.Valid {
		if err := json.Unmarshal([]byte(errs.String), &e.Errors); err != nil {
			return sagalog.Entry{}, fmt.Errorf("decode errors column: %w", err)
		}
	}
	e.At = time.Unix(0, recordedAtNanos).UTC()
	return e, nil
}
