package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTable = `
CREATE TABLE IF NOT EXISTS enhance_diagnostics (
    request_id     TEXT PRIMARY KEY,
    recorded_at    TIMESTAMPTZ NOT NULL,
    provider       TEXT NOT NULL DEFAULT '',
    model          TEXT NOT NULL DEFAULT '',
    outcome        TEXT NOT NULL,
    reason         TEXT NOT NULL DEFAULT '',
    error          TEXT NOT NULL DEFAULT '',
    raw_length     INTEGER NOT NULL DEFAULT 0,
    cleaned_length INTEGER NOT NULL DEFAULT 0,
    raw_head       TEXT NOT NULL DEFAULT '',
    attempted_text TEXT NOT NULL DEFAULT '',
    issues         TEXT[] NOT NULL DEFAULT '{}',
    duration_ms    BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS enhance_diagnostics_recorded_at_idx ON enhance_diagnostics (recorded_at DESC);
`

// execer is the part of *pgxpool.Pool the sink uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink stores every record in the enhance_diagnostics table.
type PostgresSink struct {
	db    execer
	close func()

	mu          sync.Mutex
	schemaReady bool
}

// NewPostgresSink connects to dsn. The schema is created on first Record.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSink{db: pool, close: pool.Close}, nil
}

// ensureSchema runs createTable until it succeeds once.
func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresSink) Record(ctx context.Context, rec Record) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	issues := rec.Issues
	if issues == nil {
		issues = []string{}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO enhance_diagnostics
		    (request_id, recorded_at, provider, model, outcome, reason, error,
		     raw_length, cleaned_length, raw_head, attempted_text, issues, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (request_id) DO NOTHING
	`, rec.RequestID, rec.At, rec.Provider, rec.Model, rec.Outcome, rec.Reason, rec.Error,
		rec.RawLength, rec.CleanedLength, rec.RawHead, rec.AttemptedText, issues, rec.DurationMS)
	return err
}

func (s *PostgresSink) Close() {
	if s.close != nil {
		s.close()
	}
}
