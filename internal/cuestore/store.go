// Package cuestore exports synthesized cues to a SQLite database so a run
// can be queried after the track is written.
package cuestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rec2vtt/internal/cue"
	"rec2vtt/internal/timestamp"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("cuestore: schema version mismatch")

// Store manages cue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run describes one conversion.
type Run struct {
	ID            string
	Recording     string
	Specification string
	MessageID     int32
	MessageName   string
	StartedAt     time.Time
	FinishedAt    time.Time
	CueCount      int
}

// Open initializes or connects to the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RunWriter appends the cues of one run inside a single transaction.
type RunWriter struct {
	tx    *sql.Tx
	stmt  *sql.Stmt
	runID string
	seq   int
}

// StartRun records run and returns a writer for its cues. Nothing is
// visible to readers until Commit.
func (s *Store) StartRun(ctx context.Context, run Run) (*RunWriter, error) {
	if strings.TrimSpace(run.ID) == "" {
		return nil, errors.New("cuestore: run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run tx: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, recording, specification, message_id, message_name, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Recording, run.Specification, run.MessageID, run.MessageName,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cues (run_id, seq, start_us, end_us, sent_us, label, body)
         VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare cue insert: %w", err)
	}
	return &RunWriter{tx: tx, stmt: stmt, runID: run.ID}, nil
}

// Add stores one cue.
func (w *RunWriter) Add(ctx context.Context, c cue.Cue) error {
	_, err := w.stmt.ExecContext(ctx,
		w.runID,
		w.seq,
		timestamp.ToMicroseconds(c.Start),
		timestamp.ToMicroseconds(c.End),
		timestamp.ToMicroseconds(c.Sent),
		c.Label,
		strings.Join(c.Lines, "\n"),
	)
	if err != nil {
		return fmt.Errorf("insert cue %d: %w", w.seq, err)
	}
	w.seq++
	return nil
}

// Commit finalizes the run row and commits all cues.
func (w *RunWriter) Commit(ctx context.Context) error {
	defer w.stmt.Close()
	_, err := w.tx.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, cue_count = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), w.seq, w.runID,
	)
	if err != nil {
		_ = w.tx.Rollback()
		return fmt.Errorf("finish run: %w", err)
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Rollback discards the run. It is safe to call after Commit.
func (w *RunWriter) Rollback() error {
	_ = w.stmt.Close()
	if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recording, specification, message_id, message_name, started_at,
                COALESCE(finished_at, ''), cue_count
         FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Recording, &r.Specification, &r.MessageID, &r.MessageName, &started, &finished, &r.CueCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Cues returns the cues of a run in emission order.
func (s *Store) Cues(ctx context.Context, runID string) ([]cue.Cue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_us, end_us, sent_us, label, body FROM cues WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cues: %w", err)
	}
	defer rows.Close()

	var cues []cue.Cue
	for rows.Next() {
		var (
			start, end, sent int64
			c                cue.Cue
			body             string
		)
		if err := rows.Scan(&start, &end, &sent, &c.Label, &body); err != nil {
			return nil, fmt.Errorf("scan cue: %w", err)
		}
		c.Start = timestamp.FromMicroseconds(start)
		c.End = timestamp.FromMicroseconds(end)
		c.Sent = timestamp.FromMicroseconds(sent)
		if body != "" {
			c.Lines = strings.Split(body, "\n")
		}
		cues = append(cues, c)
	}
	return cues, rows.Err()
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
