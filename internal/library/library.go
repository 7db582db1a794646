// Package library keeps a SQLite index of downloaded works and their runs.
package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

var ErrSchemaMismatch = errors.New("library schema version mismatch")

// Entry is one work as last recorded.
type Entry struct {
	SourceURL   string
	Title       string
	Author      string
	Destination string
	Chapters    int
	UpdatedAt   time.Time
}

// Run is one download attempt of a work.
type Run struct {
	ID        string
	SourceURL string
	StartedAt time.Time
	Completed int
	Skipped   int
	Failed    int
}

type Library struct {
	db   *sql.DB
	path string
}

// Open creates or opens the library database at path.
func Open(ctx context.Context, path string) (*Library, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("library dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

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

	l := &Library{db: db, path: path}
	if err := l.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return l, nil
}

func (l *Library) Path() string {
	return l.path
}

func (l *Library) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	return l.db.Close()
}

func (l *Library) initSchema(ctx context.Context) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return l.createSchema(ctx)
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild it)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}

	return nil
}

func (l *Library) createSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
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

// Record upserts the work and appends the run in one transaction.
func (l *Library) Record(ctx context.Context, e Entry, run Run) error {
	if strings.TrimSpace(e.SourceURL) == "" {
		return errors.New("record: empty source url")
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = e.UpdatedAt
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO works (source_url, title, author, destination, chapters, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(source_url) DO UPDATE SET
            title = excluded.title,
            author = excluded.author,
            destination = excluded.destination,
            chapters = excluded.chapters,
            updated_at = excluded.updated_at`,
		e.SourceURL, e.Title, e.Author, e.Destination, e.Chapters, formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert work: %w", err)
	}

	if run.ID != "" {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO runs (id, source_url, started_at, completed, skipped, failed)
            VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, e.SourceURL, formatTime(run.StartedAt), run.Completed, run.Skipped, run.Failed,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}

	return nil
}

func (l *Library) SearchByTitle(ctx context.Context, keyword string) ([]Entry, error) {
	return l.query(ctx, "WHERE title LIKE ? ESCAPE '\\'", likePattern(keyword))
}

func (l *Library) SearchByAuthor(ctx context.Context, keyword string) ([]Entry, error) {
	return l.query(ctx, "WHERE author LIKE ? ESCAPE '\\'", likePattern(keyword))
}

// Search matches keyword against title or author.
func (l *Library) Search(ctx context.Context, keyword string) ([]Entry, error) {
	p := likePattern(keyword)

	return l.query(ctx, "WHERE title LIKE ? ESCAPE '\\' OR author LIKE ? ESCAPE '\\'", p, p)
}

func (l *Library) List(ctx context.Context) ([]Entry, error) {
	return l.query(ctx, "")
}

func (l *Library) Get(ctx context.Context, sourceURL string) (*Entry, error) {
	list, err := l.query(ctx, "WHERE source_url = ?", sourceURL)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	return &list[0], nil
}

func (l *Library) Runs(ctx context.Context, sourceURL string) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, source_url, started_at, completed, skipped, failed
        FROM runs WHERE source_url = ? ORDER BY started_at DESC, id`, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &r.SourceURL, &started, &r.Completed, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		out = append(out, r)
	}

	return out, rows.Err()
}

func (l *Library) query(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT source_url, title, author, destination, chapters, updated_at
        FROM works `+where+`
        ORDER BY title COLLATE NOCASE, source_url`, args...)
	if err != nil {
		return nil, fmt.Errorf("query works: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			updated string
		)
		if err := rows.Scan(&e.SourceURL, &e.Title, &e.Author, &e.Destination, &e.Chapters, &updated); err != nil {
			return nil, fmt.Errorf("scan work: %w", err)
		}
		e.UpdatedAt = parseTime(updated)
		out = append(out, e)
	}

	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(keyword)) + "%"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
