// Package sqlite persists the job history ledger in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/assetsmith/assetsmith/internal/history"
	"github.com/assetsmith/assetsmith/internal/history/sqlite/migrations"
	"github.com/assetsmith/assetsmith/internal/platform/errors"
	"github.com/assetsmith/assetsmith/internal/platform/storage/sqlitemigrate"
)

// Store implements history.Store on a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ history.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "create history directory", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "open history database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.CodeStorage, "ping history database", err)
	}
	if err := sqlitemigrate.Apply(db, migrations.FS); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.CodeStorage, "migrate history database", err)
	}
	return &Store{db: db}, nil
}

// Append inserts one terminal job record.
func (s *Store) Append(ctx context.Context, rec history.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, job_id, prompt, generation_type, status, output_path, warnings, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.JobID, rec.Prompt, rec.GenerationType, rec.Status,
		rec.OutputPath, rec.Warnings, rec.ElapsedMS, rec.CreatedAt.UnixMilli())
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "insert job record", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, prompt, generation_type, status, output_path, warnings, elapsed_ms, created_at
		FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "query job records", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var rec history.Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.Prompt, &rec.GenerationType,
			&rec.Status, &rec.OutputPath, &rec.Warnings, &rec.ElapsedMS, &createdAt); err != nil {
			return nil, errors.Wrap(errors.CodeStorage, "scan job record", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "iterate job records", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
