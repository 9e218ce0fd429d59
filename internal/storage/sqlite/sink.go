// Package sqlite writes result sets into a fresh SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	date_created TEXT NOT NULL,
	date_deadline TEXT NOT NULL,
	category TEXT,
	url TEXT NOT NULL,
	description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const insertTender = `
INSERT INTO tenders (title, company, date_created, date_deadline, category, url, description)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Sink owns one database file. The file is only replaced once Save runs,
// so a sink opened for a crawl that never finishes leaves it untouched.
type Sink struct {
	db   *sql.DB
	path string
}

// New validates path without touching any existing database.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("output directory for %s does not exist", path)
	}
	return &Sink{path: path}, nil
}

// Save deletes any database at the sink path, creates a fresh one with the
// tenders table and inserts records in one transaction, in order.
func (s *Sink) Save(ctx context.Context, records []tender.Record) error {
	if err := s.reset(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertTender)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Title,
			rec.Company,
			rec.DateCreated,
			rec.DateDeadline,
			nullable(rec.Category),
			rec.URL,
			nullable(rec.Description),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert tender %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Sink) reset(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		s.db = nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.db = db
	return nil
}

// Close closes the database if Save opened one.
func (s *Sink) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	s.db = nil
	return nil
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
