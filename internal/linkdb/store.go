// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package linkdb exports the final link artifacts of the corpus into a
// SQLite database for downstream readers. Each link's target file name is
// resolved to the corpus path of the book holding it.
package linkdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/internal/merge"
)

// Store manages the link database.
type Store struct {
	db     *sql.DB
	layout *corpus.Layout
}

// Open opens or creates the database at dbPath and ensures its schema.
func Open(dbPath string, l *corpus.Layout) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, layout: l}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			path TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			title TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_name ON books(name)`,
		`CREATE TABLE IF NOT EXISTS links (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact TEXT NOT NULL,
			line_index_1 INTEGER NOT NULL,
			line_index_2 INTEGER NOT NULL,
			he_ref_2 TEXT,
			path_2 TEXT NOT NULL,
			absolute_path TEXT,
			connection_type TEXT NOT NULL,
			start_char INTEGER,
			end_char INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_artifact ON links(artifact)`,
		`CREATE INDEX IF NOT EXISTS idx_links_path_2 ON links(path_2)`,
		`CREATE TABLE IF NOT EXISTS export_status (
			artifact TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// ExportSummary holds counts from an export run.
type ExportSummary struct {
	Exported int
	Updated  int
	Skipped  int
	Pruned   int
	Failed   int
	// Unresolved counts links whose target file name matched no book.
	Unresolved int
}

// Total returns the number of artifacts visited.
func (s ExportSummary) Total() int {
	return s.Exported + s.Updated + s.Skipped + s.Failed
}

// HasFailures reports whether any artifact failed to export.
func (s ExportSummary) HasFailures() bool { return s.Failed > 0 }

// Export refreshes the books table from the corpus and loads every final
// link artifact whose modification time changed since the last export.
// Rows of artifacts that no longer exist are pruned.
func (s *Store) Export(ctx context.Context, w io.Writer) (ExportSummary, error) {
	var summary ExportSummary

	books, err := s.layout.Books()
	if err != nil {
		return summary, err
	}
	names := corpus.IndexNames(books)
	for _, d := range names.Duplicates() {
		fmt.Fprintf(w, "warning: duplicate book name %s (%s)\n", d.Name, strings.Join(d.Paths, ", "))
	}
	if err := s.syncBooks(ctx, books); err != nil {
		return summary, err
	}

	seen := make(map[string]bool)
	for _, dir := range s.layout.LinksDirs() {
		artifacts, err := s.layout.Artifacts(dir)
		if err != nil {
			return summary, err
		}
		for _, rel := range artifacts {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if !strings.HasSuffix(path.Base(rel), "_links.json") {
				continue
			}
			seen[rel] = true
			s.exportOne(ctx, rel, names, &summary, w)
		}
	}

	pruned, err := s.prune(ctx, seen)
	if err != nil {
		return summary, err
	}
	summary.Pruned = pruned

	fmt.Fprintf(w, "\nexported: %d, updated: %d, skipped: %d, pruned: %d, failed: %d\n",
		summary.Exported, summary.Updated, summary.Skipped, summary.Pruned, summary.Failed)
	return summary, nil
}

func (s *Store) exportOne(ctx context.Context, rel string, names *corpus.NameIndex, summary *ExportSummary, w io.Writer) {
	info, err := os.Stat(s.layout.Abs(rel))
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
		summary.Failed++
		return
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM export_status WHERE artifact = ?`, rel,
	).Scan(&stored)
	if err == nil && stored == modTime {
		fmt.Fprintf(w, "skipped %s\n", rel)
		summary.Skipped++
		return
	}
	isUpdate := err == nil

	records, err := merge.Read(s.layout.Abs(rel))
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
		summary.Failed++
		return
	}

	unresolved, err := s.load(ctx, rel, records, names, modTime)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
		summary.Failed++
		return
	}
	summary.Unresolved += unresolved

	if isUpdate {
		fmt.Fprintf(w, "updated %s (%d links)\n", rel, len(records))
		summary.Updated++
	} else {
		fmt.Fprintf(w, "exported %s (%d links)\n", rel, len(records))
		summary.Exported++
	}
}
