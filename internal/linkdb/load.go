// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package linkdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/pkg/types"
)

// Link is one exported row.
type Link struct {
	Artifact       string               `json:"artifact"`
	LineIndex1     int                  `json:"line_index_1"`
	LineIndex2     int                  `json:"line_index_2"`
	HeRef2         string               `json:"heRef_2"`
	Path2          string               `json:"path_2"`
	AbsolutePath   string               `json:"absolute_path,omitempty"`
	ConnectionType types.ConnectionType `json:"connection_type"`
	Start          int                  `json:"start"`
	End            int                  `json:"end"`
}

func (s *Store) syncBooks(ctx context.Context, books []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("clearing books: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books (path, name, title) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rel := range books {
		if _, err := stmt.ExecContext(ctx, rel, path.Base(rel), s.layout.Title(rel)); err != nil {
			return fmt.Errorf("inserting book %s: %w", rel, err)
		}
	}
	return tx.Commit()
}

// load replaces the rows of one artifact and records its modification time.
// It returns the number of links whose target matched no book.
func (s *Store) load(ctx context.Context, artifact string, records []types.LinkRecord, names *corpus.NameIndex, modTime string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE artifact = ?`, artifact); err != nil {
		return 0, fmt.Errorf("deleting old links: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO links (artifact, line_index_1, line_index_2, he_ref_2, path_2, absolute_path, connection_type, start_char, end_char)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	unresolved := 0
	for _, r := range records {
		var abs sql.NullString
		if p, ok := names.Lookup(r.Path2); ok {
			abs = sql.NullString{String: p, Valid: true}
		} else {
			unresolved++
			slog.Debug("link target not in corpus", "artifact", artifact, "path_2", r.Path2)
		}
		if _, err := stmt.ExecContext(ctx,
			artifact, r.LineIndex1, r.LineIndex2, r.HeRef2, r.Path2, abs,
			string(r.ConnectionType), r.Start, r.End,
		); err != nil {
			return 0, fmt.Errorf("inserting link: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO export_status (artifact, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(artifact) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		artifact, modTime,
	); err != nil {
		return 0, fmt.Errorf("updating export status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return unresolved, nil
}

// prune deletes rows of artifacts that were not seen in this export.
func (s *Store) prune(ctx context.Context, seen map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT artifact FROM export_status`)
	if err != nil {
		return 0, fmt.Errorf("listing exported artifacts: %w", err)
	}
	var stale []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			rows.Close()
			return 0, err
		}
		if !seen[a] {
			stale = append(stale, a)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, a := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE artifact = ?`, a); err != nil {
			return 0, fmt.Errorf("pruning %s: %w", a, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM export_status WHERE artifact = ?`, a); err != nil {
			return 0, fmt.Errorf("pruning %s: %w", a, err)
		}
	}
	return len(stale), nil
}

// Links returns the exported rows whose artifact path contains filter, or
// every row when filter is empty, ordered by artifact and source line.
func (s *Store) Links(ctx context.Context, filter string) ([]Link, error) {
	query := `SELECT artifact, line_index_1, line_index_2, COALESCE(he_ref_2, ''), path_2,
		COALESCE(absolute_path, ''), connection_type, COALESCE(start_char, 0), COALESCE(end_char, 0)
		FROM links`
	var args []any
	if filter = strings.TrimSpace(filter); filter != "" {
		query += ` WHERE artifact LIKE ?`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY artifact, line_index_1, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		var ct string
		if err := rows.Scan(&l.Artifact, &l.LineIndex1, &l.LineIndex2, &l.HeRef2, &l.Path2,
			&l.AbsolutePath, &ct, &l.Start, &l.End); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		l.ConnectionType = types.ConnectionType(ct)
		out = append(out, l)
	}
	return out, rows.Err()
}

// BookCount returns the number of rows in the books table.
func (s *Store) BookCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n)
	return n, err
}
