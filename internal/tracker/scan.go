// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdiddy/link-engine/internal/corpus"
)

// ScanDetector walks every watched directory and compares each book's
// content hash with the store. Books absent from disk but present in the
// store are deleted; a deleted book and an added book with the same hash
// are a rename.
type ScanDetector struct {
	layout *corpus.Layout
	store  *HashStore
}

// NewScanDetector returns a detector comparing the corpus against store.
func NewScanDetector(l *corpus.Layout, store *HashStore) *ScanDetector {
	return &ScanDetector{layout: l, store: store}
}

func (s *ScanDetector) Detect(ctx context.Context) (ChangeSet, error) {
	books, err := s.layout.Books()
	if err != nil {
		return ChangeSet{}, fmt.Errorf("%w: %w", ErrDiffFailed, err)
	}

	var raw ChangeSet
	onDisk := make(map[string]bool, len(books))
	addedByHash := make(map[string][]string)
	for _, rel := range books {
		if err := ctx.Err(); err != nil {
			return ChangeSet{}, err
		}
		onDisk[rel] = true
		hash, err := HashFile(s.layout.Abs(rel))
		if err != nil {
			return ChangeSet{}, fmt.Errorf("%w: %w", ErrDiffFailed, err)
		}
		prev, ok := s.store.Get(rel)
		switch {
		case !ok:
			raw.Added = append(raw.Added, rel)
			addedByHash[hash] = append(addedByHash[hash], rel)
		case prev != hash:
			raw.Modified = append(raw.Modified, rel)
		}
	}

	// Keys outside the scope are evicted by Tracker.Run.
	for _, rel := range s.store.Keys() {
		if onDisk[rel] || !s.layout.InScope(rel) {
			continue
		}
		hash, _ := s.store.Get(rel)
		if cands := addedByHash[hash]; len(cands) > 0 {
			raw.Renamed = append(raw.Renamed, Rename{From: rel, To: cands[0]})
			addedByHash[hash] = cands[1:]
			continue
		}
		raw.Deleted = append(raw.Deleted, rel)
	}

	cs := Classify(s.layout, raw)
	slog.Debug("scan changes detected",
		"books", len(books),
		"added", len(cs.Added), "modified", len(cs.Modified),
		"deleted", len(cs.Deleted), "renamed", len(cs.Renamed))
	return cs, nil
}
