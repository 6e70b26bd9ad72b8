// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tracker finds the books that changed since the last run and
// drives their artifacts to match: relinking added and modified books,
// relocating renamed ones, and removing deleted ones.
//
// The hash store is the only record of completed work. A book's entry is
// committed only after its artifacts are fully written, and the store is
// saved once when the run settles, so an interrupted or failed run is
// repaired by simply running again.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/link-engine/internal/corpus"
)

// DefaultWorkers caps concurrent book processing when no limit is set.
const DefaultWorkers = 5

// ErrArtifactCollision is returned for a book whose artifact paths are
// shared with another book of the same file name.
var ErrArtifactCollision = errors.New("artifact shared with another book")

// Processor applies one change to a book's artifacts.
type Processor interface {
	// Process relinks the book at rel and rewrites its artifacts. On error
	// no partial artifact may remain.
	Process(ctx context.Context, rel string) error
	// Remove deletes the artifacts owned by the book at rel.
	Remove(rel string) error
	// Relocate moves the artifacts of a renamed book.
	Relocate(from, to string) error
}

// Failure is a book the run could not settle.
type Failure struct {
	Path string
	Err  error
}

// Summary tallies a run.
type Summary struct {
	Linked    int
	Relocated int
	Removed   int
	Failures  []Failure
}

// Total returns the number of books the run touched.
func (s Summary) Total() int {
	return s.Linked + s.Relocated + s.Removed + len(s.Failures)
}

// HasFailures reports whether any book failed.
func (s Summary) HasFailures() bool { return len(s.Failures) > 0 }

// Tracker runs one incremental update.
type Tracker struct {
	Layout    *corpus.Layout
	Store     *HashStore
	Detector  Detector
	Processor Processor
	Workers   int
}

type linked struct {
	rel  string
	hash string
}

// Run detects changes and applies them, printing one line per book to w.
// Renames and deletions are applied first, one at a time, then changed
// books are relinked by a bounded worker pool. A detection error aborts
// the run before any artifact is touched. A cancelled context stops
// scheduling new books; books that completed are still committed.
func (t *Tracker) Run(ctx context.Context, w io.Writer) (Summary, error) {
	var sum Summary

	cs, err := t.Detector.Detect(ctx)
	if err != nil {
		return sum, err
	}
	evicted := t.outOfScopeKeys()
	if cs.Empty() && len(evicted) == 0 {
		fmt.Fprintln(w, "no changes")
		return sum, nil
	}

	relink := cs.Relink()
	queued := make(map[string]bool, len(relink))
	for _, rel := range relink {
		queued[rel] = true
	}

	for _, r := range cs.Renamed {
		if err := t.Processor.Relocate(r.From, r.To); err != nil {
			fmt.Fprintf(w, "failed  %s -> %s: %v\n", r.From, r.To, err)
			sum.Failures = append(sum.Failures, Failure{Path: r.To, Err: err})
			continue
		}
		had := t.Store.Rename(r.From, r.To)
		sum.Relocated++
		fmt.Fprintf(w, "moved   %s -> %s\n", r.From, r.To)

		if !had || t.contentChanged(r.To) {
			if !queued[r.To] {
				queued[r.To] = true
				relink = append(relink, r.To)
			}
		}
	}

	for _, rel := range evicted {
		t.Store.Delete(rel)
		sum.Removed++
		fmt.Fprintf(w, "removed %s (outside watched scope)\n", rel)
	}

	for _, rel := range cs.Deleted {
		if err := t.Processor.Remove(rel); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			sum.Failures = append(sum.Failures, Failure{Path: rel, Err: err})
			continue
		}
		t.Store.Delete(rel)
		sum.Removed++
		fmt.Fprintf(w, "removed %s\n", rel)
	}

	relink, collisions := t.claimArtifacts(relink)
	for _, f := range collisions {
		fmt.Fprintf(w, "failed  %s: %v\n", f.Path, f.Err)
	}
	sum.Failures = append(sum.Failures, collisions...)

	done, failures := t.relink(ctx, relink, w)
	for _, l := range done {
		t.Store.Set(l.rel, l.hash)
	}
	sum.Linked = len(done)
	sum.Failures = append(sum.Failures, failures...)

	if err := t.Store.Save(); err != nil {
		return sum, err
	}

	fmt.Fprintf(w, "\nRun summary: %d linked, %d moved, %d removed, %d failed (total: %d)\n",
		sum.Linked, sum.Relocated, sum.Removed, len(sum.Failures), sum.Total())

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

// outOfScopeKeys returns hash-store entries no longer inside the watched
// scope. They own no artifact under the current layout.
func (t *Tracker) outOfScopeKeys() []string {
	var out []string
	for _, rel := range t.Store.Keys() {
		if !t.Layout.InScope(rel) {
			out = append(out, rel)
		}
	}
	return out
}

// claimArtifacts splits books into those that own their artifact paths and
// failures for those sharing a path with another queued or committed book.
func (t *Tracker) claimArtifacts(books []string) ([]string, []Failure) {
	queued := make(map[string]bool, len(books))
	for _, rel := range books {
		queued[rel] = true
	}

	owners := make(map[string][]string)
	claim := func(rel string) {
		for _, artifact := range t.artifacts(rel) {
			owners[artifact] = append(owners[artifact], rel)
		}
	}
	for _, rel := range books {
		claim(rel)
	}
	for _, rel := range t.Store.Keys() {
		if !queued[rel] && t.Layout.InScope(rel) {
			claim(rel)
		}
	}

	var free []string
	var failures []Failure
	for _, rel := range books {
		var shared string
		var others []string
		for _, artifact := range t.artifacts(rel) {
			for _, o := range owners[artifact] {
				if o != rel {
					shared = artifact
					others = append(others, o)
				}
			}
		}
		if len(others) == 0 {
			free = append(free, rel)
			continue
		}
		failures = append(failures, Failure{
			Path: rel,
			Err:  fmt.Errorf("%w: %s also belongs to %s", ErrArtifactCollision, shared, strings.Join(sortedUnique(others), ", ")),
		})
	}
	return free, failures
}

func (t *Tracker) artifacts(rel string) []string {
	var out []string
	if p, err := t.Layout.LinkerArtifact(rel); err == nil {
		out = append(out, p)
	}
	if p, err := t.Layout.LinksArtifact(rel); err == nil {
		out = append(out, p)
	}
	return out
}

func (t *Tracker) contentChanged(rel string) bool {
	hash, err := HashFile(t.Layout.Abs(rel))
	if err != nil {
		return true
	}
	prev, _ := t.Store.Get(rel)
	return prev != hash
}

// relink processes books concurrently and returns the ones that finished.
// Worker errors are collected per book rather than returned to the group,
// so one failing book does not cancel the others.
func (t *Tracker) relink(ctx context.Context, books []string, w io.Writer) ([]linked, []Failure) {
	workers := t.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu       sync.Mutex
		done     []linked
		failures []Failure
	)
	fail := func(rel string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, Failure{Path: rel, Err: err})
		fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, rel := range books {
		if ctx.Err() != nil {
			fail(rel, ctx.Err())
			continue
		}
		g.Go(func() error {
			hash, err := HashFile(t.Layout.Abs(rel))
			if err != nil {
				fail(rel, err)
				return nil
			}
			if err := t.Processor.Process(ctx, rel); err != nil {
				fail(rel, err)
				return nil
			}
			mu.Lock()
			done = append(done, linked{rel: rel, hash: hash})
			fmt.Fprintf(w, "linked  %s\n", rel)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	slog.Debug("relink finished", "books", len(books), "linked", len(done), "failed", len(failures))
	return done, failures
}
