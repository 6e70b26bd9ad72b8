// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"context"
	"errors"
	"sort"

	"github.com/pdiddy/link-engine/internal/corpus"
)

// ErrDiffFailed marks a change-detection failure. The run is aborted before
// any artifact is touched.
var ErrDiffFailed = errors.New("change detection failed")

// Rename is a book that moved from one path to another.
type Rename struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// ChangeSet is the classified work of one run. Every path is an in-scope
// book, corpus-relative and clean.
type ChangeSet struct {
	// Added holds new books, including books moved in from outside the
	// watched scope.
	Added []string
	// Modified holds books whose content changed in place.
	Modified []string
	// Deleted holds removed books, including books moved out of scope.
	Deleted []string
	// Renamed holds moves with both ends inside the watched scope.
	Renamed []Rename
}

// Relink returns every path whose links must be recomputed, sorted.
func (cs ChangeSet) Relink() []string {
	return sortedUnique(append(append([]string(nil), cs.Added...), cs.Modified...))
}

// Empty reports whether the change set holds no work.
func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0 && len(cs.Renamed) == 0
}

// Detector finds the books that changed since the last run.
type Detector interface {
	Detect(ctx context.Context) (ChangeSet, error)
}

// Classify filters raw, possibly out-of-scope changes down to the watched
// scope. A rename with both ends in scope stays a rename; a move into scope
// is an addition and a move out of scope is a deletion.
func Classify(l *corpus.Layout, raw ChangeSet) ChangeSet {
	var cs ChangeSet
	for _, p := range raw.Added {
		if l.InScope(p) {
			cs.Added = append(cs.Added, corpus.Clean(p))
		}
	}
	for _, p := range raw.Modified {
		if l.InScope(p) {
			cs.Modified = append(cs.Modified, corpus.Clean(p))
		}
	}
	for _, p := range raw.Deleted {
		if l.InScope(p) {
			cs.Deleted = append(cs.Deleted, corpus.Clean(p))
		}
	}
	for _, r := range raw.Renamed {
		from, to := corpus.Clean(r.From), corpus.Clean(r.To)
		fromIn, toIn := l.InScope(from), l.InScope(to)
		switch {
		case fromIn && toIn:
			cs.Renamed = append(cs.Renamed, Rename{From: from, To: to})
		case toIn:
			cs.Added = append(cs.Added, to)
		case fromIn:
			cs.Deleted = append(cs.Deleted, from)
		}
	}
	return cs.normalize()
}

// Union merges change sets from several detectors.
func Union(sets ...ChangeSet) ChangeSet {
	var out ChangeSet
	for _, cs := range sets {
		out.Added = append(out.Added, cs.Added...)
		out.Modified = append(out.Modified, cs.Modified...)
		out.Deleted = append(out.Deleted, cs.Deleted...)
		out.Renamed = append(out.Renamed, cs.Renamed...)
	}
	return out.normalize()
}

// normalize sorts and deduplicates every list. A rename's destination is
// dropped from Added and its source from Deleted, and a path both added and
// modified is kept only as added.
func (cs ChangeSet) normalize() ChangeSet {
	srcs := make(map[string]bool)
	dsts := make(map[string]bool)
	var renamed []Rename
	for _, r := range cs.Renamed {
		if srcs[r.From] || dsts[r.To] {
			continue
		}
		srcs[r.From], dsts[r.To] = true, true
		renamed = append(renamed, r)
	}
	sort.Slice(renamed, func(i, j int) bool { return renamed[i].From < renamed[j].From })

	added := without(cs.Added, dsts)
	addedSet := make(map[string]bool, len(added))
	for _, p := range added {
		addedSet[p] = true
	}
	return ChangeSet{
		Added:    added,
		Modified: without(cs.Modified, addedSet),
		Deleted:  without(cs.Deleted, srcs),
		Renamed:  renamed,
	}
}

func without(paths []string, drop map[string]bool) []string {
	var out []string
	for _, p := range sortedUnique(paths) {
		if !drop[p] {
			out = append(out, p)
		}
	}
	return out
}

func sortedUnique(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// multiDetector unions the change sets of several detectors.
type multiDetector []Detector

// Reconcile returns a detector reporting the union of every detector's
// changes. Pairing a git detector with a scan detector retries books a
// previous run failed on, which a revision diff alone no longer shows.
func Reconcile(detectors ...Detector) Detector {
	return multiDetector(detectors)
}

func (m multiDetector) Detect(ctx context.Context) (ChangeSet, error) {
	sets := make([]ChangeSet, 0, len(m))
	for _, d := range m {
		cs, err := d.Detect(ctx)
		if err != nil {
			return ChangeSet{}, err
		}
		sets = append(sets, cs)
	}
	return Union(sets...), nil
}
