// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns intermediate linker artifacts into link records by
// matching every discovered reference against the catalog.
package resolve

import (
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/link-engine/internal/catalog"
	"github.com/pdiddy/link-engine/internal/refs"
	"github.com/pdiddy/link-engine/pkg/types"
)

const bookExt = ".txt"

type cached struct {
	match   catalog.Match
	outcome catalog.Outcome
}

// Resolver memoizes catalog resolutions and records every reference that
// failed to resolve. It is safe for concurrent use by book workers.
type Resolver struct {
	index *catalog.Index

	mu            sync.Mutex
	cache         map[string]cached
	notFoundBooks map[string]bool
	notFoundLinks map[string]bool
}

// NewResolver returns a resolver over ix.
func NewResolver(ix *catalog.Index) *Resolver {
	return &Resolver{
		index:         ix,
		cache:         make(map[string]cached),
		notFoundBooks: make(map[string]bool),
		notFoundLinks: make(map[string]bool),
	}
}

// Resolve resolves one raw reference.
func (r *Resolver) Resolve(ref string) (catalog.Match, catalog.Outcome) {
	ref = refs.Normalize(ref)

	r.mu.Lock()
	c, ok := r.cache[ref]
	r.mu.Unlock()
	if ok {
		return c.match, c.outcome
	}

	m, outcome := r.index.Resolve(ref)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[ref] = cached{match: m, outcome: outcome}
	switch outcome {
	case catalog.BookNotFound:
		r.notFoundBooks[refs.Parse(ref).Book()] = true
	case catalog.LinkNotFound:
		r.notFoundLinks[ref] = true
	}
	return m, outcome
}

// Unresolved returns the sorted book tokens and references that did not
// resolve so far.
func (r *Resolver) Unresolved() (books, links []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.notFoundBooks), sortedKeys(r.notFoundLinks)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Records converts an intermediate artifact into "linker" link records,
// ordered by source line and then by position in the artifact.
//
// A citation yields a record only when it carries exactly one reference and
// that reference resolves. The record targets the lowest-numbered matched
// row. Its display reference is the service's, with ":" rendered as ", ";
// when the service gave none it falls back to the common prefix of the
// matched labels, then to the target book.
func Records(artifact types.LinkerArtifact, r *Resolver) []types.LinkRecord {
	lines := make([]int, 0, len(artifact))
	for line := range artifact {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	// Every reference is resolved so the unresolved report covers
	// multi-reference citations too.
	var out []types.LinkRecord
	for _, line := range lines {
		for _, entry := range artifact[line] {
			for ref := range entry.Refs {
				r.Resolve(ref)
			}
			if len(entry.Refs) != 1 {
				continue
			}
			if rec, ok := record(line, entry, r); ok {
				out = append(out, rec)
			}
		}
	}
	return out
}

func record(line int, entry types.LinkerEntry, r *Resolver) (types.LinkRecord, bool) {
	var ref, heRef string
	for k, v := range entry.Refs {
		ref, heRef = k, v
	}

	m, outcome := r.Resolve(ref)
	if outcome != catalog.Resolved || len(m.Rows) == 0 {
		return types.LinkRecord{}, false
	}

	target := m.Rows[0]
	labels := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		if row.Line < target.Line {
			target = row
		}
		labels[i] = row.Label
	}

	display := strings.ReplaceAll(heRef, ":", ", ")
	if display == "" {
		display = refs.CommonLabel(labels)
	}
	if display == "" {
		display = target.Book
	}

	return types.LinkRecord{
		LineIndex1:     line,
		LineIndex2:     target.Line,
		HeRef2:         display,
		Path2:          target.Book + bookExt,
		ConnectionType: types.ConnectionLinker,
		Start:          entry.Start,
		End:            entry.End,
	}, true
}
