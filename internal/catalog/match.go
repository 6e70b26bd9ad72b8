// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"slices"
	"sort"

	"github.com/pdiddy/link-engine/internal/refs"
)

// Outcome classifies a resolution attempt.
type Outcome int

const (
	// Resolved means at least one catalog row matched.
	Resolved Outcome = iota
	// BookNotFound means the reference's leading token is absent from the catalog.
	BookNotFound
	// LinkNotFound means the book exists but no row matched the locator.
	LinkNotFound
)

// String returns the outcome name used in reports.
func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case BookNotFound:
		return "book_not_found"
	case LinkNotFound:
		return "link_not_found"
	default:
		return "unknown"
	}
}

// Match is the set of catalog rows a raw reference resolved to. Labels are
// already projected to the depth of the matched address.
type Match struct {
	Ref  string
	Rows []Entry
}

// Resolve resolves a raw reference. A reference published verbatim in the
// catalog resolves directly; otherwise it is parsed and matched with
// MatchRange when it carries an end locator and MatchExact when it does not.
// A single-location match yields that location's first row; a range match
// yields every row of every matched location.
func (ix *Index) Resolve(raw string) (Match, Outcome) {
	raw = refs.Normalize(raw)
	m := Match{Ref: raw}

	if direct := ix.Direct(raw); len(direct) > 0 {
		for _, e := range direct {
			e.Label = refs.ExpandLabel(e.Label)
			m.Rows = append(m.Rows, e)
		}
		return m, Resolved
	}

	q := refs.Parse(raw)
	if !ix.HasBook(q.Book()) {
		return m, BookNotFound
	}

	if q.IsRange() {
		for _, addr := range ix.MatchRange(q) {
			m.Rows = append(m.Rows, ix.projected(addr)...)
		}
	} else if best := ix.MatchExact(q); len(best) > 0 {
		if rows := ix.projected(best[0]); len(rows) > 0 {
			m.Rows = rows[:1]
		}
	}
	if len(m.Rows) == 0 {
		return m, LinkNotFound
	}
	return m, Resolved
}

func (ix *Index) projected(addr refs.Address) []Entry {
	rows := ix.Rows(addr)
	out := make([]Entry, len(rows))
	for i, e := range rows {
		e.Label = refs.ProjectLabel(e.Label, len(addr.Start))
		out[i] = e
	}
	return out
}

// MatchExact finds catalog addresses for a single-location query.
//
// Tier 1 keeps addresses whose FirstPart equals the query's and whose start
// locator agrees with the query's over their common length; the deepest
// locators win, in ascending locator order. Tier 2 runs only when tier 1 is
// empty and relaxes FirstPart equality to hierarchical containment in either
// direction; the longest FirstPart wins, then the deepest locator.
func (ix *Index) MatchExact(q refs.Address) []refs.Address {
	return ix.match(q, func(c refs.Address) bool {
		return samePrefix(c.Start, q.Start)
	})
}

// MatchRange finds catalog addresses for a range query. It has the same
// tiers as MatchExact but tests whether an address's start locator lies in
// [q.Start, q.End] under component-wise ordering truncated to the common
// length.
func (ix *Index) MatchRange(q refs.Address) []refs.Address {
	return ix.match(q, func(c refs.Address) bool {
		return inRange(c.Start, q.Start, q.End)
	})
}

func (ix *Index) match(q refs.Address, locates func(refs.Address) bool) []refs.Address {
	pool := ix.byBook[q.Book()]

	var tier []refs.Address
	for _, c := range pool {
		if slices.Equal(c.FirstPart, q.FirstPart) && locates(c) {
			tier = append(tier, c)
		}
	}
	if len(tier) > 0 {
		return deepest(tier)
	}

	for _, c := range pool {
		if samePrefix(c.FirstPart, q.FirstPart) && locates(c) {
			tier = append(tier, c)
		}
	}
	if len(tier) == 0 {
		return nil
	}
	return deepest(longestFirstPart(tier))
}

// deepest keeps the addresses with the longest start locator, sorted
// ascending by locator.
func deepest(addrs []refs.Address) []refs.Address {
	depth := 0
	for _, a := range addrs {
		depth = max(depth, len(a.Start))
	}
	var out []refs.Address
	for _, a := range addrs {
		if len(a.Start) == depth {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return slices.Compare(out[i].Start, out[j].Start) < 0
	})
	return out
}

func longestFirstPart(addrs []refs.Address) []refs.Address {
	depth := 0
	for _, a := range addrs {
		depth = max(depth, len(a.FirstPart))
	}
	var out []refs.Address
	for _, a := range addrs {
		if len(a.FirstPart) == depth {
			out = append(out, a)
		}
	}
	return out
}

// samePrefix reports whether a and b agree over their common length.
func samePrefix[T comparable](a, b []T) bool {
	n := min(len(a), len(b))
	return slices.Equal(a[:n], b[:n])
}

// inRange reports whether start <= idx <= end, each truncated to the common
// length of all three.
func inRange(idx, start, end []int) bool {
	n := min(len(idx), len(start), len(end))
	return slices.Compare(start[:n], idx[:n]) <= 0 && slices.Compare(idx[:n], end[:n]) <= 0
}
