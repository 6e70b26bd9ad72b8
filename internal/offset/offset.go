// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package offset maps character offsets inside a chunk of concatenated lines
// back to line and column positions.
package offset

import (
	"sort"
	"unicode/utf8"
)

// Prefix holds cumulative line lengths with a leading zero: Prefix[i] is the
// offset at which line i+1 starts. It is strictly increasing for non-empty
// lines.
type Prefix []int

// NewPrefix builds the prefix array for lines. Lengths are counted in
// Unicode code points, the unit the reference service reports offsets in.
func NewPrefix(lines []string) Prefix {
	p := make(Prefix, 1, len(lines)+1)
	for _, l := range lines {
		p = append(p, p[len(p)-1]+utf8.RuneCountInString(l))
	}
	return p
}

// Lines returns the number of lines the prefix covers.
func (p Prefix) Lines() int {
	return max(len(p)-1, 0)
}

// LineOf returns the 1-based line holding charIndex. An offset exactly on a
// boundary belongs to the line that starts there. Offsets past the end
// clamp to the last line.
func (p Prefix) LineOf(charIndex int) int {
	line := sort.Search(len(p), func(i int) bool { return p[i] > charIndex })
	if n := p.Lines(); line > n {
		line = n
	}
	return max(line, 1)
}

// Position converts a chunk offset to a 1-based line and the offset within
// that line.
func (p Prefix) Position(charIndex int) (line, column int) {
	line = p.LineOf(charIndex)
	if line-1 < len(p) {
		column = charIndex - p[line-1]
	}
	return line, column
}
