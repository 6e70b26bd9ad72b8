// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refs parses raw reference strings such as "Shabbat 3a:2-3b:1" or
// "Mishneh Torah, Sabbath 1:1" into structured addresses, and projects the
// human-readable display labels that accompany catalog rows.
package refs

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	segmentSep = ", "
	levelSep   = ":"
	rangeSep   = "-"
)

// Address is a parsed reference. FirstPart is the hierarchical book and
// section path; Start is the hierarchical locator and End is set only for
// ranges. Leaf sub-unit letters are encoded as an extra level ("3a" is
// [3, 1], "3b" is [3, 2]).
type Address struct {
	FirstPart []string `json:"first_part" yaml:"first_part"`
	Start     []int    `json:"start_index" yaml:"start_index"`
	End       []int    `json:"end_index,omitempty" yaml:"end_index,omitempty"`
}

// Book returns the leading FirstPart token, or "" when there is none.
func (a Address) Book() string {
	if len(a.FirstPart) == 0 {
		return ""
	}
	return a.FirstPart[0]
}

// IsRange reports whether the address carries an end locator.
func (a Address) IsRange() bool {
	return len(a.End) > 0
}

// Key renders FirstPart and Start in a canonical form. Catalog rows with the
// same key address the same location.
func (a Address) Key() string {
	idx := make([]string, len(a.Start))
	for i, n := range a.Start {
		idx[i] = strconv.Itoa(n)
	}
	return strings.Join(a.FirstPart, segmentSep) + " " + strings.Join(idx, levelSep)
}

// Normalize trims s and converts it to Unicode NFC so that strings from the
// catalog, the service, and the filesystem compare equal.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Parse converts a raw reference into an Address. It never fails: when the
// locator is not numeric the address degrades to a FirstPart-only form with
// the unparsed locator tokens appended, so book-level resolution can still
// be attempted.
func Parse(raw string) Address {
	raw = Normalize(raw)

	segments := strings.Split(raw, segmentSep)
	last := segments[len(segments)-1]

	var firstPart []string
	if len(segments) > 1 {
		firstPart = append(firstPart, segments[:len(segments)-1]...)
	}
	words := strings.Split(last, " ")
	if len(words) > 1 {
		firstPart = append(firstPart, strings.Join(words[:len(words)-1], " "))
	}
	locator := words[len(words)-1]

	var startTok, endTok []string
	if bounds := strings.Split(locator, rangeSep); len(bounds) == 2 {
		startTok = strings.Split(bounds[0], levelSep)
		endTok = strings.Split(bounds[1], levelSep)
		startTok, endTok = alignDepth(startTok, endTok)
	} else {
		startTok = strings.Split(bounds[0], levelSep)
	}

	start, err := toIndex(startTok)
	if err != nil {
		return Address{FirstPart: append(firstPart, startTok...)}
	}
	if endTok == nil {
		return Address{FirstPart: firstPart, Start: start}
	}
	end, err := toIndex(endTok)
	if err != nil {
		return Address{FirstPart: append(firstPart, startTok...)}
	}
	return Address{FirstPart: firstPart, Start: start, End: end}
}

// alignDepth makes both locators the same depth before any interval
// comparison. A shallower end inherits the leading components of the start
// ("1:3-5" reads as 1:3 through 1:5). A shallower start is a coarser unit and
// is extended with first sub-units ("5-6:3" reads as 5:1 through 6:3).
func alignDepth(start, end []string) ([]string, []string) {
	if len(end) < len(start) {
		pad := len(start) - len(end)
		aligned := make([]string, 0, len(start))
		aligned = append(aligned, start[:pad]...)
		end = append(aligned, end...)
	}
	for len(start) < len(end) {
		start = append(start, "1")
	}
	return start, end
}

// toIndex converts locator tokens into integers. A trailing "a" or "b" is
// a leaf sub-unit and becomes an extra level holding 1 or 2.
func toIndex(tokens []string) ([]int, error) {
	out := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		leaf := 0
		switch {
		case strings.HasSuffix(tok, "a"):
			leaf, tok = 1, strings.TrimSuffix(tok, "a")
		case strings.HasSuffix(tok, "b"):
			leaf, tok = 2, strings.TrimSuffix(tok, "b")
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		if leaf > 0 {
			out = append(out, leaf)
		}
	}
	return out, nil
}
