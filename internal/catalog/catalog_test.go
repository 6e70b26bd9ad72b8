// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/link-engine/internal/refs"
)

const sampleCatalog = `ref,label,line,book
Genesis 1,בראשית א,1,בראשית
Genesis 1:1,בראשית א&&&א,2,בראשית
Genesis 1:2,בראשית א&&&ב,3,בראשית
Genesis 1:3,בראשית א&&&ג,4,בראשית
Genesis 2:1,בראשית ב&&&א,10,בראשית
"Mishneh Torah, Sabbath 1:1","משנה תורה, הלכות שבת א&&&א",5,רמבם שבת
"Mishneh Torah, Sabbath 1:2","משנה תורה, הלכות שבת א&&&ב",6,רמבם שבת
Shabbat 3a:1,שבת ג&&&א&&&א,20,שבת
Shabbat 3b:1,שבת ג&&&ב&&&א,25,שבת
Shabbat 3b:2,שבת ג&&&ב&&&ב,26,שבת
`

func sampleIndex(t *testing.T) *Index {
	t.Helper()
	entries, stats, err := ReadEntries(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Equal(t, 10, stats.Loaded)
	return Build(entries)
}

func lines(rows []Entry) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Line
	}
	return out
}

func TestReadEntries_SkipsMalformedRows(t *testing.T) {
	input := "ref,label,line,book\n" +
		"Genesis 1:1,בראשית א&&&א,2,בראשית\n" +
		"Genesis 1:2,short\n" +
		",no ref,3,בראשית\n" +
		"Genesis 1:3,bad line,x,בראשית\n"
	entries, stats, err := ReadEntries(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, LoadStats{Loaded: 1, Skipped: 3}, stats)
	assert.Equal(t, Entry{Ref: "Genesis 1:1", Label: "בראשית א&&&א", Line: 2, Book: "בראשית"}, entries[0])
}

func TestReadEntries_Empty(t *testing.T) {
	entries, stats, err := ReadEntries(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, stats.Loaded)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	ix, stats, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Loaded)
	assert.Equal(t, 10, ix.Len())
	assert.True(t, ix.HasBook("Genesis"))
	assert.True(t, ix.HasBook("Mishneh Torah"))
	assert.False(t, ix.HasBook("Leviticus"))

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestMatchExact(t *testing.T) {
	ix := sampleIndex(t)

	tests := []struct {
		name string
		raw  string
		want [][]int
	}{
		{"verse", "Genesis 1:3", [][]int{{1, 3}}},
		{"unknown verse falls back to chapter", "Genesis 1:7", [][]int{{1}}},
		{"chapter prefers deepest locators in order", "Genesis 1", [][]int{{1, 1}, {1, 2}, {1, 3}}},
		{"sub-unit leaf", "Shabbat 3b:2", [][]int{{3, 2, 2}}},
		{"no chapter", "Genesis 3:1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.MatchExact(refs.Parse(tt.raw))
			var starts [][]int
			for _, a := range got {
				starts = append(starts, a.Start)
			}
			assert.Equal(t, tt.want, starts)
		})
	}
}

func TestMatchExact_HierarchicalContainment(t *testing.T) {
	ix := sampleIndex(t)

	// Query title shorter than the catalog's.
	got := ix.MatchExact(refs.Parse("Mishneh Torah 1:2"))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Mishneh Torah", "Sabbath"}, got[0].FirstPart)
	assert.Equal(t, []int{1, 2}, got[0].Start)

	// Query title deeper than the catalog's.
	got = ix.MatchExact(refs.Parse("Mishneh Torah, Sabbath, Laws 1:1"))
	require.Len(t, got, 1)
	assert.Equal(t, []int{1, 1}, got[0].Start)
}

func TestMatchRange(t *testing.T) {
	ix := sampleIndex(t)

	tests := []struct {
		name string
		raw  string
		want [][]int
	}{
		{"verse range", "Genesis 1:2-3", [][]int{{1, 2}, {1, 3}}},
		{"across chapters", "Genesis 1:3-2:1", [][]int{{1, 3}, {2, 1}}},
		{"daf sides", "Shabbat 3a:1-3b:1", [][]int{{3, 1, 1}, {3, 2, 1}}},
		{"empty range", "Genesis 5:1-6:1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.MatchRange(refs.Parse(tt.raw))
			var starts [][]int
			for _, a := range got {
				starts = append(starts, a.Start)
			}
			assert.Equal(t, tt.want, starts)
		})
	}
}

func TestResolve(t *testing.T) {
	ix := sampleIndex(t)

	t.Run("direct hit expands join marker", func(t *testing.T) {
		m, outcome := ix.Resolve("Genesis 1:1")
		assert.Equal(t, Resolved, outcome)
		require.Len(t, m.Rows, 1)
		assert.Equal(t, "בראשית א, א", m.Rows[0].Label)
		assert.Equal(t, 2, m.Rows[0].Line)
	})

	t.Run("exact match projects label to matched depth", func(t *testing.T) {
		m, outcome := ix.Resolve("Genesis 1:7")
		assert.Equal(t, Resolved, outcome)
		require.Len(t, m.Rows, 1)
		assert.Equal(t, "בראשית א", m.Rows[0].Label)
		assert.Equal(t, 1, m.Rows[0].Line)
	})

	t.Run("surrounding whitespace normalized", func(t *testing.T) {
		m, outcome := ix.Resolve("Genesis 1:2 ")
		assert.Equal(t, Resolved, outcome)
		assert.Equal(t, []int{3}, lines(m.Rows))
	})

	t.Run("range returns every matched row", func(t *testing.T) {
		m, outcome := ix.Resolve("Shabbat 3a:1-3b:2")
		assert.Equal(t, Resolved, outcome)
		assert.Equal(t, []int{20, 25, 26}, lines(m.Rows))
		assert.Equal(t, "שבת ג, א, א", m.Rows[0].Label)
	})

	t.Run("book not found", func(t *testing.T) {
		_, outcome := ix.Resolve("Leviticus 1:1")
		assert.Equal(t, BookNotFound, outcome)
	})

	t.Run("link not found", func(t *testing.T) {
		_, outcome := ix.Resolve("Genesis 9:9")
		assert.Equal(t, LinkNotFound, outcome)
	})

	t.Run("idempotent", func(t *testing.T) {
		a, oa := ix.Resolve("Genesis 1:2-3")
		b, ob := ix.Resolve("Genesis 1:2-3")
		assert.Equal(t, oa, ob)
		assert.Equal(t, a, b)
	})
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "book_not_found", BookNotFound.String())
	assert.Equal(t, "link_not_found", LinkNotFound.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
