// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/link-engine/pkg/types"
)

func testLayout(root string) *Layout {
	cfg := types.Defaults().Corpus
	cfg.Root = root
	cfg.WatchedDirs = []string{
		"MoreBooks/ספרים/אוצריא",
		"DictaToOtzaria/ערוך/ספרים/אוצריא/",
	}
	return NewLayout(cfg)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a/b/c.txt", Clean("./a/b/../b/c.txt"))
	assert.Equal(t, "", Clean("  "))
	// NFD input (base letter plus combining mark) folds to NFC.
	assert.Equal(t, "\u00e9.txt", Clean("e\u0301.txt"))
}

func TestLayout_Scope(t *testing.T) {
	l := testLayout(".")

	tests := []struct {
		rel  string
		want bool
	}{
		{"MoreBooks/ספרים/אוצריא/תנך/בראשית.txt", true},
		{"MoreBooks/ספרים/אוצריא/בראשית.TXT", true},
		{"MoreBooks/ספרים/אוצריא/בראשית.json", false},
		{"MoreBooks/ספרים/אוצריא/אודות גירסת ספריה.txt", false},
		{"MoreBooks/ספרים/אחר/בראשית.txt", false},
		{"MoreBooks/ספרים/אוצריאX/בראשית.txt", false},
		{"DictaToOtzaria/ערוך/ספרים/אוצריא/ספר.txt", true},
		{"Other/ספר.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, l.InScope(tt.rel))
		})
	}
}

func TestLayout_Title(t *testing.T) {
	l := testLayout(".")
	assert.Equal(t, "תנך תורה בראשית", l.Title("MoreBooks/ספרים/אוצריא/תנך/תורה/בראשית.txt"))
	assert.Equal(t, "בראשית", l.Title("MoreBooks/ספרים/אוצריא/בראשית.txt"))
	assert.Equal(t, "ספר", l.Title("Elsewhere/ספר.txt"))
}

func TestLayout_ArtifactPaths(t *testing.T) {
	l := testLayout(".")

	p, err := l.LinkerArtifact("MoreBooks/ספרים/אוצריא/תנך/בראשית.txt")
	require.NoError(t, err)
	assert.Equal(t, "MoreBooks/linker_links/בראשית_links.json", p)

	p, err = l.LinksArtifact("MoreBooks/ספרים/אוצריא/תנך/בראשית.txt")
	require.NoError(t, err)
	assert.Equal(t, "MoreBooks/links/בראשית_links.json", p)

	p, err = l.LinkerArtifact("DictaToOtzaria/ערוך/ספרים/אוצריא/ספר.txt")
	require.NoError(t, err)
	assert.Equal(t, "DictaToOtzaria/linker_links/ספר_links.json", p)

	p, err = l.LinksArtifact("DictaToOtzaria/ערוך/ספרים/אוצריא/ספר.txt")
	require.NoError(t, err)
	assert.Equal(t, "DictaToOtzaria/ערוך/links/ספר_links.json", p)

	_, err = l.LinksArtifact("Other/ספר.txt")
	assert.Error(t, err)

	assert.Equal(t, []string{"MoreBooks/links", "DictaToOtzaria/ערוך/links"}, l.LinksDirs())
	assert.Equal(t, []ArtifactDirs{
		{Linker: "MoreBooks/linker_links", Links: "MoreBooks/links"},
		{Linker: "DictaToOtzaria/linker_links", Links: "DictaToOtzaria/ערוך/links"},
	}, l.ArtifactDirPairs())
}

func TestLayout_Books(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	}
	write("MoreBooks/ספרים/אוצריא/ב.txt")
	write("MoreBooks/ספרים/אוצריא/תת/א.txt")
	write("MoreBooks/ספרים/אוצריא/notes.md")
	write("MoreBooks/links/ב_links.json")
	write("Unwatched/ג.txt")

	l := testLayout(root)
	books, err := l.Books()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"MoreBooks/ספרים/אוצריא/ב.txt",
		"MoreBooks/ספרים/אוצריא/תת/א.txt",
	}, books)

	artifacts, err := l.Artifacts("MoreBooks/links")
	require.NoError(t, err)
	assert.Equal(t, []string{"MoreBooks/links/ב_links.json"}, artifacts)

	assert.Equal(t, filepath.Join(root, "MoreBooks", "links"), l.Abs("MoreBooks/links"))
}

func TestNameIndex(t *testing.T) {
	ix := IndexNames([]string{
		"A/ספרים/אוצריא/x/בראשית.txt",
		"B/ספרים/אוצריא/בראשית.txt",
		"A/ספרים/אוצריא/שמות.txt",
	})

	p, ok := ix.Lookup("שמות.txt")
	assert.True(t, ok)
	assert.Equal(t, "A/ספרים/אוצריא/שמות.txt", p)

	p, ok = ix.Lookup("בראשית.txt")
	assert.True(t, ok)
	assert.Equal(t, "A/ספרים/אוצריא/x/בראשית.txt", p)

	_, ok = ix.Lookup("ויקרא.txt")
	assert.False(t, ok)

	dups := ix.Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "בראשית.txt", dups[0].Name)
	assert.Equal(t, []string{"A/ספרים/אוצריא/x/בראשית.txt", "B/ספרים/אוצריא/בראשית.txt"}, dups[0].Paths)
}
