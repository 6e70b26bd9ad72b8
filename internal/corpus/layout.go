// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus describes the watched scope of the book corpus: which
// files participate in linking, how books are titled, and where their link
// artifacts live.
//
// All paths handled here are relative to the corpus root, in forward-slash
// NFC form, matching the keys of the hash store and the output of git.
package corpus

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/link-engine/pkg/types"
)

const (
	bookExt      = ".txt"
	linksSuffix  = "_links.json"
	artifactExts = ".json"
)

// Layout resolves book paths against the corpus configuration.
type Layout struct {
	root            string
	watched         []string
	booksSubdir     string
	ignoredSuffixes []string
	linkerDir       string
	linksDir        string
}

// NewLayout returns the layout for cfg.
func NewLayout(cfg types.CorpusConfig) *Layout {
	l := &Layout{
		root:        cfg.Root,
		booksSubdir: strings.Trim(Clean(cfg.BooksSubdir), "/"),
		linkerDir:   cfg.LinkerDirName,
		linksDir:    cfg.LinksDirName,
	}
	if l.root == "" {
		l.root = "."
	}
	if l.booksSubdir == "." {
		l.booksSubdir = ""
	}
	for _, d := range cfg.WatchedDirs {
		l.watched = append(l.watched, strings.TrimSuffix(Clean(d), "/"))
	}
	for _, s := range cfg.IgnoredSuffixes {
		l.ignoredSuffixes = append(l.ignoredSuffixes, strings.ToLower(norm.NFC.String(s)))
	}
	return l
}

// Clean normalizes a path to forward-slash NFC form without a leading "./".
func Clean(p string) string {
	p = norm.NFC.String(filepath.ToSlash(strings.TrimSpace(p)))
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// Root returns the corpus root directory.
func (l *Layout) Root() string { return l.root }

// WatchedDirs returns the configured watched directories.
func (l *Layout) WatchedDirs() []string { return l.watched }

// Abs converts a corpus-relative path to a filesystem path.
func (l *Layout) Abs(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// WatchedDir returns the watched directory containing rel.
func (l *Layout) WatchedDir(rel string) (string, bool) {
	rel = Clean(rel)
	for _, d := range l.watched {
		if strings.HasPrefix(rel, d+"/") {
			return d, true
		}
	}
	return "", false
}

// IsBook reports whether rel names a book file: a .txt file whose name does
// not end with an ignored suffix.
func (l *Layout) IsBook(rel string) bool {
	lower := strings.ToLower(Clean(rel))
	if !strings.HasSuffix(lower, bookExt) {
		return false
	}
	for _, s := range l.ignoredSuffixes {
		if strings.HasSuffix(lower, s) {
			return false
		}
	}
	return true
}

// InScope reports whether rel is a book inside a watched directory.
func (l *Layout) InScope(rel string) bool {
	_, ok := l.WatchedDir(rel)
	return ok && l.IsBook(rel)
}

// Title is the name the service sees for a book: the directories between
// the watched directory and the file, then the file stem, space separated.
func (l *Layout) Title(rel string) string {
	rel = Clean(rel)
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	dir, ok := l.WatchedDir(rel)
	if !ok {
		return stem
	}
	middle := strings.TrimPrefix(path.Dir(rel), dir)
	parts := strings.Fields(strings.ReplaceAll(middle, "/", " "))
	return strings.TrimSpace(strings.Join(append(parts, stem), " "))
}

// sourceRoot is the watched directory with the books subdirectory removed,
// the directory that holds the final links directory.
func (l *Layout) sourceRoot(dir string) string {
	if l.booksSubdir != "" && strings.HasSuffix(dir, "/"+l.booksSubdir) {
		return strings.TrimSuffix(dir, "/"+l.booksSubdir)
	}
	return topComponent(dir)
}

func topComponent(p string) string {
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}

func artifactName(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base)) + linksSuffix
}

// LinkerArtifact returns the intermediate artifact path for a book:
// <top>/<linker dir>/<stem>_links.json.
func (l *Layout) LinkerArtifact(rel string) (string, error) {
	dir, ok := l.WatchedDir(rel)
	if !ok {
		return "", fmt.Errorf("%s is outside the watched scope", rel)
	}
	return path.Join(topComponent(dir), l.linkerDir, artifactName(rel)), nil
}

// LinksArtifact returns the final artifact path for a book:
// <source root>/<links dir>/<stem>_links.json.
func (l *Layout) LinksArtifact(rel string) (string, error) {
	dir, ok := l.WatchedDir(rel)
	if !ok {
		return "", fmt.Errorf("%s is outside the watched scope", rel)
	}
	return path.Join(l.sourceRoot(dir), l.linksDir, artifactName(rel)), nil
}

// LinksDirs returns every final artifact directory, deduplicated.
func (l *Layout) LinksDirs() []string {
	return l.dirs(func(dir string) string { return path.Join(l.sourceRoot(dir), l.linksDir) })
}

// ArtifactDirs pairs an intermediate artifact directory with the final
// artifact directory its books merge into.
type ArtifactDirs struct {
	Linker string
	Links  string
}

// ArtifactDirPairs returns the distinct directory pairs of the watched
// scope, in watched-directory order.
func (l *Layout) ArtifactDirPairs() []ArtifactDirs {
	seen := make(map[ArtifactDirs]bool)
	var out []ArtifactDirs
	for _, d := range l.watched {
		p := ArtifactDirs{
			Linker: path.Join(topComponent(d), l.linkerDir),
			Links:  path.Join(l.sourceRoot(d), l.linksDir),
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func (l *Layout) dirs(f func(string) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range l.watched {
		p := f(d)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Books walks every watched directory and returns the in-scope book paths,
// sorted. Missing watched directories are logged and skipped.
func (l *Layout) Books() ([]string, error) {
	var out []string
	for _, d := range l.watched {
		files, err := l.walk(d, l.IsBook)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	sort.Strings(out)
	return out, nil
}

// Artifacts lists the .json files under the corpus-relative directory dir.
func (l *Layout) Artifacts(dir string) ([]string, error) {
	return l.walk(dir, func(rel string) bool {
		return strings.EqualFold(path.Ext(rel), artifactExts)
	})
}

func (l *Layout) walk(dir string, keep func(string) bool) ([]string, error) {
	base := l.Abs(dir)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		slog.Warn("directory does not exist", "dir", dir)
		return nil, nil
	}

	var out []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = Clean(rel)
		if keep(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return out, nil
}
