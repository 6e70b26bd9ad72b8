// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"path"
	"sort"
)

// Duplicate is a file name shared by more than one book.
type Duplicate struct {
	Name  string   `json:"name" yaml:"name"`
	Paths []string `json:"paths" yaml:"paths"`
}

// NameIndex maps a book file name to its corpus-relative path. Link
// artifacts address target books by file name only, so a name held by two
// books is ambiguous; Duplicates lists those names.
type NameIndex struct {
	paths map[string][]string
}

// IndexNames groups books by file name.
func IndexNames(books []string) *NameIndex {
	ix := &NameIndex{paths: make(map[string][]string)}
	for _, b := range books {
		name := path.Base(Clean(b))
		ix.paths[name] = append(ix.paths[name], Clean(b))
	}
	return ix
}

// Lookup returns the path of the book named name. When several books share
// the name the lexically first path is returned and ok is still true.
func (ix *NameIndex) Lookup(name string) (string, bool) {
	paths := ix.paths[Clean(name)]
	if len(paths) == 0 {
		return "", false
	}
	first := paths[0]
	for _, p := range paths[1:] {
		if p < first {
			first = p
		}
	}
	return first, true
}

// Duplicates returns every name held by more than one book, sorted by name
// with sorted paths.
func (ix *NameIndex) Duplicates() []Duplicate {
	var out []Duplicate
	for name, paths := range ix.paths {
		if len(paths) < 2 {
			continue
		}
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)
		out = append(out, Duplicate{Name: name, Paths: sorted})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
