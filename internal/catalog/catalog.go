// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog loads the canonical reference catalog and resolves parsed
// references against it.
//
// The catalog is a CSV file with a header row. Column 0 is the raw reference
// string as published, column 1 the display label, column 2 the target line
// number, and column 3 the target book path.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/link-engine/internal/refs"
)

const minColumns = 4

// Entry is one catalog row. Entries are immutable once loaded.
type Entry struct {
	Ref   string `json:"ref" yaml:"ref"`
	Label string `json:"label" yaml:"label"`
	Line  int    `json:"line" yaml:"line"`
	Book  string `json:"book" yaml:"book"`
}

// Index groups catalog entries for lookup. It is built once per run and is
// read-only afterwards, so it is safe for concurrent use.
type Index struct {
	// byBook maps the leading FirstPart token to the distinct addresses
	// sharing it.
	byBook map[string][]refs.Address
	// byKey maps Address.Key to every row at that address.
	byKey map[string][]Entry
	// byRef maps a raw reference string to the rows publishing it verbatim.
	byRef map[string][]Entry
	size  int
}

// Build parses every entry's reference and groups the results. Entries whose
// reference has no book token are not indexed by address but remain
// reachable by their raw reference.
func Build(entries []Entry) *Index {
	ix := &Index{
		byBook: make(map[string][]refs.Address),
		byKey:  make(map[string][]Entry),
		byRef:  make(map[string][]Entry),
		size:   len(entries),
	}
	for _, e := range entries {
		ix.byRef[e.Ref] = append(ix.byRef[e.Ref], e)

		addr := refs.Parse(e.Ref)
		if addr.Book() == "" {
			continue
		}
		key := addr.Key()
		if _, seen := ix.byKey[key]; !seen {
			ix.byBook[addr.Book()] = append(ix.byBook[addr.Book()], addr)
		}
		ix.byKey[key] = append(ix.byKey[key], e)
	}
	return ix
}

// Len returns the number of entries the index was built from.
func (ix *Index) Len() int { return ix.size }

// HasBook reports whether any entry's reference starts with book.
func (ix *Index) HasBook(book string) bool {
	_, ok := ix.byBook[book]
	return ok
}

// Direct returns the rows whose raw reference equals ref exactly.
func (ix *Index) Direct(ref string) []Entry {
	return ix.byRef[ref]
}

// Rows returns the rows located at addr.
func (ix *Index) Rows(addr refs.Address) []Entry {
	return ix.byKey[addr.Key()]
}

// LoadStats reports how many rows a catalog load kept and skipped.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// Load reads the catalog CSV at path and builds its index.
func Load(path string) (*Index, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()

	entries, stats, err := ReadEntries(f)
	if err != nil {
		return nil, stats, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Build(entries), stats, nil
}

// ReadEntries decodes catalog rows from r, skipping the header. Rows with
// fewer than four columns, an empty reference, or a non-numeric line are
// skipped and counted.
func ReadEntries(r io.Reader) ([]Entry, LoadStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var stats LoadStats
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, nil
		}
		return nil, stats, fmt.Errorf("reading header: %w", err)
	}

	var entries []Entry
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		entry, ok := parseRow(row)
		if !ok {
			stats.Skipped++
			continue
		}
		entries = append(entries, entry)
		stats.Loaded++
	}
	return entries, stats, nil
}

func parseRow(row []string) (Entry, bool) {
	if len(row) < minColumns {
		return Entry{}, false
	}
	ref := refs.Normalize(row[0])
	if ref == "" {
		return Entry{}, false
	}
	line, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Ref:   ref,
		Label: refs.Normalize(row[1]),
		Line:  line,
		Book:  refs.Normalize(row[3]),
	}, true
}
