// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the link records, service artifacts, and
// configuration shared across the link-engine packages.
package types

// ConnectionType tags the origin of a link record. Only records tagged
// ConnectionLinker are owned by the link engine; every other tag belongs to
// hand-curated or imported data and is preserved verbatim.
type ConnectionType string

const (
	ConnectionLinker     ConnectionType = "linker"
	ConnectionCommentary ConnectionType = "commentary"
	ConnectionReference  ConnectionType = "reference"
)

// LinkRecord is a directed edge from a line in the source book to a line in
// a target book. The JSON field names form the persisted wire format read
// by downstream readers, including the historical "Conection Type" spelling.
type LinkRecord struct {
	LineIndex1     int            `json:"line_index_1" yaml:"line_index_1"`
	LineIndex2     int            `json:"line_index_2" yaml:"line_index_2"`
	HeRef2         string         `json:"heRef_2" yaml:"heRef_2"`
	Path2          string         `json:"path_2" yaml:"path_2"`
	ConnectionType ConnectionType `json:"Conection Type" yaml:"connection_type"`
	Start          int            `json:"start" yaml:"start"`
	End            int            `json:"end" yaml:"end"`
}

// LinkerEntry is one citation span in an intermediate linker artifact.
// Start and End are character offsets within the line. Refs maps each raw
// reference to the service's display reference; a nil map marks a span
// the service flagged but could not resolve.
type LinkerEntry struct {
	Start int               `json:"start" yaml:"start"`
	End   int               `json:"end" yaml:"end"`
	Refs  map[string]string `json:"refs" yaml:"refs"`
}

// LinkerArtifact is the intermediate per-book artifact: absolute line number
// (1-based) to the citations discovered on that line. encoding/json writes
// the integer keys as strings, matching the on-disk format.
type LinkerArtifact map[int][]LinkerEntry

// DiscoveredCitation is a citation located in the source book.
type DiscoveredCitation struct {
	// Line is the absolute 1-based line number in the source book.
	Line  int
	Entry LinkerEntry
}

// Artifact returns the citations grouped by line in artifact form.
func Artifact(citations []DiscoveredCitation) LinkerArtifact {
	out := make(LinkerArtifact)
	for _, c := range citations {
		out[c.Line] = append(out[c.Line], c.Entry)
	}
	return out
}
