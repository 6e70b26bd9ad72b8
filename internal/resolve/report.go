// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/link-engine/internal/atomicfile"
)

// FailedBook names a book that could not be processed in a run.
type FailedBook struct {
	Path  string `yaml:"path"`
	Error string `yaml:"error"`
}

// Report is the per-run record of everything that needs operator review.
// Unresolved references are informational; failed books are retried on the
// next run.
type Report struct {
	RunID         string       `yaml:"run_id"`
	GeneratedAt   time.Time    `yaml:"generated_at"`
	NotFoundBooks []string     `yaml:"not_found_books"`
	NotFoundLinks []string     `yaml:"not_found_links"`
	Failed        []FailedBook `yaml:"failed,omitempty"`

	mu sync.Mutex
}

// NewReport starts an empty report for runID.
func NewReport(runID string) *Report {
	return &Report{RunID: runID, GeneratedAt: time.Now().UTC()}
}

// AddFailure records a book whose processing failed.
func (rep *Report) AddFailure(path string, err error) {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	rep.Failed = append(rep.Failed, FailedBook{Path: path, Error: err.Error()})
}

// Collect copies the unresolved references accumulated by r.
func (rep *Report) Collect(r *Resolver) {
	books, links := r.Unresolved()
	rep.mu.Lock()
	defer rep.mu.Unlock()
	rep.NotFoundBooks = books
	rep.NotFoundLinks = links
}

// Empty reports whether there is nothing to review.
func (rep *Report) Empty() bool {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	return len(rep.NotFoundBooks) == 0 && len(rep.NotFoundLinks) == 0 && len(rep.Failed) == 0
}

// Write saves the report as YAML to dir/unresolved-<run id>.yaml and returns
// the path written.
func (rep *Report) Write(dir string) (string, error) {
	rep.mu.Lock()
	sort.Slice(rep.Failed, func(i, j int) bool { return rep.Failed[i].Path < rep.Failed[j].Path })
	data, err := yaml.Marshal(rep)
	rep.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	path := filepath.Join(dir, "unresolved-"+rep.RunID+".yaml")
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
