// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package linker sends book text to the remote reference-finding service in
// fixed-size chunks and turns the returned spans into citations keyed by
// absolute line number.
//
// Chunks of one book are processed strictly in order: each chunk's job is
// polled to completion before the next chunk is submitted.
package linker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pdiddy/link-engine/internal/atomicfile"
	"github.com/pdiddy/link-engine/internal/httputil"
	"github.com/pdiddy/link-engine/internal/offset"
	"github.com/pdiddy/link-engine/pkg/types"
)

const defaultChunkSize = 100

// Linker drives the service over a book.
type Linker struct {
	Service   Service
	ChunkSize int
	Policy    httputil.Policy
	Sleeper   httputil.Sleeper
}

// New returns a Linker configured from cfg.
func New(svc Service, cfg types.ServiceConfig, sleeper httputil.Sleeper) *Linker {
	return &Linker{
		Service:   svc,
		ChunkSize: cfg.ChunkSize,
		Policy: httputil.Policy{
			InitialDelay: cfg.InitialDelay,
			Interval:     cfg.PollInterval,
			MaxAttempts:  cfg.MaxPolls,
		},
		Sleeper: sleeper,
	}
}

func (l *Linker) chunkSize() int {
	if l.ChunkSize <= 0 {
		return defaultChunkSize
	}
	return l.ChunkSize
}

// SplitLines splits text into lines that keep their trailing newline.
// CRLF line endings are folded to LF first.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LinkLines submits lines chunk by chunk and returns the citations found,
// in chunk order. Spans without references are dropped. Any chunk failure
// aborts the whole book.
func (l *Linker) LinkLines(ctx context.Context, lines []string, title string) ([]types.DiscoveredCitation, error) {
	size := l.chunkSize()
	var out []types.DiscoveredCitation

	for i := 0; i*size < len(lines); i++ {
		chunk := lines[i*size : min((i+1)*size, len(lines))]
		prefix := offset.NewPrefix(chunk)

		job, err := l.runChunk(ctx, strings.Join(chunk, ""), title)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %q: %w", i+1, title, err)
		}

		for _, r := range job.Results {
			if r.Refs == nil {
				continue
			}
			line, start := prefix.Position(r.StartChar)
			refs := make(map[string]string, len(r.Refs))
			for _, ref := range r.Refs {
				refs[ref] = job.RefData[ref].HeRef
			}
			out = append(out, types.DiscoveredCitation{
				Line: line + i*size,
				Entry: types.LinkerEntry{
					Start: start,
					End:   start + (r.EndChar - r.StartChar),
					Refs:  refs,
				},
			})
		}
		slog.Debug("chunk linked", "title", title, "chunk", i+1, "results", len(job.Results))
	}
	return out, nil
}

// runChunk submits one chunk and polls until its job completes.
func (l *Linker) runChunk(ctx context.Context, text, title string) (Job, error) {
	taskID, err := l.Service.Submit(ctx, text, title)
	if err != nil {
		return Job{}, err
	}

	var job Job
	err = httputil.Poll(ctx, l.Sleeper, l.Policy, func(ctx context.Context, attempt int) (bool, error) {
		j, err := l.Service.Fetch(ctx, taskID)
		if err != nil {
			return false, err
		}
		if j.Failed() {
			return false, fmt.Errorf("task %s: %w", taskID, ErrTaskFailed)
		}
		if !j.Done() {
			slog.Debug("waiting for task", "task", taskID, "state", j.State, "ready", j.Ready, "attempt", attempt)
			return false, nil
		}
		job = j
		return true, nil
	})
	if err != nil {
		return Job{}, fmt.Errorf("task %s: %w", taskID, err)
	}
	return job, nil
}

// LinkBook links the book at path and returns its intermediate artifact.
func (l *Linker) LinkBook(ctx context.Context, path, title string) (types.LinkerArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading book %s: %w", path, err)
	}
	citations, err := l.LinkLines(ctx, SplitLines(string(data)), title)
	if err != nil {
		return nil, err
	}
	return types.Artifact(citations), nil
}

// WriteArtifact persists an intermediate artifact atomically.
func WriteArtifact(path string, artifact types.LinkerArtifact) error {
	return atomicfile.WriteJSON(path, artifact)
}

// ReadArtifact loads an intermediate artifact.
func ReadArtifact(path string) (types.LinkerArtifact, error) {
	var artifact types.LinkerArtifact
	if err := atomicfile.ReadJSON(path, &artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}
