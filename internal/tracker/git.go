// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pdiddy/link-engine/internal/corpus"
)

// executor abstracts command execution for testing.
type executor interface {
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// GitDetector reports the books touched between two revisions of the
// repository at the corpus root.
type GitDetector struct {
	layout *corpus.Layout
	from   string
	to     string
	exec   executor
}

// NewGitDetector returns a detector diffing from..to.
func NewGitDetector(l *corpus.Layout, from, to string) *GitDetector {
	return &GitDetector{layout: l, from: from, to: to, exec: osExecutor{}}
}

// Detect runs one rename query over the whole tree, so moves across the
// scope boundary are seen with both ends, and one query per status
// restricted to the watched directories.
func (g *GitDetector) Detect(ctx context.Context) (ChangeSet, error) {
	var raw ChangeSet

	out, err := g.diff(ctx, []string{"--name-status", "-M", "--diff-filter=R"}, nil)
	if err != nil {
		return ChangeSet{}, err
	}
	raw.Renamed, err = parseRenames(out)
	if err != nil {
		return ChangeSet{}, err
	}

	for _, q := range []struct {
		filter string
		dst    *[]string
	}{
		{"A", &raw.Added},
		{"M", &raw.Modified},
		{"D", &raw.Deleted},
	} {
		out, err := g.diff(ctx, []string{"--name-only", "-M", "--diff-filter=" + q.filter}, g.layout.WatchedDirs())
		if err != nil {
			return ChangeSet{}, err
		}
		if *q.dst, err = parseNames(out); err != nil {
			return ChangeSet{}, err
		}
	}

	cs := Classify(g.layout, raw)
	slog.Debug("git changes detected",
		"from", g.from, "to", g.to,
		"added", len(cs.Added), "modified", len(cs.Modified),
		"deleted", len(cs.Deleted), "renamed", len(cs.Renamed))
	return cs, nil
}

func (g *GitDetector) diff(ctx context.Context, flags, pathspec []string) (string, error) {
	args := append([]string{"-c", "core.quotePath=true", "diff"}, flags...)
	args = append(args, g.from, g.to)
	if len(pathspec) > 0 {
		args = append(args, "--")
		args = append(args, pathspec...)
	}
	out, err := g.exec.Output(ctx, g.layout.Root(), "git", args...)
	if err != nil {
		return "", fmt.Errorf("%w: git %s: %w", ErrDiffFailed, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// parseRenames reads "R<score>\told\tnew" lines.
func parseRenames(out string) ([]Rename, error) {
	var renames []Rename
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		from, err := decodePath(parts[1])
		if err != nil {
			return nil, err
		}
		to, err := decodePath(parts[2])
		if err != nil {
			return nil, err
		}
		renames = append(renames, Rename{From: from, To: to})
	}
	return renames, nil
}

func parseNames(out string) ([]string, error) {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, err := decodePath(line)
		if err != nil {
			return nil, err
		}
		names = append(names, p)
	}
	return names, nil
}

// decodePath undoes git's C-style quoting of paths with non-ASCII bytes
// ("\327\241...") and normalizes the result.
func decodePath(s string) (string, error) {
	s = strings.TrimRight(s, "\r")
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return "", fmt.Errorf("%w: decoding path %s: %w", ErrDiffFailed, s, err)
		}
		s = unq
	}
	return corpus.Clean(s), nil
}
