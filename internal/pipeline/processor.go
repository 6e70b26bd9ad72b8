// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline applies tracked changes to a book's two artifacts: the
// intermediate linker artifact and the merged final link artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdiddy/link-engine/internal/atomicfile"
	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/internal/linker"
	"github.com/pdiddy/link-engine/internal/merge"
	"github.com/pdiddy/link-engine/internal/resolve"
	"github.com/pdiddy/link-engine/pkg/types"
)

// ErrArtifactExists is returned when relocating a book would overwrite an
// artifact owned by another book with the same file name.
var ErrArtifactExists = errors.New("artifact already exists")

// BookLinker discovers the citations of one book.
type BookLinker interface {
	LinkBook(ctx context.Context, path, title string) (types.LinkerArtifact, error)
}

// Processor implements tracker.Processor over the corpus layout.
type Processor struct {
	Layout   *corpus.Layout
	Linker   BookLinker
	Resolver *resolve.Resolver
}

type bookPaths struct {
	linker string // intermediate artifact, filesystem path
	links  string // final artifact, filesystem path
}

func (p *Processor) paths(rel string) (bookPaths, error) {
	inter, err := p.Layout.LinkerArtifact(rel)
	if err != nil {
		return bookPaths{}, err
	}
	final, err := p.Layout.LinksArtifact(rel)
	if err != nil {
		return bookPaths{}, err
	}
	return bookPaths{linker: p.Layout.Abs(inter), links: p.Layout.Abs(final)}, nil
}

// Process links the book, writes its intermediate artifact, and merges the
// resolved records into its final artifact. A failure before anything is
// written leaves the previous run's artifacts in place. A failure after the
// intermediate artifact is written removes it and strips the book's linker
// rows, so the two artifacts never disagree.
func (p *Processor) Process(ctx context.Context, rel string) error {
	bp, err := p.paths(rel)
	if err != nil {
		return err
	}

	wrote, err := p.process(ctx, rel, bp)
	if err != nil && wrote {
		if rmErr := atomicfile.Remove(bp.linker); rmErr != nil {
			slog.Warn("removing intermediate artifact", "path", bp.linker, "error", rmErr)
		}
		if _, stripErr := merge.Strip(bp.links); stripErr != nil {
			slog.Warn("stripping final artifact", "path", bp.links, "error", stripErr)
		}
	}
	return err
}

// process reports whether the intermediate artifact was written.
func (p *Processor) process(ctx context.Context, rel string, bp bookPaths) (bool, error) {
	artifact, err := p.Linker.LinkBook(ctx, p.Layout.Abs(rel), p.Layout.Title(rel))
	if err != nil {
		return false, fmt.Errorf("linking: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := linker.WriteArtifact(bp.linker, artifact); err != nil {
		return false, err
	}

	records := resolve.Records(artifact, p.Resolver)
	res, err := merge.Merge(bp.links, records)
	if err != nil {
		return true, fmt.Errorf("merging: %w", err)
	}
	slog.Debug("book processed", "path", rel, "citations", len(artifact),
		"records", res.Added, "foreign", res.Kept)
	return true, nil
}

// Remove deletes the book's intermediate artifact and strips its "linker"
// rows from the final artifact.
func (p *Processor) Remove(rel string) error {
	bp, err := p.paths(rel)
	if err != nil {
		return err
	}
	if err := atomicfile.Remove(bp.linker); err != nil {
		return fmt.Errorf("removing %s: %w", bp.linker, err)
	}
	if _, err := merge.Strip(bp.links); err != nil {
		return err
	}
	return nil
}

// Relocate moves a renamed book's artifacts. Nothing moves when the
// artifact paths are unchanged. A destination owned by another book fails
// with ErrArtifactExists before anything is touched.
func (p *Processor) Relocate(from, to string) error {
	src, err := p.paths(from)
	if err != nil {
		return err
	}
	dst, err := p.paths(to)
	if err != nil {
		return err
	}

	moveLinker := src.linker != dst.linker && exists(src.linker)
	if moveLinker && exists(dst.linker) {
		return fmt.Errorf("%w: %s", ErrArtifactExists, dst.linker)
	}

	var rows []types.LinkRecord
	moveLinks := src.links != dst.links
	if moveLinks {
		existing, err := merge.Read(src.links)
		if err != nil {
			return err
		}
		rows = linkerRows(existing)
		target, err := merge.Read(dst.links)
		if err != nil {
			return err
		}
		if len(rows) > 0 && len(linkerRows(target)) > 0 {
			return fmt.Errorf("%w: %s", ErrArtifactExists, dst.links)
		}
	}

	if moveLinker {
		if err := os.MkdirAll(filepath.Dir(dst.linker), 0o755); err != nil {
			return err
		}
		if err := os.Rename(src.linker, dst.linker); err != nil {
			return fmt.Errorf("moving %s: %w", src.linker, err)
		}
	}
	if moveLinks && len(rows) > 0 {
		if _, err := merge.Merge(dst.links, rows); err != nil {
			return err
		}
		if _, err := merge.Strip(src.links); err != nil {
			return err
		}
	}
	return nil
}

func linkerRows(records []types.LinkRecord) []types.LinkRecord {
	var out []types.LinkRecord
	for _, r := range records {
		if r.ConnectionType == types.ConnectionLinker {
			out = append(out, r)
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
