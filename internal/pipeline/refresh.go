// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"io"
	"path"

	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/internal/linker"
	"github.com/pdiddy/link-engine/internal/merge"
	"github.com/pdiddy/link-engine/internal/resolve"
)

// RefreshResult tallies a Refresh run.
type RefreshResult struct {
	Merged  int
	Removed int
	Failed  int
}

// Total returns the number of intermediate artifacts visited.
func (r RefreshResult) Total() int { return r.Merged + r.Removed + r.Failed }

// HasFailures reports whether any artifact failed.
func (r RefreshResult) HasFailures() bool { return r.Failed > 0 }

// Refresh re-resolves every intermediate artifact in the watched scope and
// re-merges the final artifacts, without contacting the service. It is run
// after the catalog changes.
func Refresh(l *corpus.Layout, r *resolve.Resolver, rep *resolve.Report, w io.Writer) RefreshResult {
	var result RefreshResult
	for _, dirs := range l.ArtifactDirPairs() {
		artifacts, err := l.Artifacts(dirs.Linker)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", dirs.Linker, err)
			rep.AddFailure(dirs.Linker, err)
			result.Failed++
			continue
		}
		for _, rel := range artifacts {
			final := path.Join(dirs.Links, path.Base(rel))
			res, err := refreshOne(l, r, rel, final)
			switch {
			case err != nil:
				fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
				rep.AddFailure(rel, err)
				result.Failed++
			case res.Removed || res.Kept+res.Added == 0:
				fmt.Fprintf(w, "empty   %s\n", final)
				result.Removed++
			default:
				fmt.Fprintf(w, "merged  %s (%d links)\n", final, res.Added)
				result.Merged++
			}
		}
	}
	fmt.Fprintf(w, "\nRefresh summary: %d merged, %d empty, %d failed (total: %d)\n",
		result.Merged, result.Removed, result.Failed, result.Total())
	return result
}

func refreshOne(l *corpus.Layout, r *resolve.Resolver, rel, final string) (merge.Result, error) {
	artifact, err := linker.ReadArtifact(l.Abs(rel))
	if err != nil {
		return merge.Result{}, err
	}
	return merge.Merge(l.Abs(final), resolve.Records(artifact, r))
}
