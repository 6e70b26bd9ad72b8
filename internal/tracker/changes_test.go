// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/pkg/types"
)

const watched = "A/ספרים/אוצריא"

func testLayout(root string) *corpus.Layout {
	cfg := types.Defaults().Corpus
	cfg.Root = root
	cfg.WatchedDirs = []string{watched}
	return corpus.NewLayout(cfg)
}

func TestClassify(t *testing.T) {
	l := testLayout(".")
	raw := ChangeSet{
		Added:    []string{watched + "/new.txt", "Outside/x.txt", watched + "/notes.md"},
		Modified: []string{watched + "/mod.txt", watched + "/new.txt"},
		Deleted:  []string{watched + "/gone.txt", watched + "/ספר גירסת ספריה.txt"},
		Renamed: []Rename{
			{From: watched + "/old.txt", To: watched + "/sub/old.txt"},
			{From: "Outside/in.txt", To: watched + "/in.txt"},
			{From: watched + "/out.txt", To: "Outside/out.txt"},
			{From: "Outside/a.txt", To: "Outside/b.txt"},
		},
	}

	cs := Classify(l, raw)
	assert.Equal(t, []string{watched + "/in.txt", watched + "/new.txt"}, cs.Added)
	assert.Equal(t, []string{watched + "/mod.txt"}, cs.Modified)
	assert.Equal(t, []string{watched + "/gone.txt", watched + "/out.txt"}, cs.Deleted)
	assert.Equal(t, []Rename{{From: watched + "/old.txt", To: watched + "/sub/old.txt"}}, cs.Renamed)
	assert.Equal(t, []string{watched + "/in.txt", watched + "/mod.txt", watched + "/new.txt"}, cs.Relink())
}

func TestUnion_RenameEndpointsWin(t *testing.T) {
	git := ChangeSet{Renamed: []Rename{{From: "a.txt", To: "b.txt"}}}
	scan := ChangeSet{
		Added:   []string{"b.txt", "c.txt"},
		Deleted: []string{"a.txt"},
		Renamed: []Rename{{From: "a.txt", To: "b.txt"}},
	}

	cs := Union(git, scan)
	assert.Equal(t, []Rename{{From: "a.txt", To: "b.txt"}}, cs.Renamed)
	assert.Equal(t, []string{"c.txt"}, cs.Added)
	assert.Empty(t, cs.Deleted)
}

func TestChangeSet_Empty(t *testing.T) {
	assert.True(t, ChangeSet{}.Empty())
	assert.False(t, ChangeSet{Deleted: []string{"x"}}.Empty())
}

type staticDetector struct {
	cs  ChangeSet
	err error
}

func (d staticDetector) Detect(context.Context) (ChangeSet, error) { return d.cs, d.err }

func TestReconcile(t *testing.T) {
	d := Reconcile(
		staticDetector{cs: ChangeSet{Modified: []string{"a.txt"}}},
		staticDetector{cs: ChangeSet{Added: []string{"failed-last-run.txt"}}},
	)
	cs, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "failed-last-run.txt"}, cs.Relink())

	boom := errors.New("boom")
	_, err = Reconcile(staticDetector{}, staticDetector{err: boom}).Detect(context.Background())
	assert.ErrorIs(t, err, boom)
}
