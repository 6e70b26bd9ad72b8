// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBook(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	h, err := HashFile(p)
	require.NoError(t, err)
	return h
}

func TestScanDetector(t *testing.T) {
	root := t.TempDir()
	store, err := LoadStore(filepath.Join(root, "hash_all_files.json"))
	require.NoError(t, err)

	same := writeBook(t, root, watched+"/same.txt", "unchanged\n")
	store.Set(watched+"/same.txt", same)

	writeBook(t, root, watched+"/mod.txt", "new content\n")
	store.Set(watched+"/mod.txt", "stale")

	writeBook(t, root, watched+"/added.txt", "fresh\n")

	moved := writeBook(t, root, watched+"/sub/moved.txt", "moved body\n")
	store.Set(watched+"/moved.txt", moved)

	store.Set(watched+"/gone.txt", "whatever")
	store.Set("Outside/ignored.txt", "x")

	cs, err := NewScanDetector(testLayout(root), store).Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{watched + "/added.txt"}, cs.Added)
	assert.Equal(t, []string{watched + "/mod.txt"}, cs.Modified)
	assert.Equal(t, []string{watched + "/gone.txt"}, cs.Deleted)
	assert.Equal(t, []Rename{{From: watched + "/moved.txt", To: watched + "/sub/moved.txt"}}, cs.Renamed)
}

func TestScanDetector_EmptyCorpus(t *testing.T) {
	root := t.TempDir()
	store, err := LoadStore(filepath.Join(root, "h.json"))
	require.NoError(t, err)

	cs, err := NewScanDetector(testLayout(root), store).Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}
