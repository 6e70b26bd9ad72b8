// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Secrets
	}{
		{
			name:  "trims values",
			files: map[string]string{LinkerAPIKey: "  lk_abc123  \n", "git-token": "gt_1"},
			want:  Secrets{LinkerAPIKey: "lk_abc123", "git-token": "gt_1"},
		},
		{
			name:  "ignores empty and whitespace files",
			files: map[string]string{LinkerAPIKey: "k", "empty": "", "blank": " \n\t "},
			want:  Secrets{LinkerAPIKey: "k"},
		},
		{
			name:  "ignores dotfiles",
			files: map[string]string{".gitkeep": "", ".hidden": "x", LinkerAPIKey: "k"},
			want:  Secrets{LinkerAPIKey: "k"},
		},
		{
			name: "empty directory",
			want: Secrets{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			got, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LinkerAPIKey, "k")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Secrets{LinkerAPIKey: "k"}, got)
}

func TestLoad_SkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, LinkerAPIKey, "k")
	bad := filepath.Join(dir, "locked")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Secrets{LinkerAPIKey: "k"}, got)
}

func TestLookupAndNames(t *testing.T) {
	s := Secrets{LinkerAPIKey: "stored", "b": "2", "a": "1"}
	assert.Equal(t, "stored", s.Lookup(LinkerAPIKey, ""))
	assert.Equal(t, "flag", s.Lookup(LinkerAPIKey, "flag"))
	assert.Equal(t, "", s.Lookup("missing", ""))
	assert.Equal(t, []string{"a", "b", LinkerAPIKey}, s.Names())

	var none Secrets
	assert.Equal(t, "", none.Lookup(LinkerAPIKey, ""))
}
