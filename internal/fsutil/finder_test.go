package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("# test"), 0644))
	}
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b.hcl", "a.hcl", "nested/c.hcl", "nested/readme.md")

	t.Run("directory is walked recursively", func(t *testing.T) {
		got, err := FindFiles(root, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.hcl"),
			filepath.Join(root, "b.hcl"),
			filepath.Join(root, "nested", "c.hcl"),
		}, got)
	})

	t.Run("single file", func(t *testing.T) {
		got, err := FindFiles(filepath.Join(root, "b.hcl"), ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "b.hcl")}, got)
	})

	t.Run("doublestar glob", func(t *testing.T) {
		got, err := FindFiles(filepath.Join(root, "**", "*.hcl"), ".hcl")
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Contains(t, got, filepath.Join(root, "nested", "c.hcl"))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := FindFiles(filepath.Join(root, "nope"), ".hcl")
		require.Error(t, err)
	})
}

func TestFindFilesByExtension_PanicsOnEmptyExtension(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}
