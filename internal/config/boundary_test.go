package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBoundary_Default(t *testing.T) {
	b, err := LoadBoundary("")
	require.NoError(t, err)
	assert.Equal(t, "poland", b.Name())
	assert.True(t, b.Matches(52.2297, 21.0122))
}

func TestLoadBoundary_File(t *testing.T) {
	path := writeFile(t, "square.yaml", `
name: test-square
vertices:
  - [0, 0]
  - [10, 0]
  - [10, 10]
  - [0, 10]
`)

	b, err := LoadBoundary(path)
	require.NoError(t, err)
	assert.Equal(t, "test-square", b.Name())
	assert.Len(t, b.Vertices(), 5)
	assert.True(t, b.Matches(5, 5))
	assert.False(t, b.Matches(52.0, 19.0))
}

func TestLoadBoundary_NameDefaultsToPath(t *testing.T) {
	path := writeFile(t, "tri.yaml", "vertices: [[0, 0], [1, 0], [0, 1]]\n")

	b, err := LoadBoundary(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Name())
}

func TestLoadBoundary_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBoundary(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read boundary file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadBoundary(writeFile(t, "bad.yaml", "vertices: [[0, 0], oops"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse boundary file")
	})

	t.Run("too few vertices", func(t *testing.T) {
		_, err := LoadBoundary(writeFile(t, "line.yaml", "name: line\nvertices: [[0, 0], [1, 1]]\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 3")
	})
}
