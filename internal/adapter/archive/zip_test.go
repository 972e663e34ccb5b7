package archive_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/archive"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipPackager_Package(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "04/3C6704.json", `{"icao":"3C6704"}`)
	writeFile(t, root, "A1/4CA7A1.json", `{"icao":"4CA7A1"}`)
	writeFile(t, root, "A1/.4CA7A2.123.tmp", "partial")

	dest := filepath.Join(t.TempDir(), "out", "2025-03-01.zip")
	n, err := archive.NewZipPackager(slog.Default()).Package(root, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	got := map[string]string{}
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		got[f.Name] = string(data)
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"04/3C6704.json", "A1/4CA7A1.json"}, names)
	assert.Equal(t, `{"icao":"4CA7A1"}`, got["A1/4CA7A1.json"])

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary archive left behind")
}

func TestZipPackager_EmptyTree(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "empty.zip")
	n, err := archive.NewZipPackager(slog.Default()).Package(t.TempDir(), dest)
	require.NoError(t, err)
	assert.Zero(t, n)

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()
	assert.Empty(t, zr.File)
}

func TestZipPackager_MissingRoot(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "x.zip")
	_, err := archive.NewZipPackager(slog.Default()).Package(filepath.Join(t.TempDir(), "nope"), dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
