package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(icao string) domain.TraceRecord {
	aircraftType := "B738"
	return domain.TraceRecord{
		ICAO:         icao,
		AircraftType: &aircraftType,
		Trace: []domain.TracePoint{
			{Timestamp: 1000, Lat: 52.0, Lon: 19.0, Altitude: json.RawMessage("35000")},
			{Timestamp: 1005, Lat: 52.1, Lon: 19.1, Altitude: json.RawMessage("null")},
		},
	}
}

func TestShardedWriter_Save(t *testing.T) {
	root := t.TempDir()
	w := NewShardedWriter()

	rec := testRecord("ABC123")
	require.NoError(t, w.Save(rec, root))

	path := filepath.Join(root, "23", "ABC123.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got domain.TraceRecord
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("saved record mismatch (-want +got):\n%s", diff)
	}

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Len(t, keys, 3)
	assert.Contains(t, keys, "icao")
	assert.Contains(t, keys, "aircraft_type")
	assert.Contains(t, keys, "trace")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestShardedWriter_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	w := NewShardedWriter()

	first := testRecord("ABC123")
	second := testRecord("ABC123")
	second.Trace = second.Trace[:1]

	require.NoError(t, w.Save(first, root))
	require.NoError(t, w.Save(second, root))

	entries, err := os.ReadDir(filepath.Join(root, "23"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ABC123.json", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(root, "23", "ABC123.json"))
	require.NoError(t, err)
	var got domain.TraceRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got.Trace, 1)
}

func TestShardedWriter_ConcurrentSharedShard(t *testing.T) {
	root := t.TempDir()
	w := NewShardedWriter()

	// Every address ends in "7F" so all workers race on the same directory.
	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- w.Save(testRecord(fmt.Sprintf("%04X7F", i)), root)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "7F"))
	require.NoError(t, err)
	assert.Len(t, entries, n)
	for _, e := range entries {
		assert.False(t, IsTempFile(e.Name()), e.Name())
	}
}

func TestShardedWriter_DirectoryError(t *testing.T) {
	root := t.TempDir()
	// A regular file where the shard directory should go.
	require.NoError(t, os.WriteFile(filepath.Join(root, "23"), []byte("x"), 0o644))

	err := NewShardedWriter().Save(testRecord("ABC123"), root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create shard directory")
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile(".ABC123.12345.tmp"))
	assert.True(t, IsTempFile(filepath.Join("23", ".ABC123.9.tmp")))
	assert.False(t, IsTempFile("ABC123.json"))
	assert.False(t, IsTempFile(".tmp"))
}
