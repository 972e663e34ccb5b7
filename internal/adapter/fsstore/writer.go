package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/adsb-history-etl/internal/domain"
)

// ShardedWriter persists trace records at their shard path.
// It implements pipeline.Loader.
type ShardedWriter struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// NewShardedWriter creates a writer producing world-readable output.
func NewShardedWriter() *ShardedWriter {
	return &ShardedWriter{dirPerm: 0o755, filePerm: 0o644}
}

// Save writes record to <root>/<shard>/<ICAO>.json. The content is written to
// a temporary file in the shard directory and renamed into place, so readers
// never see a partial file.
func (w *ShardedWriter) Save(record domain.TraceRecord, root string) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("serialize trace record %s: %w", record.ICAO, err)
	}

	path := domain.ShardPath(root, record.ICAO)
	dir := filepath.Dir(path)

	// MkdirAll tolerates a concurrent creator of the same directory.
	if err := os.MkdirAll(dir, w.dirPerm); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+record.ICAO+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(w.filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// IsTempFile reports whether name is an in-progress write left by Save.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	return len(base) > 5 && base[0] == '.' && filepath.Ext(base) == ".tmp"
}
