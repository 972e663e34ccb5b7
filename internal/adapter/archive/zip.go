package archive

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/fsstore"
	"github.com/klauspost/compress/zip"
)

// ZipPackager bundles a finished output tree into a single archive.
type ZipPackager struct {
	logger *slog.Logger
}

// NewZipPackager creates a ZipPackager.
func NewZipPackager(logger *slog.Logger) *ZipPackager {
	return &ZipPackager{logger: logger}
}

// Package writes every regular file under root into a deflated zip at dest,
// named by its slash-separated path relative to root. Interrupted shard
// writes are left out. dest is written via a temporary file and renamed.
func (p *ZipPackager) Package(root, dest string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	count, err := writeZip(tmp, root)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("package %s: %w", root, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("publish archive: %w", err)
	}

	p.logger.Info("output packaged", "root", root, "archive", dest, "files", count)
	return count, nil
}

func writeZip(w io.Writer, root string) (int, error) {
	zw := zip.NewWriter(w)
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || fsstore.IsTempFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return count, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
