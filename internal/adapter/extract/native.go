package extract

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// NativeTar extracts a tar stream in-process. Only directories and regular
// files are materialized; every other entry type is skipped.
type NativeTar struct {
	pw   *io.PipeWriter
	done chan struct{}
	err  error
}

// NativeTarFactory is a SinkFactory backed by NativeTar.
func NativeTarFactory(ctx context.Context, dest string) (Sink, error) {
	return StartNativeTar(ctx, dest)
}

// StartNativeTar starts extracting into dest, creating dest if needed.
func StartNativeTar(ctx context.Context, dest string) (*NativeTar, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}

	pr, pw := io.Pipe()
	n := &NativeTar{pw: pw, done: make(chan struct{})}
	go func() {
		defer close(n.done)
		n.err = untar(ctx, pr, dest)
		if n.err != nil {
			_ = pr.CloseWithError(n.err)
			return
		}
		// Trailing padding after the end-of-archive marker.
		_, _ = io.Copy(io.Discard, pr)
	}()
	return n, nil
}

func (n *NativeTar) Write(p []byte) (int, error) {
	return n.pw.Write(p)
}

// Close ends the input stream.
func (n *NativeTar) Close() error {
	return n.pw.Close()
}

// Terminate aborts extraction and waits for the reader goroutine to exit.
func (n *NativeTar) Terminate() error {
	_ = n.pw.CloseWithError(ErrTerminated)
	<-n.done
	return nil
}

// Wait blocks until the whole stream has been extracted.
func (n *NativeTar) Wait() error {
	<-n.done
	return n.err
}

func untar(ctx context.Context, r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		name := filepath.Clean(filepath.FromSlash(hdr.Name))
		if !filepath.IsLocal(name) {
			return fmt.Errorf("tar entry %q escapes extraction directory", hdr.Name)
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extract %s: %w", name, err)
			}
		}
	}
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
