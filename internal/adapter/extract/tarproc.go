package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// TarProcess feeds its input to an external `tar -xf - -C dest` process.
type TarProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

// TarProcessFactory returns a SinkFactory that runs the tar binary found at
// path (or on $PATH when path is empty).
func TarProcessFactory(path string) SinkFactory {
	return func(ctx context.Context, dest string) (Sink, error) {
		return StartTarProcess(ctx, path, dest)
	}
}

// StartTarProcess launches tar extracting into dest, creating dest if needed.
func StartTarProcess(ctx context.Context, tarPath, dest string) (*TarProcess, error) {
	if tarPath == "" {
		tarPath = "tar"
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}

	t := &TarProcess{}
	t.cmd = exec.CommandContext(ctx, tarPath, "-xf", "-", "-C", dest)
	t.cmd.Stderr = &t.stderr

	stdin, err := t.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("tar stdin: %w", err)
	}
	t.stdin = stdin

	if err := t.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start tar: %w", err)
	}
	return t, nil
}

func (t *TarProcess) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Close ends the input stream; tar finishes once it has drained it.
func (t *TarProcess) Close() error {
	return t.stdin.Close()
}

// Terminate kills the process and reaps it.
func (t *TarProcess) Terminate() error {
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill tar: %w", err)
	}
	_ = t.stdin.Close()
	_ = t.Wait()
	return nil
}

// Wait blocks until tar exits. A non-zero exit includes tar's stderr.
func (t *TarProcess) Wait() error {
	t.waitOnce.Do(func() {
		if err := t.cmd.Wait(); err != nil {
			msg := strings.TrimSpace(t.stderr.String())
			if msg != "" {
				t.waitErr = fmt.Errorf("tar: %w: %s", err, msg)
			} else {
				t.waitErr = fmt.Errorf("tar: %w", err)
			}
		}
	})
	return t.waitErr
}
