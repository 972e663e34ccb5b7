package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/couchcryptid/adsb-history-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Parser decodes one source trace file. A nil record with a nil error means
// no sample survived filtering.
type Parser interface {
	ParseFile(path string) (*domain.TraceRecord, domain.TraceStats, error)
}

// Loader persists one record under the output root.
type Loader interface {
	Save(record domain.TraceRecord, outputRoot string) error
}

// RunOptions selects the trees and pool size for one run.
type RunOptions struct {
	Date        string
	TracesRoot  string
	OutputRoot  string
	Concurrency int
}

// Pipeline parses, filters, and shards every file under a traces tree,
// deleting each source file once it has been handled.
type Pipeline struct {
	parser  Parser
	loader  Loader
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	mu       sync.Mutex
	progress domain.RunSummary
}

// New creates a Pipeline with the given stages and observability.
func New(parser Parser, loader Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		parser:  parser,
		loader:  loader,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the pipeline has finished at least one file.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any files yet")
	}
	return nil
}

// Status returns a snapshot of the current or most recent run.
func (p *Pipeline) Status() domain.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Run processes every file under opts.TracesRoot with opts.Concurrency
// workers and blocks until all of them are done. Per-file failures do not
// stop other files; they are returned together as a *RunError. Cancelling
// ctx stops new files from being scheduled and lets in-flight ones finish.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	if opts.Concurrency < 1 {
		return domain.RunSummary{}, fmt.Errorf("concurrency must be positive, got %d", opts.Concurrency)
	}

	files, err := listFiles(opts.TracesRoot)
	if err != nil {
		return domain.RunSummary{}, err
	}

	p.mu.Lock()
	p.progress = domain.StartRun(opts.Date)
	p.progress.FilesDiscovered = len(files)
	p.mu.Unlock()

	p.metrics.FilesDiscovered.Add(float64(len(files)))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("pipeline started",
		"traces_root", opts.TracesRoot,
		"output_root", opts.OutputRoot,
		"files", len(files),
		"concurrency", opts.Concurrency,
	)

	var (
		failuresMu sync.Mutex
		failures   []FileError
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// g.Go may have waited for a slot past cancellation.
			if ctx.Err() != nil {
				return nil
			}
			res := p.processFile(path, opts.OutputRoot)
			p.record(res)
			if res.err != nil {
				failuresMu.Lock()
				failures = append(failures, *res.err)
				failuresMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are collected above

	p.mu.Lock()
	p.progress.Finish()
	summary := p.progress
	p.mu.Unlock()

	p.logger.Info("pipeline finished",
		"files", summary.FilesDiscovered,
		"written", summary.FilesWritten,
		"skipped", summary.FilesSkipped,
		"failed", summary.FilesFailed,
		"points_kept", summary.PointsKept,
		"duration", summary.Duration(),
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("pipeline interrupted after %d of %d files: %w",
			summary.Processed(), summary.FilesDiscovered, err)
	}
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
		return summary, &RunError{Failures: failures}
	}
	return summary, nil
}

type outcome string

const (
	outcomeWritten outcome = "written"
	outcomeSkipped outcome = "skipped"
	outcomeFailed  outcome = "failed"
)

type fileResult struct {
	outcome outcome
	stats   domain.TraceStats
	err     *FileError
}

// processFile takes a source file through parse, filter, and write. The file
// is deleted on every exit path.
func (p *Pipeline) processFile(path, outputRoot string) (res fileResult) {
	start := time.Now()
	defer func() {
		p.removeSource(path)
		p.metrics.FileProcessingDuration.Observe(time.Since(start).Seconds())
		p.metrics.FilesProcessed.WithLabelValues(string(res.outcome)).Inc()
	}()

	rec, stats, err := p.parser.ParseFile(path)
	if err != nil {
		return p.fail(res, path, StageParse, err)
	}
	res.stats = stats
	if rec == nil {
		res.outcome = outcomeSkipped
		return res
	}

	if err := p.loader.Save(*rec, outputRoot); err != nil {
		return p.fail(res, path, StageWrite, err)
	}
	res.outcome = outcomeWritten
	return res
}

func (p *Pipeline) fail(res fileResult, path string, stage Stage, err error) fileResult {
	p.logger.Warn("trace file failed", "path", path, "stage", stage, "error", err)
	res.outcome = outcomeFailed
	res.err = &FileError{Path: path, Stage: stage, Err: err}
	return res
}

func (p *Pipeline) removeSource(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.metrics.CleanupErrors.Inc()
		p.logger.Warn("remove source file failed", "path", path, "error", err)
	}
}

func (p *Pipeline) record(res fileResult) {
	p.metrics.PointsKept.Add(float64(res.stats.Kept))
	p.metrics.PointsDropped.Add(float64(res.stats.Dropped()))

	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.outcome {
	case outcomeWritten:
		p.progress.FilesWritten++
	case outcomeSkipped:
		p.progress.FilesSkipped++
	case outcomeFailed:
		p.progress.FilesFailed++
	}
	p.progress.PointsKept += int64(res.stats.Kept)
	p.progress.PointsDropped += int64(res.stats.Dropped())
	p.ready.Store(true)
}

// listFiles returns every regular file under root, at any depth.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list trace files under %s: %w", root, err)
	}
	return files, nil
}
