package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/adsb-history-etl/internal/observability"
)

// chunkSize is the copy buffer between a download and the sink.
const chunkSize = 1 << 20

// ErrTerminated is reported by a sink that was torn down before its input ended.
var ErrTerminated = errors.New("extraction terminated")

// Part is one fragment of a split archive.
type Part struct {
	URL    string
	Suffix string
}

// PartFromURL derives the part suffix from the final extension of the URL
// path, e.g. ".../v2025.03.01-planes-readsb-prod-0.tar.ab" -> "ab".
func PartFromURL(rawURL string) Part {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return Part{URL: rawURL, Suffix: strings.TrimPrefix(path.Ext(p), ".")}
}

// SortParts returns the parts in feeding order: ascending suffix, ties
// broken by URL. The input is not modified.
func SortParts(parts []Part) []Part {
	sorted := make([]Part, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Suffix != sorted[j].Suffix {
			return sorted[i].Suffix < sorted[j].Suffix
		}
		return sorted[i].URL < sorted[j].URL
	})
	return sorted
}

// Fetcher opens a streaming download. Implementations must fail on a
// non-success status.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Sink consumes a tar stream and extracts it.
//
// Close signals end of input, Wait blocks until extraction has finished, and
// Terminate aborts extraction and releases every resource the sink holds.
type Sink interface {
	io.Writer
	Close() error
	Terminate() error
	Wait() error
}

// SinkFactory starts a sink extracting into dest.
type SinkFactory func(ctx context.Context, dest string) (Sink, error)

// Extractor streams the parts of one archive, in order, into a single sink.
type Extractor struct {
	fetcher Fetcher
	newSink SinkFactory
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExtractor creates an Extractor.
func NewExtractor(fetcher Fetcher, newSink SinkFactory, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		newSink: newSink,
		logger:  logger,
		metrics: metrics,
	}
}

// Extract downloads parts in suffix order and feeds them, chunk by chunk, to
// a fresh sink extracting into dest. Any download or write failure
// terminates the sink; a partially fed archive is never waited on.
func (e *Extractor) Extract(ctx context.Context, parts []Part, dest string) error {
	if len(parts) == 0 {
		return errors.New("no archive parts to extract")
	}
	start := time.Now()
	ordered := SortParts(parts)

	sink, err := e.newSink(ctx, dest)
	if err != nil {
		return fmt.Errorf("start extraction sink: %w", err)
	}

	buf := make([]byte, chunkSize)
	var total int64
	for i, part := range ordered {
		e.logger.Info("streaming archive part",
			"part", part.Suffix, "index", i+1, "of", len(ordered), "url", part.URL)

		n, err := e.feed(ctx, sink, part, buf)
		total += n
		e.metrics.BytesDownloaded.Add(float64(n))
		if err != nil {
			e.abort(sink, part, err)
			return fmt.Errorf("stream part %s: %w", part.Suffix, err)
		}
		e.metrics.PartsExtracted.Inc()
	}

	if err := sink.Close(); err != nil {
		e.abort(sink, Part{}, err)
		return fmt.Errorf("close extraction input: %w", err)
	}
	if err := sink.Wait(); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}

	e.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	e.logger.Info("archive extracted", "parts", len(ordered), "bytes", total, "dest", dest)
	return nil
}

func (e *Extractor) feed(ctx context.Context, sink Sink, part Part, buf []byte) (int64, error) {
	body, err := e.fetcher.Fetch(ctx, part.URL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	// Hide any ReaderFrom on the sink so data moves in bounded chunks.
	return io.CopyBuffer(struct{ io.Writer }{sink}, body, buf)
}

func (e *Extractor) abort(sink Sink, part Part, cause error) {
	e.logger.Error("terminating extraction", "part", part.Suffix, "error", cause)
	if err := sink.Terminate(); err != nil {
		e.logger.Warn("terminate extraction sink", "error", err)
	}
}
