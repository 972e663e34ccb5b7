package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/klauspost/compress/gzip"
)

// GzipTraceParser implements Parser for gzip-compressed trace documents.
type GzipTraceParser struct {
	filter domain.GeoFilter
}

// NewParser creates a GzipTraceParser that keeps samples accepted by filter.
func NewParser(filter domain.GeoFilter) *GzipTraceParser {
	return &GzipTraceParser{filter: filter}
}

// ParseFile decompresses and decodes the trace at path. The file is only read.
func (p *GzipTraceParser) ParseFile(path string) (*domain.TraceRecord, domain.TraceStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.TraceStats{}, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, domain.TraceStats{}, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	rec, stats, err := domain.ParseTrace(zr, p.filter)
	if err != nil {
		return nil, stats, err
	}

	// Read to EOF so the gzip trailer checksum is verified.
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return nil, stats, fmt.Errorf("read gzip stream: %w", err)
	}
	return rec, stats, nil
}
