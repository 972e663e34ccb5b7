// Command validate checks the integrity of an ingest output, either the
// sharded tree or the packaged zip. Every record must decode, live at its
// shard path, carry at least one point, and have every point inside the
// boundary.
//
// Usage:
//
//	go run ./cmd/validate workdir/parsed
//	go run ./cmd/validate --boundary region.yaml output/2025-03-01.zip
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/fsstore"
	"github.com/couchcryptid/adsb-history-etl/internal/config"
	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/klauspost/compress/zip"
	flag "github.com/spf13/pflag"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// entry is one file of the output, addressed by its slash-separated path
// relative to the output root.
type entry struct {
	name string
	open func() (io.ReadCloser, error)
}

func main() {
	boundaryFile := flag.String("boundary", "", "YAML boundary file (default: built-in Poland boundary)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: validate [--boundary FILE] <output-dir|archive.zip>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0), *boundaryFile, os.Stdout))
}

func run(target, boundaryFile string, out io.Writer) int {
	boundary, err := config.LoadBoundary(boundaryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	entries, closeFn, err := listEntries(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer closeFn()

	fmt.Fprintf(out, "=== Trace Output Validation: %s ===\n\n", target)

	layout := &phase{name: "Phase 1: Layout (shard paths)"}
	records := &phase{name: "Phase 2: Records (decode, points)"}
	geography := &phase{name: fmt.Sprintf("Phase 3: Geography (%s)", boundary.Name())}

	var nRecords, nPoints int
	for _, e := range entries {
		rec, ok := checkLayout(layout, e)
		if !ok {
			continue
		}
		decoded, ok := checkRecord(records, e, rec)
		if !ok {
			continue
		}
		checkGeography(geography, e, decoded, boundary)
		nRecords++
		nPoints += len(decoded.Trace)
	}

	phases := []*phase{layout, records, geography}
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintf(out, "\nFiles: %d, records: %d, points: %d\n", len(entries), nRecords, nPoints)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Loading ──

func listEntries(target string) ([]entry, func(), error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		entries, err := dirEntries(target)
		return entries, func() {}, err
	}
	return zipEntries(target)
}

func dirEntries(root string) ([]entry, error) {
	var entries []entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{
			name: filepath.ToSlash(rel),
			open: func() (io.ReadCloser, error) { return os.Open(p) },
		})
		return nil
	})
	return entries, err
}

func zipEntries(archive string) ([]entry, func(), error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	var entries []entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, entry{name: f.Name, open: f.Open})
	}
	return entries, func() { zr.Close() }, nil
}

// ── Phases ──

// checkLayout verifies e sits at <shard>/<ICAO>.json for its own ICAO and
// returns that ICAO.
func checkLayout(p *phase, e entry) (string, bool) {
	base := path.Base(e.name)
	if fsstore.IsTempFile(base) {
		p.errorf("%s: leftover temporary file", e.name)
		return "", false
	}
	icao, ok := strings.CutSuffix(base, ".json")
	if !ok {
		p.errorf("%s: not a .json record", e.name)
		return "", false
	}
	normalized, err := domain.NormalizeICAO(icao)
	if err != nil || normalized != icao {
		p.errorf("%s: file name is not a normalized ICAO", e.name)
		return "", false
	}
	if want := path.Join(domain.ShardKey(icao), base); e.name != want {
		p.errorf("%s: expected at %s", e.name, want)
		return "", false
	}
	return icao, true
}

func checkRecord(p *phase, e entry, icao string) (*domain.TraceRecord, bool) {
	rc, err := e.open()
	if err != nil {
		p.errorf("%s: open: %v", e.name, err)
		return nil, false
	}
	defer rc.Close()

	var rec domain.TraceRecord
	if err := json.NewDecoder(rc).Decode(&rec); err != nil {
		p.errorf("%s: decode: %v", e.name, err)
		return nil, false
	}
	if rec.ICAO != icao {
		p.errorf("%s: record ICAO %q does not match file name", e.name, rec.ICAO)
	}
	if len(rec.Trace) == 0 {
		p.errorf("%s: record has no points", e.name)
		return nil, false
	}
	return &rec, true
}

func checkGeography(p *phase, e entry, rec *domain.TraceRecord, filter domain.GeoFilter) {
	outside := 0
	for _, pt := range rec.Trace {
		if !filter.Matches(pt.Lat, pt.Lon) {
			outside++
		}
	}
	if outside > 0 {
		p.errorf("%s: %d of %d points outside the boundary", e.name, outside, len(rec.Trace))
	}
}
