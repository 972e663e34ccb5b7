// Command genfixture writes synthetic readsb trace files for local runs. By
// default it writes a traces/ tree of gzip-compressed documents; with --parts
// it writes the same tree as a tar stream split into .aa, .ab, ... parts, the
// way daily globe-history releases are published.
//
// Usage:
//
//	go run ./cmd/genfixture --out workdir/source --count 500
//	go run ./cmd/genfixture --out fixtures --parts 3 --name v2025.03.01-planes-readsb-prod-0.tar
package main

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/adsb-history-etl/internal/config"
	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/klauspost/compress/gzip"
	flag "github.com/spf13/pflag"
)

type options struct {
	out         string
	count       int
	samples     int
	insideRatio float64
	date        string
	seed        uint64
	parts       int
	name        string
	boundary    string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.out, "out", "", "output directory")
	flag.IntVar(&o.count, "count", 100, "number of aircraft trace files")
	flag.IntVar(&o.samples, "samples", 20, "samples per trace")
	flag.Float64Var(&o.insideRatio, "inside-ratio", 0.5, "fraction of samples placed inside the boundary")
	flag.StringVar(&o.date, "date", "2025-03-01", "day the traces belong to (YYYY-MM-DD)")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed")
	flag.IntVar(&o.parts, "parts", 0, "split a tar stream into this many parts instead of writing a tree")
	flag.StringVar(&o.name, "name", "", "base name of the split tar parts (default v<date>-planes-readsb-prod-0.tar)")
	flag.StringVar(&o.boundary, "boundary", "", "YAML boundary file (default: built-in Poland boundary)")
	flag.Parse()

	if o.out == "" || o.count < 1 || o.samples < 1 {
		flag.Usage()
		os.Exit(1)
	}
	day, err := time.Parse("2006-01-02", o.date)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}
	boundary, err := config.LoadBoundary(o.boundary)
	if err != nil {
		return err
	}
	if o.name == "" {
		o.name = "v" + strings.ReplaceAll(o.date, "-", ".") + "-planes-readsb-prod-0.tar"
	}

	files, err := generate(o, day, boundary)
	if err != nil {
		return err
	}
	if o.parts > 0 {
		return writeParts(o, files)
	}
	return writeTree(o.out, files)
}

type fixtureFile struct {
	name string // slash-separated, relative to the output root
	data []byte // gzip-compressed document
}

// generate builds count trace documents. Samples alternate between a point
// drawn from inside the boundary and one far outside it.
func generate(o options, day time.Time, boundary *domain.Boundary) ([]fixtureFile, error) {
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	minLon, minLat, maxLon, maxLat := bounds(boundary.Vertices())

	files := make([]fixtureFile, 0, o.count)
	seen := make(map[string]bool, o.count)
	for len(files) < o.count {
		icao := fmt.Sprintf("%06x", rng.IntN(1<<24))
		if seen[icao] {
			continue
		}
		seen[icao] = true

		start := float64(day.Unix()) + float64(rng.IntN(20*3600))
		trace := make([][]any, 0, o.samples)
		offset := 0.0
		for i := 0; i < o.samples; i++ {
			var lat, lon float64
			if rng.Float64() < o.insideRatio {
				lat, lon = pointInside(rng, boundary, minLon, minLat, maxLon, maxLat)
			} else {
				lat, lon = -33.9+rng.Float64(), 151.1+rng.Float64()
			}
			alt := any(1000 + rng.IntN(39000))
			if rng.IntN(10) == 0 {
				alt = "ground"
			}
			// offset, lat, lon, alt_baro, gs, track, flags, baro_rate, details, source, alt_geom
			trace = append(trace, []any{
				offset, round(lat), round(lon), alt, 420.5, 87.3, 0, 0, nil, "adsb_icao", alt,
			})
			offset += float64(5 + rng.IntN(30))
		}

		doc := map[string]any{
			"icao":      icao,
			"timestamp": start,
			"trace":     trace,
		}
		if rng.IntN(4) != 0 {
			doc["t"] = []string{"B738", "A320", "A20N", "E195", "C172"}[rng.IntN(5)]
		}
		data, err := compress(doc)
		if err != nil {
			return nil, err
		}
		files = append(files, fixtureFile{
			name: path.Join("traces", icao[len(icao)-2:], "trace_full_"+icao+".json"),
			data: data,
		})
	}
	return files, nil
}

func pointInside(rng *rand.Rand, filter domain.GeoFilter, minLon, minLat, maxLon, maxLat float64) (float64, float64) {
	for {
		lat := minLat + rng.Float64()*(maxLat-minLat)
		lon := minLon + rng.Float64()*(maxLon-minLon)
		if filter.Matches(lat, lon) {
			return lat, lon
		}
	}
}

func bounds(vs []domain.Vertex) (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat, maxLon, maxLat = vs[0].Lon, vs[0].Lat, vs[0].Lon, vs[0].Lat
	for _, v := range vs[1:] {
		minLon, maxLon = min(minLon, v.Lon), max(maxLon, v.Lon)
		minLat, maxLat = min(minLat, v.Lat), max(maxLat, v.Lat)
	}
	return
}

func round(v float64) float64 {
	return float64(int64(v*1e6)) / 1e6
}

func compress(doc any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress fixture: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTree(root string, files []fixtureFile) error {
	for _, f := range files {
		dst := filepath.Join(root, filepath.FromSlash(f.name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, f.data, 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote %d trace files under %s\n", len(files), filepath.Join(root, "traces"))
	return nil
}

// writeParts tars files and cuts the stream into o.parts pieces.
func writeParts(o options, files []fixtureFile) error {
	var stream bytes.Buffer
	tw := tar.NewWriter(&stream)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(f.data); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return err
	}
	size := (stream.Len() + o.parts - 1) / o.parts
	for i := 0; i < o.parts; i++ {
		name := fmt.Sprintf("%s.%s", o.name, partSuffix(i))
		f, err := os.Create(filepath.Join(o.out, name))
		if err != nil {
			return err
		}
		_, err = io.CopyN(f, &stream, int64(size))
		if err != nil && err != io.EOF {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", name)
	}
	return nil
}

// partSuffix mirrors split(1): aa, ab, ..., az, ba, ...
func partSuffix(i int) string {
	return string([]byte{byte('a' + i/26%26), byte('a' + i%26)})
}
