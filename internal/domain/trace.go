package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// altitudeIndex is the position of geometric altitude (feet) in a trace element.
const altitudeIndex = 10

var (
	// ErrMissingField is returned when a required document or sample field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidICAO is returned for addresses that cannot be used as a file name.
	ErrInvalidICAO = errors.New("invalid icao address")

	// ErrTrailingData is returned when a second JSON value follows the document.
	ErrTrailingData = errors.New("unexpected data after trace document")
)

// TracePoint is one position sample inside the boundary. Altitude is passed
// through verbatim from the source and may be null.
type TracePoint struct {
	Timestamp float64         `json:"timestamp"`
	Lat       float64         `json:"lat"`
	Lon       float64         `json:"lon"`
	Altitude  json.RawMessage `json:"altitude"`
}

// TraceRecord is the normalized output for one aircraft.
type TraceRecord struct {
	ICAO         string       `json:"icao"`
	AircraftType *string      `json:"aircraft_type"`
	Trace        []TracePoint `json:"trace"`
}

// TraceStats counts the samples seen while filtering one trace.
type TraceStats struct {
	Total int
	Kept  int
}

// Dropped returns the number of samples that fell outside the boundary.
func (s TraceStats) Dropped() int {
	return s.Total - s.Kept
}

// rawTrace mirrors the top level of a source trace document. Pointers
// distinguish absent fields from zero values.
type rawTrace struct {
	ICAO      *string            `json:"icao"`
	Type      *string            `json:"t"`
	Timestamp *float64           `json:"timestamp"`
	Trace     *[]json.RawMessage `json:"trace"`
}

// ParseTrace decodes one uncompressed trace document from r and keeps the
// samples accepted by filter. It returns a nil record (and no error) when
// no sample survives.
func ParseTrace(r io.Reader, filter GeoFilter) (*TraceRecord, TraceStats, error) {
	var stats TraceStats

	dec := json.NewDecoder(r)
	var doc rawTrace
	if err := dec.Decode(&doc); err != nil {
		return nil, stats, fmt.Errorf("decode trace document: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			err = ErrTrailingData
		}
		return nil, stats, fmt.Errorf("decode trace document: %w", err)
	}
	if doc.ICAO == nil {
		return nil, stats, fmt.Errorf("icao: %w", ErrMissingField)
	}
	if doc.Timestamp == nil {
		return nil, stats, fmt.Errorf("timestamp: %w", ErrMissingField)
	}
	if doc.Trace == nil {
		return nil, stats, fmt.Errorf("trace: %w", ErrMissingField)
	}

	icao, err := NormalizeICAO(*doc.ICAO)
	if err != nil {
		return nil, stats, err
	}

	var points []TracePoint
	for i, element := range *doc.Trace {
		stats.Total++

		p, err := parseSample(element, *doc.Timestamp)
		if err != nil {
			return nil, stats, fmt.Errorf("trace[%d]: %w", i, err)
		}
		if !filter.Matches(p.Lat, p.Lon) {
			continue
		}
		points = append(points, p)
	}
	stats.Kept = len(points)

	if len(points) == 0 {
		return nil, stats, nil
	}

	return &TraceRecord{
		ICAO:         icao,
		AircraftType: doc.Type,
		Trace:        points,
	}, stats, nil
}

// NormalizeICAO uppercases an address and rejects values that would escape
// a shard directory.
func NormalizeICAO(icao string) (string, error) {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if icao == "" || icao == "." || icao == ".." || strings.ContainsAny(icao, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidICAO, icao)
	}
	return icao, nil
}

func parseSample(element json.RawMessage, base float64) (TracePoint, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(element, &fields); err != nil {
		return TracePoint{}, fmt.Errorf("decode sample: %w", err)
	}
	if len(fields) < 3 {
		return TracePoint{}, fmt.Errorf("sample has %d fields: %w", len(fields), ErrMissingField)
	}

	offset, err := numberAt(fields, 0, "offset")
	if err != nil {
		return TracePoint{}, err
	}
	lat, err := numberAt(fields, 1, "lat")
	if err != nil {
		return TracePoint{}, err
	}
	lon, err := numberAt(fields, 2, "lon")
	if err != nil {
		return TracePoint{}, err
	}

	var altitude json.RawMessage
	if len(fields) > altitudeIndex {
		altitude = fields[altitudeIndex]
	}

	return TracePoint{
		Timestamp: base + offset,
		Lat:       lat,
		Lon:       lon,
		Altitude:  altitude,
	}, nil
}

func numberAt(fields []json.RawMessage, i int, name string) (float64, error) {
	var v *float64
	if err := json.Unmarshal(fields[i], &v); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if v == nil {
		return 0, fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	return *v, nil
}
