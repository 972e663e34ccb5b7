package domain

import (
	"fmt"
	"math"
)

// onEdgeTolerance absorbs float rounding when testing whether a point lies on
// a polygon edge. Roughly 0.1 mm at the equator.
const onEdgeTolerance = 1e-9

// GeoFilter decides whether a coordinate belongs to the area of interest.
type GeoFilter interface {
	Matches(lat, lon float64) bool
}

// Vertex is a polygon corner in WGS-84 degrees.
type Vertex struct {
	Lon float64
	Lat float64
}

// Boundary is an immutable closed polygon. Points on an edge or vertex are
// inside.
type Boundary struct {
	name   string
	ring   []Vertex
	minLat float64
	maxLat float64
	minLon float64
	maxLon float64
}

// polandVertices is a coarse, hand-drawn outline of Poland's border, as
// (lon, lat) pairs.
var polandVertices = []Vertex{
	{Lon: 14.219055, Lat: 54.13026},
	{Lon: 14.073486, Lat: 52.835958},
	{Lon: 14.765625, Lat: 50.868378},
	{Lon: 16.578369, Lat: 50.092393},
	{Lon: 19.753418, Lat: 49.188884},
	{Lon: 22.906494, Lat: 48.980217},
	{Lon: 24.301758, Lat: 50.792047},
	{Lon: 24.0271, Lat: 53.054422},
	{Lon: 23.461304, Lat: 54.361358},
	{Lon: 18.396606, Lat: 55.040614},
	{Lon: 14.219055, Lat: 54.13026},
}

// PolandBoundary returns the default boundary.
func PolandBoundary() *Boundary {
	b, err := NewBoundary("poland", polandVertices)
	if err != nil {
		panic(err) // static data
	}
	return b
}

// NewBoundary builds a boundary from at least three vertices. The ring is
// closed if the last vertex does not repeat the first.
func NewBoundary(name string, vertices []Vertex) (*Boundary, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("boundary %q: need at least 3 vertices, got %d", name, len(vertices))
	}

	ring := make([]Vertex, 0, len(vertices)+1)
	for i, v := range vertices {
		if !validCoordinate(v.Lat, v.Lon) {
			return nil, fmt.Errorf("boundary %q: vertex %d (%v, %v) out of range", name, i, v.Lon, v.Lat)
		}
		ring = append(ring, v)
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil, fmt.Errorf("boundary %q: degenerate ring", name)
	}

	b := &Boundary{
		name:   name,
		ring:   ring,
		minLat: math.Inf(1),
		maxLat: math.Inf(-1),
		minLon: math.Inf(1),
		maxLon: math.Inf(-1),
	}
	for _, v := range ring {
		b.minLat = math.Min(b.minLat, v.Lat)
		b.maxLat = math.Max(b.maxLat, v.Lat)
		b.minLon = math.Min(b.minLon, v.Lon)
		b.maxLon = math.Max(b.maxLon, v.Lon)
	}
	return b, nil
}

// Name identifies the boundary in logs.
func (b *Boundary) Name() string { return b.name }

// Vertices returns a copy of the closed ring.
func (b *Boundary) Vertices() []Vertex {
	out := make([]Vertex, len(b.ring))
	copy(out, b.ring)
	return out
}

// Matches reports whether (lat, lon) is inside or on the boundary, using
// even-odd ray casting. Non-finite or out-of-range input is never inside.
func (b *Boundary) Matches(lat, lon float64) bool {
	if !validCoordinate(lat, lon) {
		return false
	}
	if lat < b.minLat-onEdgeTolerance || lat > b.maxLat+onEdgeTolerance ||
		lon < b.minLon-onEdgeTolerance || lon > b.maxLon+onEdgeTolerance {
		return false
	}

	inside := false
	for i := 0; i < len(b.ring)-1; i++ {
		a, c := b.ring[i], b.ring[i+1]
		if onSegment(a, c, lon, lat) {
			return true
		}
		if (a.Lat > lat) != (c.Lat > lat) {
			cross := a.Lon + (lat-a.Lat)*(c.Lon-a.Lon)/(c.Lat-a.Lat)
			if lon < cross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, c Vertex, x, y float64) bool {
	cross := (c.Lon-a.Lon)*(y-a.Lat) - (c.Lat-a.Lat)*(x-a.Lon)
	if math.Abs(cross) > onEdgeTolerance {
		return false
	}
	return x >= math.Min(a.Lon, c.Lon)-onEdgeTolerance &&
		x <= math.Max(a.Lon, c.Lon)+onEdgeTolerance &&
		y >= math.Min(a.Lat, c.Lat)-onEdgeTolerance &&
		y <= math.Max(a.Lat, c.Lat)+onEdgeTolerance
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
