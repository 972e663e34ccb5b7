package config

import (
	"fmt"
	"os"

	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

// boundaryFile is the on-disk polygon format:
//
//	name: poland
//	vertices:
//	  - [14.219055, 54.13026]   # lon, lat
//	  - ...
type boundaryFile struct {
	Name     string       `yaml:"name"`
	Vertices [][2]float64 `yaml:"vertices"`
}

// LoadBoundary returns the built-in boundary when path is empty, otherwise
// the polygon described by the YAML file at path.
func LoadBoundary(path string) (*domain.Boundary, error) {
	if path == "" {
		return domain.PolandBoundary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary file: %w", err)
	}

	var f boundaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse boundary file %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = path
	}

	vertices := make([]domain.Vertex, len(f.Vertices))
	for i, v := range f.Vertices {
		vertices[i] = domain.Vertex{Lon: v[0], Lat: v[1]}
	}
	return domain.NewBoundary(f.Name, vertices)
}
