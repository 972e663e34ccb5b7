package source

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/extract"
)

// ReleaseListFile lists, one date per line, the part URLs of the preferred
// release for that date.
const ReleaseListFile = "PREFERRED_RELEASES.txt"

var releaseDate = regexp.MustCompile(`.*/v(\d{4}\.\d{2}\.\d{2})-.*`)

// ContentsReader is the subset of the GitHub client the lister needs.
type ContentsReader interface {
	GetFileContents(ctx context.Context, repo, path string) (string, error)
}

// GlobeHistory discovers the archive parts published for a day across the
// yearly globe-history repositories.
type GlobeHistory struct {
	client ContentsReader
	repos  []string
	logger *slog.Logger
}

// NewGlobeHistory creates a lister over repos. Later repositories take
// precedence for dates listed more than once.
func NewGlobeHistory(client ContentsReader, repos []string, logger *slog.Logger) *GlobeHistory {
	return &GlobeHistory{client: client, repos: repos, logger: logger}
}

// Sources returns the part URLs for every listed date, keyed by YYYY-MM-DD.
func (g *GlobeHistory) Sources(ctx context.Context) (map[string][]string, error) {
	sources := make(map[string][]string)
	for _, repo := range g.repos {
		raw, err := g.client.GetFileContents(ctx, repo, ReleaseListFile)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("%s in %s is empty", ReleaseListFile, repo)
		}

		listed, err := ParseReleaseList(raw)
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", ReleaseListFile, repo, err)
		}
		for date, urls := range listed {
			sources[date] = urls
		}
		g.logger.Debug("release list loaded", "repo", repo, "dates", len(listed))
	}
	return sources, nil
}

// PartsForDate returns the archive parts for date, or nil if none are listed.
func (g *GlobeHistory) PartsForDate(ctx context.Context, date string) ([]extract.Part, error) {
	sources, err := g.Sources(ctx)
	if err != nil {
		return nil, err
	}
	urls := sources[date]
	parts := make([]extract.Part, 0, len(urls))
	for _, u := range urls {
		parts = append(parts, extract.PartFromURL(u))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return parts, nil
}

// ParseReleaseList parses a release list: each non-blank line is a
// comma-separated list of part URLs whose path carries a /vYYYY.MM.DD- release
// name. A later line for the same date replaces an earlier one.
func ParseReleaseList(raw string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := releaseDate.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("could not infer date from line %q", line)
		}
		date := strings.ReplaceAll(m[1], ".", "-")

		var urls []string
		for _, u := range strings.Split(line, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		out[date] = urls
	}
	return out, nil
}
