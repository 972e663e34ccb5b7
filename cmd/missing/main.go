// Command missing lists the days of a year that have no YYYY-MM-DD tag in
// TARGET_REPO yet, one per line, so they can be fed to ingest.
//
// Usage:
//
//	TARGET_REPO=me/adsb-history go run ./cmd/missing --year 2025 --limit 10
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/source"
	"github.com/couchcryptid/adsb-history-etl/internal/config"
	"github.com/couchcryptid/adsb-history-etl/internal/observability"
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	now := time.Now().UTC()
	year := flag.Int("year", now.Year(), "year to check")
	limit := flag.Int("limit", 0, "print at most this many dates (0 = all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.TargetRepo == "" {
		return fmt.Errorf("TARGET_REPO is required")
	}
	logger := observability.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	gh := source.NewGitHubClient(cfg.GitHubAPIURL, cfg.GitHubToken, 30*time.Second, logger)
	tags, err := gh.ListTags(ctx, cfg.TargetRepo)
	if err != nil {
		return err
	}

	missing := source.MissingDates(*year, now, tags)
	logger.Info("missing dates found", "repo", cfg.TargetRepo, "year", *year, "count", len(missing))
	if *limit > 0 && len(missing) > *limit {
		missing = missing[:*limit]
	}
	for _, d := range missing {
		fmt.Fprintln(os.Stdout, d)
	}
	return nil
}
