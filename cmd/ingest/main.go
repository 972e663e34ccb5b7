// Command ingest downloads one day of global ADS-B trace history, keeps the
// positions inside the configured boundary, writes one sharded JSON file per
// aircraft, and packages the result as OUTPUT_DIR/<date>.zip.
//
// Usage:
//
//	ingest [flags] YYYY-MM-DD
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/archive"
	"github.com/couchcryptid/adsb-history-etl/internal/adapter/extract"
	"github.com/couchcryptid/adsb-history-etl/internal/adapter/fsstore"
	"github.com/couchcryptid/adsb-history-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/adsb-history-etl/internal/adapter/kafka"
	"github.com/couchcryptid/adsb-history-etl/internal/adapter/source"
	"github.com/couchcryptid/adsb-history-etl/internal/config"
	"github.com/couchcryptid/adsb-history-etl/internal/observability"
	"github.com/couchcryptid/adsb-history-etl/internal/pipeline"
	flag "github.com/spf13/pflag"
)

const githubTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	threads := flag.IntP("threads", "t", 0, "worker pool size (default CONCURRENCY)")
	workDir := flag.String("workdir", "", "working directory (default WORK_DIR)")
	outputDir := flag.String("output", "", "archive output directory (default OUTPUT_DIR)")
	boundaryFile := flag.String("boundary", "", "YAML boundary file (default BOUNDARY_FILE or the built-in boundary)")
	extractor := flag.String("extractor", "", "tar or native (default EXTRACTOR)")
	skipDownload := flag.Bool("skip-download", false, "ingest an already extracted <workdir>/source/traces tree")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: ingest [flags] YYYY-MM-DD\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 || !source.ValidDate(flag.Arg(0)) {
		flag.Usage()
		return 2
	}
	date := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if flag.CommandLine.Changed("threads") {
		cfg.Concurrency = *threads
	}
	if flag.CommandLine.Changed("workdir") {
		cfg.WorkDir = *workDir
	}
	if flag.CommandLine.Changed("output") {
		cfg.OutputDir = *outputDir
	}
	if flag.CommandLine.Changed("boundary") {
		cfg.BoundaryFile = *boundaryFile
	}
	if flag.CommandLine.Changed("extractor") {
		cfg.Extractor = *extractor
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	boundary, err := config.LoadBoundary(cfg.BoundaryFile)
	if err != nil {
		logger.Error("failed to load boundary", "error", err)
		return 1
	}
	logger.Info("boundary loaded", "name", boundary.Name(), "vertices", len(boundary.Vertices()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.NewParser(boundary), fsstore.NewShardedWriter(), logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	sinks := extract.TarProcessFactory("")
	if cfg.Extractor == config.ExtractorNative {
		sinks = extract.NativeTarFactory
	}
	gh := source.NewGitHubClient(cfg.GitHubAPIURL, cfg.GitHubToken, githubTimeout, logger)

	a := &app{
		cfg:          cfg,
		skipDownload: *skipDownload,
		tags:         gh,
		lister:       source.NewGlobeHistory(gh, cfg.SourceRepos, logger),
		extractor:    extract.NewExtractor(source.NewHTTPFetcher(cfg.ResponseHeaderTimeout), sinks, logger, metrics),
		ingest:       p,
		packager:     archive.NewZipPackager(logger),
		logger:       logger,
	}
	if cfg.NotifierEnabled() {
		n := kafkaadapter.NewNotifier(cfg, logger)
		defer func() {
			if err := n.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		a.notifier = n
	}

	if err := a.run(ctx, date); err != nil {
		logger.Error("ingest failed", "date", date, "error", err)
		return 1
	}
	logger.Info("ingest complete", "date", date)
	return 0
}
