package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/extract"
	"github.com/couchcryptid/adsb-history-etl/internal/adapter/kafka"
	"github.com/couchcryptid/adsb-history-etl/internal/config"
	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/couchcryptid/adsb-history-etl/internal/pipeline"
)

const publishTimeout = 10 * time.Second

type partLister interface {
	PartsForDate(ctx context.Context, date string) ([]extract.Part, error)
}

type tagChecker interface {
	TagExists(ctx context.Context, repo, tag string) (bool, error)
}

type archiveExtractor interface {
	Extract(ctx context.Context, parts []extract.Part, dest string) error
}

type ingester interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (domain.RunSummary, error)
}

type packager interface {
	Package(root, dest string) (int, error)
}

type publisher interface {
	Publish(ctx context.Context, event kafka.RunEvent) error
}

// app drives one day through discovery, extraction, ingest, packaging, and
// notification.
type app struct {
	cfg          *config.Config
	skipDownload bool

	tags      tagChecker
	lister    partLister
	extractor archiveExtractor
	ingest    ingester
	packager  packager
	notifier  publisher // nil when disabled
	logger    *slog.Logger
}

func (a *app) sourceDir() string { return filepath.Join(a.cfg.WorkDir, "source") }
func (a *app) parsedDir() string { return filepath.Join(a.cfg.WorkDir, "parsed") }

func (a *app) archivePath(date string) string {
	return filepath.Join(a.cfg.OutputDir, date+".zip")
}

// run processes date. A date with no published sources is not an error.
func (a *app) run(ctx context.Context, date string) error {
	if a.cfg.TargetRepo != "" {
		exists, err := a.tags.TagExists(ctx, a.cfg.TargetRepo, date)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("tag %s already exists in %s", date, a.cfg.TargetRepo)
		}
	}

	if !a.skipDownload {
		parts, err := a.lister.PartsForDate(ctx, date)
		if err != nil {
			return fmt.Errorf("list source files: %w", err)
		}
		if len(parts) == 0 {
			a.logger.Info("no source files found", "date", date)
			return nil
		}
		a.logger.Info("extracting source archive", "date", date, "parts", len(parts), "dest", a.sourceDir())
		if err := a.extractor.Extract(ctx, parts, a.sourceDir()); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(a.parsedDir(), 0o755); err != nil {
		return fmt.Errorf("create parsed directory: %w", err)
	}
	summary, runErr := a.ingest.Run(ctx, pipeline.RunOptions{
		Date:        date,
		TracesRoot:  filepath.Join(a.sourceDir(), "traces"),
		OutputRoot:  a.parsedDir(),
		Concurrency: a.cfg.Concurrency,
	})

	event := kafka.RunEvent{RunSummary: summary}
	if runErr == nil {
		dest := a.archivePath(date)
		if _, err := a.packager.Package(a.parsedDir(), dest); err != nil {
			runErr = err
		} else {
			event.Archive = dest
		}
	} else {
		a.logger.Warn("packaging skipped", "date", date, "error", runErr)
	}

	event.Status = runStatus(runErr)
	if runErr != nil {
		event.Error = runErr.Error()
	}
	a.publish(ctx, event)
	return runErr
}

// publish reports the run even when ctx was cancelled; a failed publish is
// logged, not returned.
func (a *app) publish(ctx context.Context, event kafka.RunEvent) {
	if a.notifier == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := a.notifier.Publish(pubCtx, event); err != nil {
		a.logger.Error("publish run event failed", "date", event.Date, "error", err)
	}
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return kafka.StatusSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return kafka.StatusInterrupted
	default:
		return kafka.StatusFailed
	}
}
