package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/adsb-history-etl/internal/adapter/extract"
	"github.com/couchcryptid/adsb-history-etl/internal/adapter/kafka"
	"github.com/couchcryptid/adsb-history-etl/internal/config"
	"github.com/couchcryptid/adsb-history-etl/internal/domain"
	"github.com/couchcryptid/adsb-history-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTags struct {
	exists bool
	err    error
}

func (f *fakeTags) TagExists(context.Context, string, string) (bool, error) { return f.exists, f.err }

type fakeLister struct{ parts []extract.Part }

func (f *fakeLister) PartsForDate(context.Context, string) ([]extract.Part, error) {
	return f.parts, nil
}

type fakeExtractor struct {
	dest  string
	calls int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []extract.Part, dest string) error {
	f.calls++
	f.dest = dest
	return f.err
}

type fakeIngest struct {
	opts    pipeline.RunOptions
	calls   int
	summary domain.RunSummary
	err     error
}

func (f *fakeIngest) Run(_ context.Context, opts pipeline.RunOptions) (domain.RunSummary, error) {
	f.calls++
	f.opts = opts
	return f.summary, f.err
}

type fakePackager struct {
	root, dest string
	calls      int
}

func (f *fakePackager) Package(root, dest string) (int, error) {
	f.calls++
	f.root, f.dest = root, dest
	return 1, nil
}

type fakePublisher struct{ events []kafka.RunEvent }

func (f *fakePublisher) Publish(_ context.Context, e kafka.RunEvent) error {
	f.events = append(f.events, e)
	return nil
}

type harness struct {
	app       *app
	tags      *fakeTags
	lister    *fakeLister
	extractor *fakeExtractor
	ingest    *fakeIngest
	packager  *fakePackager
	notifier  *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		tags:      &fakeTags{},
		lister:    &fakeLister{parts: []extract.Part{extract.PartFromURL("https://h/v2025.03.01-x.tar.aa")}},
		extractor: &fakeExtractor{},
		ingest:    &fakeIngest{summary: domain.RunSummary{Date: "2025-03-01", FilesWritten: 3}},
		packager:  &fakePackager{},
		notifier:  &fakePublisher{},
	}
	h.app = &app{
		cfg: &config.Config{
			WorkDir:     filepath.Join(dir, "workdir"),
			OutputDir:   filepath.Join(dir, "output"),
			Concurrency: 4,
			TargetRepo:  "me/history",
		},
		tags:      h.tags,
		lister:    h.lister,
		extractor: h.extractor,
		ingest:    h.ingest,
		packager:  h.packager,
		notifier:  h.notifier,
		logger:    slog.Default(),
	}
	return h
}

func TestApp_Run_FullFlow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.run(context.Background(), "2025-03-01"))

	workDir := h.app.cfg.WorkDir
	assert.Equal(t, filepath.Join(workDir, "source"), h.extractor.dest)
	assert.Equal(t, pipeline.RunOptions{
		Date:        "2025-03-01",
		TracesRoot:  filepath.Join(workDir, "source", "traces"),
		OutputRoot:  filepath.Join(workDir, "parsed"),
		Concurrency: 4,
	}, h.ingest.opts)
	assert.Equal(t, filepath.Join(workDir, "parsed"), h.packager.root)
	assert.Equal(t, filepath.Join(h.app.cfg.OutputDir, "2025-03-01.zip"), h.packager.dest)

	require.Len(t, h.notifier.events, 1)
	ev := h.notifier.events[0]
	assert.Equal(t, kafka.StatusSucceeded, ev.Status)
	assert.Equal(t, 3, ev.FilesWritten)
	assert.Equal(t, h.packager.dest, ev.Archive)
	assert.Empty(t, ev.Error)
}

func TestApp_Run_RefusesExistingTag(t *testing.T) {
	h := newHarness(t)
	h.tags.exists = true

	err := h.app.run(context.Background(), "2025-03-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Zero(t, h.extractor.calls)
	assert.Zero(t, h.ingest.calls)
}

func TestApp_Run_NoSourcesIsNotAnError(t *testing.T) {
	h := newHarness(t)
	h.lister.parts = nil

	require.NoError(t, h.app.run(context.Background(), "2025-03-01"))
	assert.Zero(t, h.extractor.calls)
	assert.Zero(t, h.ingest.calls)
	assert.Empty(t, h.notifier.events)
}

func TestApp_Run_ExtractionFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.extractor.err = errors.New("download failed")

	err := h.app.run(context.Background(), "2025-03-01")
	require.ErrorIs(t, err, h.extractor.err)
	assert.Zero(t, h.ingest.calls)
}

func TestApp_Run_FileErrorsSkipPackaging(t *testing.T) {
	h := newHarness(t)
	h.ingest.err = &pipeline.RunError{Failures: []pipeline.FileError{
		{Path: "a", Stage: pipeline.StageParse, Err: errors.New("bad gzip")},
	}}

	err := h.app.run(context.Background(), "2025-03-01")
	var runErr *pipeline.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Zero(t, h.packager.calls)

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, kafka.StatusFailed, h.notifier.events[0].Status)
	assert.NotEmpty(t, h.notifier.events[0].Error)
	assert.Empty(t, h.notifier.events[0].Archive)
}

func TestApp_Run_SkipDownload(t *testing.T) {
	h := newHarness(t)
	h.app.skipDownload = true
	h.app.cfg.TargetRepo = ""

	require.NoError(t, h.app.run(context.Background(), "2025-03-01"))
	assert.Zero(t, h.extractor.calls)
	assert.Equal(t, 1, h.ingest.calls)
}

func TestRunStatus(t *testing.T) {
	assert.Equal(t, kafka.StatusSucceeded, runStatus(nil))
	assert.Equal(t, kafka.StatusInterrupted, runStatus(context.Canceled))
	assert.Equal(t, kafka.StatusFailed, runStatus(errors.New("x")))
}
