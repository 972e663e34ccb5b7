package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "workdir", cfg.WorkDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, ExtractorTar, cfg.Extractor)
	assert.Empty(t, cfg.BoundaryFile)
	assert.Equal(t, DefaultSourceRepos, cfg.SourceRepos)
	assert.Empty(t, cfg.TargetRepo)
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPIURL)
	assert.Empty(t, cfg.GitHubToken)
	assert.Equal(t, 30*time.Second, cfg.ResponseHeaderTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "adsb-ingest-runs", cfg.KafkaTopic)
	assert.False(t, cfg.NotifierEnabled())
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("WORK_DIR", "/tmp/work")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("CONCURRENCY", "32")
	t.Setenv("EXTRACTOR", "native")
	t.Setenv("BOUNDARY_FILE", "boundary.yaml")
	t.Setenv("SOURCE_REPOS", "adsblol/globe_history_2025, adsblol/globe_history_2026,")
	t.Setenv("TARGET_REPO", "someone/adsb-poland-history")
	t.Setenv("GITHUB_API_URL", "http://localhost:8081/")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("RESPONSE_HEADER_TIMEOUT", "1m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "runs")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/work", cfg.WorkDir)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, 32, cfg.Concurrency)
	assert.Equal(t, ExtractorNative, cfg.Extractor)
	assert.Equal(t, "boundary.yaml", cfg.BoundaryFile)
	assert.Equal(t, []string{"adsblol/globe_history_2025", "adsblol/globe_history_2026"}, cfg.SourceRepos)
	assert.Equal(t, "someone/adsb-poland-history", cfg.TargetRepo)
	assert.Equal(t, "http://localhost:8081", cfg.GitHubAPIURL)
	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.Equal(t, time.Minute, cfg.ResponseHeaderTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "runs", cfg.KafkaTopic)
	assert.True(t, cfg.NotifierEnabled())
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	for _, v := range []string{"0", "-4", "many"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("CONCURRENCY", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "CONCURRENCY")
		})
	}
}

func TestLoad_InvalidHeaderTimeout(t *testing.T) {
	t.Setenv("RESPONSE_HEADER_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESPONSE_HEADER_TIMEOUT")
}

func TestLoad_UnknownExtractor(t *testing.T) {
	t.Setenv("EXTRACTOR", "7z")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXTRACTOR")
}

func TestLoad_EmptySourceRepos(t *testing.T) {
	t.Setenv("SOURCE_REPOS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_REPOS")
}

func TestValidate_AfterOverride(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Concurrency = 0
	require.Error(t, cfg.Validate())

	cfg.Concurrency = 1
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.KafkaTopic = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TOPIC")
}
