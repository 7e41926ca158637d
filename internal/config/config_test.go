package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaminer/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "app:\n  name: ideaminer\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Scraping.Enabled)
	assert.Equal(t, 3, cfg.Scraping.MaxWorkers)
	assert.Equal(t, 8, cfg.AI.Concurrency)
	assert.InDelta(t, 0.85, cfg.Staging.DuplicateThreshold, 1e-9)
	assert.Equal(t, 50, cfg.Migration.BatchSize)
	assert.True(t, cfg.Migration.EnableRollback)
	assert.Equal(t, 30, cfg.Staging.RetentionDays)
	assert.Equal(t, 3, cfg.Schedule.MaxRetryAttempts)
}

func TestLoad_SourceList(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
scraping:
  sources:
    - name: devpost
      base_url: https://devpost.com
      enabled: true
      schedule: "0 2 * * *"
      rate_limit_ms: 500
      max_pages: 10
      fetcher: devpost
`))
	require.NoError(t, err)

	require.Len(t, cfg.Scraping.Sources, 1)
	src := cfg.Scraping.Sources[0]
	assert.Equal(t, "devpost", src.Name)
	assert.Equal(t, "0 2 * * *", src.Schedule)
	assert.Equal(t, 500, src.RateLimitMs)
}

func TestLoad_SourceFallsBackToGlobals(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
scraping:
  rate_limit_ms: 750
  max_pages: 20
  sources:
    - name: devpost
    - name: tuned
      rate_limit_ms: 250
      max_pages: 5
`))
	require.NoError(t, err)

	require.Len(t, cfg.Scraping.Sources, 2)
	assert.Equal(t, 750, cfg.Scraping.Sources[0].RateLimitMs)
	assert.Equal(t, 20, cfg.Scraping.Sources[0].MaxPages)
	assert.Equal(t, 250, cfg.Scraping.Sources[1].RateLimitMs)
	assert.Equal(t, 5, cfg.Scraping.Sources[1].MaxPages)
}

func TestLoad_DuplicateSourceNames(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
scraping:
  sources:
    - name: devpost
    - name: devpost
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source name")
}

func TestLoad_InvalidThreshold(t *testing.T) {
	_, err := config.Load(writeConfig(t, "staging:\n  duplicate_threshold: 1.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate_threshold")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p",
		DBName: "ideas", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ideas sslmode=disable", cfg.DSN())
}
