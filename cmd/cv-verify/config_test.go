// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cv-verify/internal/secrets"
	"github.com/pdiddy/cv-verify/internal/store"
	"github.com/pdiddy/cv-verify/pkg/types"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	viper.SetEnvPrefix("CV_VERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setConfigDefaults()
	t.Cleanup(viper.Reset)
}

func TestLoadVerifyConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadVerifyConfig()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultVerifyConfig(), cfg)
}

func TestLoadVerifyConfig_FileAndEnv(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "cv-verify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batching:
  max_batch_size: 4000
extraction:
  provider: gemini
  request_timeout: 45s
  workers: 2
sources:
  title_threshold: 0.9
  serpapi_key: from-file
store:
  path: /tmp/runs.db
`), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	t.Setenv("CV_VERIFY_EXTRACTION_WORKERS", "7")
	t.Setenv("CV_VERIFY_SOURCES_REQUESTS_PER_SECOND", "2.5")

	cfg, err := loadVerifyConfig()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Batching.MaxBatchSize)
	assert.Equal(t, types.DefaultMaxChunkSize, cfg.Batching.MaxChunkSize)
	assert.Equal(t, types.ProviderGemini, cfg.Extraction.Provider)
	assert.Equal(t, 45*time.Second, cfg.Extraction.RequestTimeout)
	assert.Equal(t, 7, cfg.Extraction.Workers)
	assert.InDelta(t, 0.9, cfg.Sources.TitleThreshold, 1e-9)
	assert.InDelta(t, 2.5, cfg.Sources.RequestsPerSecond, 1e-9)
	assert.Equal(t, "from-file", cfg.Sources.SerpAPIKey)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
}

func TestFillSecrets(t *testing.T) {
	old := loadedSecrets
	t.Cleanup(func() { loadedSecrets = old })
	loadedSecrets = map[string]string{
		secrets.GeminiAPIKey: "gemini-secret",
		secrets.ScopusAPIKey: "scopus-secret",
	}
	t.Setenv(secrets.EnvName(secrets.OpenAlexEmail), "me@example.org")

	cfg := types.DefaultVerifyConfig()
	cfg.Extraction.Provider = types.ProviderGemini
	cfg.Sources.SerpAPIKey = "configured"
	fillSecrets(&cfg)

	assert.Equal(t, "gemini-secret", cfg.Extraction.APIKey)
	assert.Equal(t, "configured", cfg.Sources.SerpAPIKey)
	assert.Equal(t, "scopus-secret", cfg.Sources.ScopusAPIKey)
	assert.Equal(t, "me@example.org", cfg.Sources.OpenAlexEmail)
}

func TestNewAggregator_RegistersConfiguredSources(t *testing.T) {
	cfg := types.DefaultVerifyConfig().Sources
	agg := newAggregator(cfg)
	assert.Len(t, agg.Sources, 1)
	assert.Contains(t, agg.Sources, types.SourceOpenAlex)

	cfg.SerpAPIKey = "k"
	cfg.ScopusAPIKey = "k"
	agg = newAggregator(cfg)
	assert.Len(t, agg.Sources, 3)
}

func TestFormatRunList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatRunList(&buf, nil))
	assert.Equal(t, "No runs stored.\n", buf.String())

	buf.Reset()
	runs := []store.RunSummary{{
		ID:                "run-1",
		CandidateName:     "A Candidate With A Very Long Name Indeed",
		CreatedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TotalPublications: 12,
		VerifiedCount:     9,
	}}
	require.NoError(t, formatRunList(&buf, runs))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2026-03-01 12:00:00")
	assert.Contains(t, out, "A Candidate With A Ver...")
	assert.Contains(t, out, "1 runs")
}
