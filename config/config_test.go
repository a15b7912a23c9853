package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/enrichment"
	"github.com/poiesic/enrichit/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
run:
  providers: [x_tweets, reddit_posts]
  limit: 0
  batch_size: 25
  concurrency: 4
  provider_concurrency: 2
  percentile_window: reference
  progress_interval: 50
modules:
  moderation: false
ai:
  backend: openai
  host: http://inference:8000
  model: gpt-4o-mini
  api_key_env: ENRICHIT_TEST_KEY
  request_timeout: 10s
  max_retries: 0
  retry_base_delay: 250ms
  force_tool: false
store:
  driver: postgres
  postgres:
    host: db
    database: social
    user: enricher
    password: s3cret
    table: enriched_posts
metrics:
  enabled: true
  pushgateway_url: http://pushgateway:9091
`

func TestParseFullConfig(t *testing.T) {
	t.Setenv("ENRICHIT_TEST_KEY", "sk-test")

	c, err := Parse(strings.NewReader(fullConfig))
	require.NoError(t, err)

	run := c.RunConfig()
	assert.Equal(t, []string{"x_tweets", "reddit_posts"}, run.Providers)
	assert.Equal(t, 0, run.Limit, "an explicit zero means no cap")
	assert.Equal(t, 25, run.BatchSize)
	assert.Equal(t, 4, run.Concurrency)
	assert.Equal(t, 2, run.ProviderConcurrency)
	assert.Equal(t, enrichment.WindowReference, run.PercentileWindow)
	assert.Equal(t, "sentiment,entity,topic,engagement", run.Modules.String())
	assert.Equal(t, 50, c.Run.ProgressInterval)

	aiCfg, err := c.AIConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://inference:8000/v1", aiCfg.Host)
	assert.Equal(t, "gpt-4o-mini", aiCfg.Model)
	assert.Equal(t, "sk-test", aiCfg.APIKey)
	assert.Equal(t, 10*time.Second, aiCfg.RequestTimeout)
	assert.Equal(t, 0, aiCfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, aiCfg.RetryBaseDelay)
	assert.False(t, aiCfg.ForceTool)

	assert.Equal(t, DriverPostgres, c.Store.Driver)
	assert.Equal(t, 5432, c.Store.Postgres.Port)
	assert.Equal(t, "host=db port=5432 dbname=social user=enricher password=s3cret sslmode=disable",
		c.Store.Postgres.ConnectionString())
	assert.Equal(t, DefaultMetricsJob, c.Metrics.Job)
}

func TestParseMinimalConfigDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader("store:\n  path: /var/lib/enrichit\n"))
	require.NoError(t, err)

	assert.Equal(t, pipeline.DefaultRunConfig(), c.RunConfig())
	assert.Equal(t, DriverBadger, c.Store.Driver)
	assert.Equal(t, ai.BackendOpenAI, c.AI.Backend)
	assert.Equal(t, ai.DefaultConfig().Model, c.AI.Model)
	require.NotNil(t, c.AI.MaxRetries)
	assert.Equal(t, 2, *c.AI.MaxRetries)
	assert.False(t, c.Metrics.Enabled)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "store:\n  in_memory: true\nrun:\n  batchsize: 3\n", "batchsize"},
		{"negative batch", "store:\n  in_memory: true\nrun:\n  batch_size: -1\n", "batch size"},
		{"bad window", "store:\n  in_memory: true\nrun:\n  percentile_window: hourly\n", "hourly"},
		{"badger without path", "run:\n  limit: 5\n", "path is required"},
		{"unknown driver", "store:\n  driver: sqlite\n", "sqlite"},
		{"postgres without host", "store:\n  driver: postgres\n  postgres:\n    database: x\n", "postgres host"},
		{"gemini without key", "store:\n  in_memory: true\nai:\n  backend: gemini\n", "APIKey"},
		{"push without metrics", "store:\n  in_memory: true\nmetrics:\n  pushgateway_url: http://x\n", "metrics are disabled"},
		{"all modules off", "store:\n  in_memory: true\nmodules: {sentiment: false, entity: false, topic: false, engagement: false, moderation: false}\n", "no modules"},
		{"malformed", "run: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestAIConfigSkippedWithoutInferenceModules(t *testing.T) {
	yaml := `
store:
  in_memory: true
ai:
  backend: gemini
modules:
  sentiment: false
  entity: false
  topic: false
  moderation: false
`
	c, err := Parse(strings.NewReader(yaml))
	require.NoError(t, err, "an engagement-only run needs no inference backend")
	assert.False(t, c.Modules.Set().RequiresInference())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrichit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  in_memory: true\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Store.InMemory)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConnectionStringQuotesPassword(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, Database: "social", User: "u", Password: "it's a secret", SSLMode: "require"}
	assert.Equal(t, `host=db port=5433 dbname=social user=u password='it\'s a secret' sslmode=require`, p.ConnectionString())

	p.Password = ""
	assert.NotContains(t, p.ConnectionString(), "password")
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(&core.ConfigurationError{Reason: "x"}))
	assert.False(t, IsConfigurationError(os.ErrNotExist))
}
