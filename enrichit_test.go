package enrichit

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/ai/mock"
	"github.com/poiesic/enrichit/config"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(strings.NewReader("store:\n  in_memory: true\n" + extra))
	require.NoError(t, err)
	return cfg
}

func TestNewEngine(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		cfg := memoryConfig(t, "")
		cfg.Store.InMemory = false
		cfg.Store.Path = filepath.Join(t.TempDir(), "db")

		engine, err := NewEngine(context.Background(), cfg, WithAIProvider(mock.NewProvider()))
		require.NoError(t, err)
		defer engine.Close()

		assert.NotNil(t, engine.Store())
		assert.NotNil(t, engine.Registry())
		assert.True(t, engine.InferenceEnabled())
		assert.Nil(t, engine.Metrics())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		cfg := memoryConfig(t, "")
		cfg.Store.InMemory = false
		cfg.Store.Path = tmpFile

		engine, err := NewEngine(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewEngine(context.Background(), nil)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestEngineClose(t *testing.T) {
	provider := mock.NewProviderWithInvoker(mock.NewInvoker())
	engine, err := NewEngine(context.Background(), memoryConfig(t, ""), WithAIProvider(provider))
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	assert.True(t, provider.Closed())
}

func TestEngineRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t, "run:\n  batch_size: 2\n  progress_interval: 1\nmetrics:\n  enabled: true\n")

	var progress bytes.Buffer
	engine, err := NewEngine(ctx, cfg, WithAIProvider(mock.NewProvider()), WithProgressWriter(&progress))
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.Store().PutSourceRows(ctx, "x_tweets", "tweet_id", []core.RawRow{
		{"tweet_id": "123", "tweet_text": "Loving the new #golang release", "author": "Ada", "likes": 100, "retweets": 50, "replies": 10, "views": 2000},
		{"tweet_id": "124", "tweet_text": "", "likes": 0},
		{"tweet_id": "125", "tweet_text": "meh"},
	})
	require.NoError(t, err)

	stats, err := engine.Run(ctx, cfg.RunConfig().WithProviders("x_tweets"))
	require.NoError(t, err)
	assert.Empty(t, stats.Dropped)
	assert.Equal(t, 3, stats.Totals().Written)
	assert.Equal(t, 2, stats.Totals().Batches)
	assert.Contains(t, progress.String(), "x_tweets: 3/3")

	rec, err := engine.Store().GetEnrichment(ctx, core.SourceKey{Table: "x_tweets", ID: "123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, rec.Source.Hashtags)
	require.NotNil(t, rec.Engagement)
	assert.Equal(t, 290.0, rec.Engagement.Score)
	assert.Equal(t, 0.145, rec.Engagement.Rate)
	require.NotNil(t, rec.Sentiment)
	require.NotNil(t, rec.Entities)
	require.NotNil(t, rec.Topic)
	require.NotNil(t, rec.Moderation)

	blank, err := engine.Store().GetEnrichment(ctx, core.SourceKey{Table: "x_tweets", ID: "124"})
	require.NoError(t, err)
	assert.Equal(t, core.EmptySentiment(), blank.Sentiment, "blank text skips inference")
	assert.Empty(t, blank.Failed)

	runs, err := engine.Store().ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, stats.RunID, runs[0].RunID)
	assert.Equal(t, 3, runs[0].Written)

	require.NotNil(t, engine.Metrics())
	families, err := engine.Metrics().Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestEngineFallsBackWhenBackendFails(t *testing.T) {
	orig := newAIProvider
	newAIProvider = func(context.Context, *ai.Config) (ai.Provider, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { newAIProvider = orig })

	ctx := context.Background()
	engine, err := NewEngine(ctx, memoryConfig(t, ""))
	require.NoError(t, err)
	defer engine.Close()
	assert.False(t, engine.InferenceEnabled())

	_, err = engine.Store().PutSourceRows(ctx, "x_tweets", "tweet_id", []core.RawRow{{"tweet_id": "1", "tweet_text": "hi"}})
	require.NoError(t, err)

	stats, err := engine.Run(ctx, pipeline.DefaultRunConfig().WithProviders("x_tweets"))
	require.NoError(t, err)
	assert.Len(t, stats.Dropped, 4)
	assert.Equal(t, 1, stats.Totals().Written)
}

func TestEngineInvalidAIConfigIsFatal(t *testing.T) {
	cfg := memoryConfig(t, "")
	cfg.AI.Backend = "bedrock"

	_, err := NewEngine(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestEngineWithoutInferenceModules(t *testing.T) {
	cfg := memoryConfig(t, "modules: {sentiment: false, entity: false, topic: false, moderation: false}\n")
	engine, err := NewEngine(context.Background(), cfg)
	require.NoError(t, err)
	defer engine.Close()
	assert.False(t, engine.InferenceEnabled())
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Driver: "sqlite"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
