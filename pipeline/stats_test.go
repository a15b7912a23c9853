package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/enrichment"
	"github.com/poiesic/enrichit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatsTotals(t *testing.T) {
	rs := &RunStats{
		StartedAt:  fixedNow,
		FinishedAt: fixedNow.Add(3 * time.Second),
		Providers: []*Stats{
			{Provider: "a", Fetched: 3, Written: 2, NormalizationFailures: 1, Batches: 1,
				ModuleFailures: map[core.ModuleName]int{core.ModuleTopic: 2}},
			{Provider: "b", Fetched: 4, Written: 4, RecordsWithFailures: 1, Batches: 2, WriteFailures: 1,
				ModuleFailures: map[core.ModuleName]int{core.ModuleTopic: 1, core.ModuleSentiment: 1}},
		},
	}

	total := rs.Totals()
	assert.Equal(t, 7, total.Fetched)
	assert.Equal(t, 6, total.Written)
	assert.Equal(t, 1, total.NormalizationFailures)
	assert.Equal(t, 1, total.RecordsWithFailures)
	assert.Equal(t, 3, total.Batches)
	assert.Equal(t, 1, total.WriteFailures)
	assert.Equal(t, map[core.ModuleName]int{core.ModuleTopic: 3, core.ModuleSentiment: 1}, total.ModuleFailures)
	assert.Equal(t, 3*time.Second, total.Duration)
	assert.False(t, rs.Failed())
	assert.Nil(t, rs.Provider("c"))
}

func TestStatsSummary(t *testing.T) {
	s := newStats("x_tweets", fixedNow)
	s.Fetched = 2
	s.Written = 1
	s.ModuleFailures[core.ModuleEntity] = 1
	s.Duration = 1500 * time.Millisecond
	s.Status = StatusFailed
	s.Err = &core.ProviderFailure{Provider: "x_tweets", Err: errors.New("boom")}

	got := s.Summary("run-9")
	assert.Equal(t, &storage.RunSummary{
		RunID:          "run-9",
		Provider:       "x_tweets",
		Status:         storage.RunFailed,
		Fetched:        2,
		Written:        1,
		ModuleFailures: map[string]int{"entity": 1},
		Error:          s.Err.Error(),
		StartedAt:      fixedNow,
		FinishedAt:     fixedNow.Add(1500 * time.Millisecond),
	}, got)
}

func TestRunConfigValidate(t *testing.T) {
	require.NoError(t, DefaultRunConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*RunConfig)
		reason string
	}{
		{"no modules", func(c *RunConfig) { c.Modules = enrichment.ModuleSet{} }, "no modules"},
		{"negative limit", func(c *RunConfig) { c.Limit = -1 }, "limit"},
		{"zero batch", func(c *RunConfig) { c.BatchSize = 0 }, "batch size"},
		{"zero concurrency", func(c *RunConfig) { c.Concurrency = 0 }, "concurrency"},
		{"zero provider concurrency", func(c *RunConfig) { c.ProviderConcurrency = 0 }, "provider concurrency"},
		{"unknown window", func(c *RunConfig) { c.PercentileWindow = "weekly" }, "weekly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestRunConfigCopies(t *testing.T) {
	base := DefaultRunConfig()
	names := []string{"x_tweets"}
	narrowed := base.WithProviders(names...).WithoutModules(core.ModuleTopic, core.ModuleModeration)
	names[0] = "changed"

	assert.Empty(t, base.Providers)
	assert.True(t, base.Modules.Topic)
	assert.Equal(t, []string{"x_tweets"}, narrowed.Providers)
	assert.Equal(t, "sentiment,entity,engagement", narrowed.Modules.String())
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, "reddit_posts", 10, 5)

	p.Increment(3)
	assert.Empty(t, buf.String(), "no output before Start")

	p.Start()
	p.Increment(3)
	assert.Empty(t, buf.String(), "below the report interval")
	p.Increment(3)
	assert.Contains(t, buf.String(), "reddit_posts: 6/10 (60.0%)")

	p.Increment(100)
	assert.Equal(t, 10, p.Current(), "capped at total")

	p.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	p.Finish()
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "finish reports once")
}
