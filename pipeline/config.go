package pipeline

import (
	"fmt"
	"slices"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/enrichment"
)

// Run defaults.
const (
	DefaultLimit     = 100
	DefaultBatchSize = 10
)

// RunConfig is the immutable configuration of one orchestrator run.
type RunConfig struct {
	// Modules toggles the enrichment modules.
	Modules enrichment.ModuleSet

	// Providers is the allow-list. Empty means every enabled provider.
	Providers []string

	// Limit caps the rows fetched per provider. Zero means no cap.
	Limit int

	// BatchSize is the number of records per upsert.
	BatchSize int

	// Concurrency is the number of records enriched in parallel within a provider.
	Concurrency int

	// ProviderConcurrency is the number of providers run in parallel.
	ProviderConcurrency int

	// PercentileWindow selects the engagement percentile context:
	// "batch", "reference" or "none".
	PercentileWindow string
}

// DefaultRunConfig returns a sequential run of every module over every provider.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Modules:             enrichment.AllModules(),
		Limit:               DefaultLimit,
		BatchSize:           DefaultBatchSize,
		Concurrency:         1,
		ProviderConcurrency: 1,
		PercentileWindow:    enrichment.WindowBatch,
	}
}

// WithProviders returns a copy of c restricted to the named providers.
func (c RunConfig) WithProviders(names ...string) RunConfig {
	c.Providers = slices.Clone(names)
	return c
}

// WithoutModules returns a copy of c with the named modules disabled.
func (c RunConfig) WithoutModules(names ...core.ModuleName) RunConfig {
	for _, name := range names {
		c.Modules = c.Modules.With(name, false)
	}
	return c
}

// Validate rejects unusable settings with a *core.ConfigurationError.
func (c RunConfig) Validate() error {
	switch {
	case c.Modules.Empty():
		return &core.ConfigurationError{Reason: "no modules enabled"}
	case c.Limit < 0:
		return &core.ConfigurationError{Reason: fmt.Sprintf("limit must not be negative, got %d", c.Limit)}
	case c.BatchSize < 1:
		return &core.ConfigurationError{Reason: fmt.Sprintf("batch size must be at least 1, got %d", c.BatchSize)}
	case c.Concurrency < 1:
		return &core.ConfigurationError{Reason: fmt.Sprintf("concurrency must be at least 1, got %d", c.Concurrency)}
	case c.ProviderConcurrency < 1:
		return &core.ConfigurationError{Reason: fmt.Sprintf("provider concurrency must be at least 1, got %d", c.ProviderConcurrency)}
	}
	if _, err := enrichment.NewPercentileContext(c.PercentileWindow); err != nil {
		return &core.ConfigurationError{Reason: err.Error()}
	}
	return nil
}
