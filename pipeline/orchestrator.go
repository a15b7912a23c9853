// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/enrichment"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs every resolved provider through a ProviderRunner.
// A failing provider is logged and skipped; the others still run.
type Orchestrator struct {
	registry         *providers.Registry
	reader           storage.SourceReader
	writer           storage.EnrichmentWriter
	recorder         storage.RunRecorder
	invoker          ai.StructuredInvoker
	observer         Observer
	progress         io.Writer
	progressInterval int
	clock            func() time.Time
	newRunID         func() string
	logger           *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithInvoker sets the inference backend for the AI modules.
// Without one those modules are disabled with a warning.
func WithInvoker(inv ai.StructuredInvoker) Option {
	return func(o *Orchestrator) error {
		o.invoker = inv
		return nil
	}
}

// WithRunRecorder persists a summary per provider after each run.
func WithRunRecorder(rec storage.RunRecorder) Option {
	return func(o *Orchestrator) error {
		o.recorder = rec
		return nil
	}
}

// WithObserver sets the event observer, e.g. a metrics recorder.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) error {
		if obs != nil {
			o.observer = obs
		}
		return nil
	}
}

// WithProgress writes per-provider progress lines to w every interval records.
func WithProgress(w io.Writer, interval int) Option {
	return func(o *Orchestrator) error {
		o.progress = w
		o.progressInterval = interval
		return nil
	}
}

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) error {
		o.clock = clock
		return nil
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(o *Orchestrator) error {
		if next != nil {
			o.newRunID = next
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(registry *providers.Registry, reader storage.SourceReader, writer storage.EnrichmentWriter, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if reader == nil {
		return nil, ErrReaderRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}

	o := &Orchestrator{
		registry: registry,
		reader:   reader,
		writer:   writer,
		observer: NopObserver{},
		newRunID: uuid.NewString,
		logger:   slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Plan validates cfg and resolves its providers without any I/O.
func (o *Orchestrator) Plan(cfg RunConfig) ([]*providers.Descriptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return o.registry.Resolve(cfg.Providers)
}

// Run enriches every resolved provider.
// Configuration and setup errors abort before any provider runs.
// Provider failures are reported in RunStats.Skipped, not as an error.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunStats, error) {
	descriptors, err := o.Plan(cfg)
	if err != nil {
		return nil, err
	}

	modules, dropped := enrichment.Build(cfg.Modules, o.invoker)
	if len(modules) == 0 {
		return nil, &core.ConfigurationError{Reason: "no module could be built for the enabled set " + cfg.Modules.String()}
	}
	chain, err := enrichment.NewChain(modules, enrichment.WithChainLogger(o.logger))
	if err != nil {
		return nil, &core.ConfigurationError{Reason: err.Error()}
	}

	if err := o.writer.EnsureOutputTable(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	stats := &RunStats{
		RunID:     o.newRunID(),
		StartedAt: o.now(),
		Dropped:   dropped,
	}
	logger := o.logger.With("run_id", stats.RunID)
	logger.Info("run starting",
		"providers", len(descriptors),
		"modules", chain.Modules(),
		"provider_concurrency", cfg.ProviderConcurrency)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(cfg.ProviderConcurrency)
	for _, d := range descriptors {
		g.Go(func() error {
			ps, err := o.runProvider(ctx, cfg, chain, d)

			mu.Lock()
			stats.Providers = append(stats.Providers, ps)
			if err != nil {
				stats.Skipped = append(stats.Skipped, d.Name)
			}
			mu.Unlock()

			o.record(ctx, stats.RunID, ps, logger)
			return nil
		})
	}
	_ = g.Wait()
	stats.FinishedAt = o.now()

	totals := stats.Totals()
	logger.Info("run complete",
		"providers", len(stats.Providers),
		"skipped", len(stats.Skipped),
		"fetched", totals.Fetched,
		"written", totals.Written,
		"duration", stats.Duration())
	return stats, ctx.Err()
}

func (o *Orchestrator) runProvider(ctx context.Context, cfg RunConfig, chain *enrichment.Chain, d *providers.Descriptor) (*Stats, error) {
	runner, err := NewProviderRunner(o.reader, o.writer, chain,
		WithLimit(cfg.Limit),
		WithBatchSize(cfg.BatchSize),
		WithConcurrency(cfg.Concurrency),
		WithPercentileWindow(cfg.PercentileWindow),
		WithRunnerObserver(o.observer),
		WithRunnerProgress(o.progress, o.progressInterval),
		WithRunnerClock(o.clock),
		WithRunnerLogger(o.logger.With("component", "provider-runner")),
	)
	if err != nil {
		// cfg was validated, so this is unexpected
		s := newStats(d.Name, o.now())
		s.Status = StatusFailed
		s.Err = &core.ProviderFailure{Provider: d.Name, Err: err}
		return s, s.Err
	}
	return runner.Run(ctx, d)
}

func (o *Orchestrator) record(ctx context.Context, runID string, s *Stats, logger *slog.Logger) {
	if o.recorder == nil {
		return
	}
	// the ledger entry is written even when the run was cancelled
	if err := o.recorder.RecordRun(context.WithoutCancel(ctx), s.Summary(runID)); err != nil {
		logger.Warn("failed to record provider run", "provider", s.Provider, "error", err)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.clock != nil {
		return o.clock().UTC()
	}
	return time.Now().UTC()
}
