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


// Package enrichit wires storage, inference and the enrichment pipeline
// from one configuration.
package enrichit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/ai/gemini"
	"github.com/poiesic/enrichit/ai/openai"
	"github.com/poiesic/enrichit/config"
	"github.com/poiesic/enrichit/metrics"
	"github.com/poiesic/enrichit/pipeline"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"github.com/poiesic/enrichit/storage/badger"
	"github.com/poiesic/enrichit/storage/postgres"
)

// Engine owns the store, inference backend and metrics of a configured run.
type Engine struct {
	config   *config.Config
	store    storage.Store
	provider ai.Provider
	invoker  ai.StructuredInvoker
	registry *providers.Registry
	metrics  *metrics.Recorder
	progress io.Writer
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	store    storage.Store
	provider ai.Provider
	registry *providers.Registry
	progress io.Writer
}

// WithStore uses an already open store instead of the configured one.
// The engine closes it on Close.
func WithStore(store storage.Store) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithAIProvider uses the given inference provider instead of building one.
func WithAIProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithRegistry replaces the built-in provider registry.
func WithRegistry(registry *providers.Registry) EngineOption {
	return func(o *engineOptions) {
		o.registry = registry
	}
}

// WithProgressWriter sets where progress lines go. Default is os.Stderr.
func WithProgressWriter(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// newAIProvider builds the configured backend.
var newAIProvider = func(ctx context.Context, cfg *ai.Config) (ai.Provider, error) {
	switch cfg.Backend {
	case ai.BackendGemini:
		return gemini.NewProvider(ctx, cfg)
	default:
		return openai.NewProvider(cfg)
	}
}

// NewEngine opens the configured store and inference backend.
// An invalid ai section is fatal. A backend that fails to start only
// disables the inference modules, which the run reports as dropped.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", config.ErrInvalidConfig)
	}
	options := &engineOptions{progress: os.Stderr}
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		config:   cfg,
		registry: options.registry,
		progress: options.progress,
		logger:   slog.Default().With("component", "engine"),
	}
	if e.registry == nil {
		e.registry = providers.Builtin()
	}

	store := options.store
	if store == nil {
		var err error
		store, err = OpenStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
	}
	e.store = store

	if cfg.Modules.Set().RequiresInference() {
		if err := e.initInference(ctx, options.provider); err != nil {
			store.Close()
			return nil, err
		}
	}

	if cfg.Metrics.Enabled {
		e.metrics = metrics.NewRecorder()
	}
	return e, nil
}

func (e *Engine) initInference(ctx context.Context, provider ai.Provider) error {
	aiCfg, err := e.config.AIConfig()
	if err != nil {
		return err
	}

	if provider == nil {
		provider, err = newAIProvider(ctx, aiCfg)
		if err != nil {
			e.logger.Warn("inference backend unavailable, disabling inference modules",
				"backend", aiCfg.Backend, "error", err)
			return nil
		}
	}
	e.provider = provider
	e.invoker = ai.NewRetryingInvoker(provider.Invoker(), aiCfg)
	e.logger.Debug("inference backend ready", "backend", provider.Name(), "model", aiCfg.Model)
	return nil
}

// OpenStore opens the store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverBadger, "":
		if cfg.InMemory {
			return badger.NewMemoryStore()
		}
		return badger.NewStore(cfg.Path)
	case config.DriverPostgres:
		var opts []postgres.Option
		if cfg.Postgres.Table != "" {
			opts = append(opts, postgres.WithTable(cfg.Postgres.Table))
		}
		if cfg.Postgres.RunsTable != "" {
			opts = append(opts, postgres.WithRunsTable(cfg.Postgres.RunsTable))
		}
		return postgres.Open(ctx, cfg.Postgres.ConnectionString(), opts...)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// Orchestrator builds an orchestrator over the engine's store and backend.
func (e *Engine) Orchestrator(opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	base := []pipeline.Option{
		pipeline.WithRunRecorder(e.store),
	}
	if e.invoker != nil {
		base = append(base, pipeline.WithInvoker(e.invoker))
	}
	if e.metrics != nil {
		base = append(base, pipeline.WithObserver(e.metrics))
	}
	if interval := e.config.Run.ProgressInterval; interval > 0 && e.progress != nil {
		base = append(base, pipeline.WithProgress(e.progress, interval))
	}
	return pipeline.NewOrchestrator(e.registry, e.store, e.store, append(base, opts...)...)
}

// Run executes one enrichment run and pushes metrics when a push gateway is configured.
func (e *Engine) Run(ctx context.Context, rc pipeline.RunConfig, opts ...pipeline.Option) (*pipeline.RunStats, error) {
	orch, err := e.Orchestrator(opts...)
	if err != nil {
		return nil, err
	}

	stats, err := orch.Run(ctx, rc)
	if stats != nil && e.metrics != nil && e.config.Metrics.PushgatewayURL != "" {
		if pushErr := e.metrics.Push(context.WithoutCancel(ctx), e.config.Metrics.PushgatewayURL, e.config.Metrics.Job, stats.RunID); pushErr != nil {
			e.logger.Warn("metrics push failed", "error", pushErr)
		}
	}
	return stats, err
}

// Store returns the engine's store.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Registry returns the provider registry.
func (e *Engine) Registry() *providers.Registry {
	return e.registry
}

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (e *Engine) Metrics() *metrics.Recorder {
	return e.metrics
}

// InferenceEnabled reports whether an inference backend is available.
func (e *Engine) InferenceEnabled() bool {
	return e.invoker != nil
}

// Close releases the inference backend and the store.
func (e *Engine) Close() error {
	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing inference provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing store", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
