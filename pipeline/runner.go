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
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/enrichment"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
)

// ProviderRunner fetches, normalizes, enriches and writes one provider's rows.
// Records are flushed in fetch order regardless of concurrency.
type ProviderRunner struct {
	reader           storage.SourceReader
	writer           storage.EnrichmentWriter
	chain            *enrichment.Chain
	limit            int
	batchSize        int
	concurrency      int
	window           string
	observer         Observer
	progress         io.Writer
	progressInterval int
	clock            func() time.Time
	logger           *slog.Logger
}

// RunnerOption configures a ProviderRunner.
type RunnerOption func(*ProviderRunner) error

// WithLimit caps the rows fetched. Zero means no cap.
func WithLimit(limit int) RunnerOption {
	return func(r *ProviderRunner) error {
		if limit < 0 {
			return &core.ConfigurationError{Reason: "limit must not be negative"}
		}
		r.limit = limit
		return nil
	}
}

// WithBatchSize sets the number of records per upsert.
// Default is DefaultBatchSize.
func WithBatchSize(size int) RunnerOption {
	return func(r *ProviderRunner) error {
		if size < 1 {
			return &core.ConfigurationError{Reason: "batch size must be at least 1"}
		}
		r.batchSize = size
		return nil
	}
}

// WithConcurrency sets the number of records enriched in parallel.
// Default is 1, which enriches inline without a worker pool.
func WithConcurrency(n int) RunnerOption {
	return func(r *ProviderRunner) error {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
		return nil
	}
}

// WithPercentileWindow selects the engagement percentile context.
func WithPercentileWindow(window string) RunnerOption {
	return func(r *ProviderRunner) error {
		if _, err := enrichment.NewPercentileContext(window); err != nil {
			return &core.ConfigurationError{Reason: err.Error()}
		}
		r.window = window
		return nil
	}
}

// WithRunnerObserver sets the event observer.
func WithRunnerObserver(o Observer) RunnerOption {
	return func(r *ProviderRunner) error {
		if o != nil {
			r.observer = o
		}
		return nil
	}
}

// WithRunnerProgress writes a progress line to w every interval records.
func WithRunnerProgress(w io.Writer, interval int) RunnerOption {
	return func(r *ProviderRunner) error {
		r.progress = w
		r.progressInterval = interval
		return nil
	}
}

// WithRunnerClock overrides the clock used for enriched_at and post age.
func WithRunnerClock(clock func() time.Time) RunnerOption {
	return func(r *ProviderRunner) error {
		r.clock = clock
		return nil
	}
}

// WithRunnerLogger sets a custom logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *ProviderRunner) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// NewProviderRunner creates a runner over the given collaborators.
func NewProviderRunner(reader storage.SourceReader, writer storage.EnrichmentWriter, chain *enrichment.Chain, opts ...RunnerOption) (*ProviderRunner, error) {
	if reader == nil {
		return nil, ErrReaderRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if chain == nil {
		return nil, ErrChainRequired
	}

	r := &ProviderRunner{
		reader:      reader,
		writer:      writer,
		chain:       chain,
		limit:       DefaultLimit,
		batchSize:   DefaultBatchSize,
		concurrency: 1,
		window:      enrichment.WindowBatch,
		observer:    NopObserver{},
		logger:      slog.Default().With("component", "provider-runner"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run processes one provider. The returned stats are always non-nil.
// A fetch, write or cancellation error is returned as a *core.ProviderFailure;
// batches flushed before it stay written.
func (r *ProviderRunner) Run(ctx context.Context, d *providers.Descriptor) (*Stats, error) {
	stats := newStats(d.Name, r.now())
	logger := r.logger.With("provider", d.Name)

	err := r.run(ctx, d, stats, logger)
	stats.Duration = r.now().Sub(stats.StartedAt)
	switch {
	case err != nil:
		stats.Status = StatusFailed
		stats.Err = err
	case stats.Fetched == 0:
		stats.Status = StatusEmpty
	default:
		stats.Status = StatusSucceeded
	}
	r.observer.ProviderFinished(stats.clone())

	if err != nil {
		logger.Error("provider failed", "error", err, "written", stats.Written)
		return stats, err
	}
	logger.Info("provider complete",
		"status", stats.Status,
		"fetched", stats.Fetched,
		"written", stats.Written,
		"normalization_failures", stats.NormalizationFailures,
		"duplicates", stats.Duplicates,
		"records_with_failures", stats.RecordsWithFailures,
		"duration", stats.Duration)
	return stats, nil
}

func (r *ProviderRunner) run(ctx context.Context, d *providers.Descriptor, stats *Stats, logger *slog.Logger) error {
	rows, err := r.reader.FetchUnenriched(ctx, d, r.limit)
	if err != nil {
		return &core.ProviderFailure{Provider: d.Name, Err: err}
	}
	stats.Fetched = len(rows)
	r.observer.RecordsFetched(d.Name, len(rows))
	if len(rows) == 0 {
		logger.Info("no unenriched records")
		return nil
	}

	records := make([]*core.CanonicalRecord, 0, len(rows))
	seen := make(map[core.SourceKey]struct{}, len(rows))
	for _, row := range rows {
		rec, err := providers.Normalize(row, d)
		if err != nil {
			stats.NormalizationFailures++
			r.observer.NormalizationFailed(d.Name)
			logger.Warn("skipping row", "error", err)
			continue
		}
		// first fetched row wins
		if _, dup := seen[rec.Key()]; dup {
			stats.Duplicates++
			logger.Warn("skipping duplicate row", "source_id", rec.SourceID)
			continue
		}
		seen[rec.Key()] = struct{}{}
		records = append(records, rec)
	}

	// validated by WithPercentileWindow
	pc, _ := enrichment.NewPercentileContext(r.window)
	bc := enrichment.NewBatchContext(d.Name, pc)
	bc.Clock = r.clock

	var pool *ants.Pool
	if r.concurrency > 1 {
		pool, err = ants.NewPool(r.concurrency)
		if err != nil {
			return &core.ProviderFailure{Provider: d.Name, Err: err}
		}
		defer pool.Release()
	}

	var tracker *ProgressTracker
	if r.progress != nil {
		tracker = NewProgressTracker(r.progress, d.Name, len(records), r.progressInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	for start := 0; start < len(records); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return &core.ProviderFailure{Provider: d.Name, Err: err}
		}

		chunk := records[start:min(start+r.batchSize, len(records))]
		out, reports, err := r.enrich(ctx, pool, chunk, bc)
		if err != nil {
			return &core.ProviderFailure{Provider: d.Name, Err: err}
		}
		for _, report := range reports {
			stats.Enriched++
			if report.OK() {
				continue
			}
			stats.RecordsWithFailures++
			for _, name := range report.Failed() {
				stats.ModuleFailures[name]++
				r.observer.ModuleFailed(d.Name, name)
			}
		}

		if err := r.writer.UpsertBatch(ctx, out); err != nil {
			stats.WriteFailures++
			r.observer.WriteFailed(d.Name)
			return &core.ProviderFailure{
				Provider: d.Name,
				Err:      &core.WriteFailure{Provider: d.Name, BatchSize: len(out), Err: err},
			}
		}
		stats.Written += len(out)
		stats.Batches++
		r.observer.BatchWritten(d.Name, len(out))
		if tracker != nil {
			tracker.Increment(len(out))
		}
		logger.Debug("batch written", "size", len(out), "written", stats.Written)
	}
	return nil
}

// enrich runs the chain over a chunk. Results are slotted by index so the
// output order matches the input order.
func (r *ProviderRunner) enrich(ctx context.Context, pool *ants.Pool, chunk []*core.CanonicalRecord, bc *enrichment.BatchContext) ([]*core.EnrichmentRecord, []enrichment.ChainReport, error) {
	out := make([]*core.EnrichmentRecord, len(chunk))
	reports := make([]enrichment.ChainReport, len(chunk))

	if pool == nil {
		for i, rec := range chunk {
			out[i], reports[i] = r.chain.Run(ctx, rec, bc)
		}
		return out, reports, nil
	}

	// Running percentiles depend on insertion order, so workers leave
	// engagement unranked and the chunk is ranked in fetch order afterwards.
	deferred := bc.Deferred()
	var wg sync.WaitGroup
	var submitErr error
	for i, rec := range chunk {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			out[i], reports[i] = r.chain.Run(ctx, rec, deferred)
		})
		if err != nil {
			wg.Done()
			submitErr = errors.Join(submitErr, err)
		}
	}
	wg.Wait()
	if submitErr != nil {
		return nil, nil, submitErr
	}

	for i, rec := range out {
		if _, failed := reports[i].Failures[core.ModuleEngagement]; failed {
			continue
		}
		bc.Rank(rec.Engagement)
	}
	return out, reports, nil
}

func (r *ProviderRunner) now() time.Time {
	if r.clock != nil {
		return r.clock().UTC()
	}
	return time.Now().UTC()
}
