// Package metrics exports enrichment run counters to Prometheus.
package metrics

import (
	"context"
	"fmt"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "enrichit"

// Recorder holds the run metrics on its own registry.
// It implements pipeline.Observer.
type Recorder struct {
	Fetched               *prometheus.CounterVec
	Written               *prometheus.CounterVec
	NormalizationFailures *prometheus.CounterVec
	ModuleFailures        *prometheus.CounterVec
	WriteFailures         *prometheus.CounterVec
	ProviderRuns          *prometheus.CounterVec
	ProviderDuration      *prometheus.HistogramVec

	registry *prometheus.Registry
}

var _ pipeline.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		Fetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_fetched_total",
				Help:      "Unenriched source rows fetched",
			},
			[]string{"provider"},
		),
		Written: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_written_total",
				Help:      "Enrichment records upserted",
			},
			[]string{"provider"},
		),
		NormalizationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalization_failures_total",
				Help:      "Source rows dropped during normalization",
			},
			[]string{"provider"},
		),
		ModuleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_failures_total",
				Help:      "Module invocations that fell back to the empty result",
			},
			[]string{"provider", "module"},
		),
		WriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_failures_total",
				Help:      "Batches that could not be written",
			},
			[]string{"provider"},
		),
		ProviderRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_runs_total",
				Help:      "Provider runs by outcome",
			},
			[]string{"provider", "status"}, // "succeeded", "failed", "empty"
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_duration_seconds",
				Help:      "Wall time of one provider run",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"provider"},
		),
	}

	r.registry.MustRegister(
		r.Fetched,
		r.Written,
		r.NormalizationFailures,
		r.ModuleFailures,
		r.WriteFailures,
		r.ProviderRuns,
		r.ProviderDuration,
	)
	return r
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordsFetched(provider string, n int) {
	r.Fetched.WithLabelValues(provider).Add(float64(n))
}

func (r *Recorder) NormalizationFailed(provider string) {
	r.NormalizationFailures.WithLabelValues(provider).Inc()
}

func (r *Recorder) ModuleFailed(provider string, module core.ModuleName) {
	r.ModuleFailures.WithLabelValues(provider, string(module)).Inc()
}

func (r *Recorder) BatchWritten(provider string, n int) {
	r.Written.WithLabelValues(provider).Add(float64(n))
}

func (r *Recorder) WriteFailed(provider string) {
	r.WriteFailures.WithLabelValues(provider).Inc()
}

func (r *Recorder) ProviderFinished(stats *pipeline.Stats) {
	r.ProviderRuns.WithLabelValues(stats.Provider, stats.Status).Inc()
	r.ProviderDuration.WithLabelValues(stats.Provider).Observe(stats.Duration.Seconds())
}

// Push sends the registry to a Prometheus push gateway, grouped by run id.
func (r *Recorder) Push(ctx context.Context, url, job, runID string) error {
	pusher := push.New(url, job).Gatherer(r.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
