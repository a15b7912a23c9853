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
	"maps"
	"time"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/storage"
)

// Provider run outcomes.
const (
	StatusSucceeded = storage.RunSucceeded
	StatusFailed    = storage.RunFailed
	StatusEmpty     = storage.RunEmpty
)

// Stats counts one provider run.
type Stats struct {
	Provider              string
	Fetched               int
	Enriched              int
	Written               int
	NormalizationFailures int
	Duplicates            int // repeated source keys within one fetch, skipped
	RecordsWithFailures   int
	ModuleFailures        map[core.ModuleName]int
	Batches               int
	WriteFailures         int
	StartedAt             time.Time
	Duration              time.Duration
	Status                string
	Err                   error
}

func newStats(provider string, started time.Time) *Stats {
	return &Stats{
		Provider:       provider,
		ModuleFailures: make(map[core.ModuleName]int),
		StartedAt:      started,
	}
}

// Summary converts the stats into a run ledger entry.
func (s *Stats) Summary(runID string) *storage.RunSummary {
	failures := make(map[string]int, len(s.ModuleFailures))
	for name, n := range s.ModuleFailures {
		failures[string(name)] = n
	}
	summary := &storage.RunSummary{
		RunID:                 runID,
		Provider:              s.Provider,
		Status:                s.Status,
		Fetched:               s.Fetched,
		Enriched:              s.Enriched,
		Written:               s.Written,
		NormalizationFailures: s.NormalizationFailures,
		RecordsWithFailures:   s.RecordsWithFailures,
		WriteFailures:         s.WriteFailures,
		Batches:               s.Batches,
		ModuleFailures:        failures,
		StartedAt:             s.StartedAt.UTC(),
		FinishedAt:            s.StartedAt.Add(s.Duration).UTC(),
	}
	if s.Err != nil {
		summary.Error = s.Err.Error()
	}
	return summary
}

// RunStats aggregates one orchestrator run.
type RunStats struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Providers holds per-provider stats in completion order.
	Providers []*Stats

	// Skipped lists the providers that failed.
	Skipped []string

	// Dropped lists modules disabled because no inference backend was available.
	Dropped []core.ModuleName
}

// Duration returns the wall time of the run.
func (r *RunStats) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Provider returns the stats for the named provider, or nil.
func (r *RunStats) Provider(name string) *Stats {
	for _, s := range r.Providers {
		if s.Provider == name {
			return s
		}
	}
	return nil
}

// Totals sums the counters of every provider.
func (r *RunStats) Totals() Stats {
	total := Stats{ModuleFailures: make(map[core.ModuleName]int)}
	for _, s := range r.Providers {
		total.Fetched += s.Fetched
		total.Enriched += s.Enriched
		total.Written += s.Written
		total.NormalizationFailures += s.NormalizationFailures
		total.Duplicates += s.Duplicates
		total.RecordsWithFailures += s.RecordsWithFailures
		total.Batches += s.Batches
		total.WriteFailures += s.WriteFailures
		for name, n := range s.ModuleFailures {
			total.ModuleFailures[name] += n
		}
	}
	total.Duration = r.Duration()
	return total
}

// Failed reports whether any provider failed.
func (r *RunStats) Failed() bool {
	return len(r.Skipped) > 0
}

func (s *Stats) clone() *Stats {
	c := *s
	c.ModuleFailures = maps.Clone(s.ModuleFailures)
	return &c
}
