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


package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

// Module computes one field group for a canonical record.
// Implementations are stateless and safe for concurrent use.
type Module interface {
	// Name identifies the module and its field group.
	Name() core.ModuleName

	// Enrich computes the module's result. Any error makes the chain fall back to Empty.
	Enrich(ctx context.Context, rec *core.CanonicalRecord, bc *BatchContext) (core.ModuleResult, error)

	// Empty returns the neutral result used when Enrich fails.
	Empty() core.ModuleResult
}

// BatchContext carries the state shared by the records of one provider run.
// A nil *BatchContext is valid and means "no percentile context, wall clock".
type BatchContext struct {
	// Provider is the source table being enriched.
	Provider string

	// Percentiles ranks engagement scores. Nil yields the Unranked tier.
	Percentiles PercentileContext

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewBatchContext creates the context for one provider run.
func NewBatchContext(provider string, percentiles PercentileContext) *BatchContext {
	return &BatchContext{Provider: provider, Percentiles: percentiles}
}

// Now returns the batch clock's current time in UTC.
func (bc *BatchContext) Now() time.Time {
	if bc == nil || bc.Clock == nil {
		return time.Now().UTC()
	}
	return bc.Clock().UTC()
}

// Deferred returns a copy of bc without a percentile context. Engagement
// results computed with it stay Unranked until Rank is called on bc.
func (bc *BatchContext) Deferred() *BatchContext {
	if bc == nil {
		return nil
	}
	c := *bc
	c.Percentiles = nil
	return &c
}

func (bc *BatchContext) percentiles() PercentileContext {
	if bc == nil {
		return nil
	}
	return bc.Percentiles
}

// ModuleSet toggles the five modules for a run.
type ModuleSet struct {
	Sentiment  bool
	Entity     bool
	Topic      bool
	Engagement bool
	Moderation bool
}

// AllModules enables every module.
func AllModules() ModuleSet {
	return ModuleSet{Sentiment: true, Entity: true, Topic: true, Engagement: true, Moderation: true}
}

// Enabled reports whether the named module is on.
func (s ModuleSet) Enabled(name core.ModuleName) bool {
	switch name {
	case core.ModuleSentiment:
		return s.Sentiment
	case core.ModuleEntity:
		return s.Entity
	case core.ModuleTopic:
		return s.Topic
	case core.ModuleEngagement:
		return s.Engagement
	case core.ModuleModeration:
		return s.Moderation
	}
	return false
}

// With returns a copy of s with the named module set to on.
func (s ModuleSet) With(name core.ModuleName, on bool) ModuleSet {
	switch name {
	case core.ModuleSentiment:
		s.Sentiment = on
	case core.ModuleEntity:
		s.Entity = on
	case core.ModuleTopic:
		s.Topic = on
	case core.ModuleEngagement:
		s.Engagement = on
	case core.ModuleModeration:
		s.Moderation = on
	}
	return s
}

// Names returns the enabled modules in chain order.
func (s ModuleSet) Names() []core.ModuleName {
	out := make([]core.ModuleName, 0, len(core.ModuleOrder))
	for _, name := range core.ModuleOrder {
		if s.Enabled(name) {
			out = append(out, name)
		}
	}
	return out
}

// Empty reports whether no module is enabled.
func (s ModuleSet) Empty() bool {
	return len(s.Names()) == 0
}

// String lists the enabled modules, comma separated.
func (s ModuleSet) String() string {
	names := s.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}

// RequiresInference reports whether any enabled module calls the inference backend.
func (s ModuleSet) RequiresInference() bool {
	return s.Sentiment || s.Entity || s.Topic || s.Moderation
}

// Build constructs the enabled modules.
// When inv is nil the inference-backed modules are dropped with a warning and
// reported in the second return value; Engagement never needs a backend.
func Build(set ModuleSet, inv ai.StructuredInvoker) ([]Module, []core.ModuleName) {
	logger := slog.Default().With("component", "module-builder")

	var modules []Module
	var dropped []core.ModuleName
	for _, name := range set.Names() {
		if name == core.ModuleEngagement {
			modules = append(modules, NewEngagement())
			continue
		}
		if inv == nil {
			logger.Warn("disabling module without inference backend", "module", name)
			dropped = append(dropped, name)
			continue
		}
		switch name {
		case core.ModuleSentiment:
			modules = append(modules, NewSentiment(inv))
		case core.ModuleEntity:
			modules = append(modules, NewEntity(inv))
		case core.ModuleTopic:
			modules = append(modules, NewTopic(inv))
		case core.ModuleModeration:
			modules = append(modules, NewModeration(inv))
		}
	}
	return modules, dropped
}
