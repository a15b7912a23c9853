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
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/enrichit/core"
)

// Chain runs enabled modules over a record in the fixed module order.
// A Chain is safe for concurrent use.
type Chain struct {
	modules []Module
	logger  *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithChainLogger sets the logger used to report module failures.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChain orders modules by core.ModuleOrder regardless of argument order.
// Two modules with the same name are rejected.
func NewChain(modules []Module, opts ...ChainOption) (*Chain, error) {
	seen := make(map[core.ModuleName]bool, len(modules))
	ordered := make([]Module, 0, len(modules))
	for _, m := range modules {
		if m == nil {
			continue
		}
		if seen[m.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name())
		}
		seen[m.Name()] = true
		ordered = append(ordered, m)
	}
	slices.SortStableFunc(ordered, func(a, b Module) int {
		return slices.Index(core.ModuleOrder, a.Name()) - slices.Index(core.ModuleOrder, b.Name())
	})

	c := &Chain{
		modules: ordered,
		logger:  slog.Default().With("component", "chain"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Modules returns the module names in run order.
func (c *Chain) Modules() []core.ModuleName {
	names := make([]core.ModuleName, len(c.modules))
	for i, m := range c.modules {
		names[i] = m.Name()
	}
	return names
}

// ChainReport describes the module failures of one Run.
type ChainReport struct {
	Failures map[core.ModuleName]error
}

// Failed returns the failed modules in chain order.
func (r ChainReport) Failed() []core.ModuleName {
	var out []core.ModuleName
	for _, name := range core.ModuleOrder {
		if _, ok := r.Failures[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// OK reports whether every module succeeded.
func (r ChainReport) OK() bool {
	return len(r.Failures) == 0
}

// Run enriches rec with every module. It always returns a record: a failing
// module contributes its empty result and is listed in the report.
func (c *Chain) Run(ctx context.Context, rec *core.CanonicalRecord, bc *BatchContext) (*core.EnrichmentRecord, ChainReport) {
	out := core.NewEnrichmentRecord(rec, bc.Now())
	report := ChainReport{Failures: map[core.ModuleName]error{}}

	for _, m := range c.modules {
		result, err := c.invoke(ctx, m, rec, bc)
		if err != nil {
			c.logger.Warn("module failed, using empty result",
				"module", m.Name(),
				"key", rec.Key().String(),
				"error", err)
			report.Failures[m.Name()] = err
			out.Failed = append(out.Failed, m.Name())
			result = m.Empty()
		}
		out.Apply(result)
	}
	return out, report
}

func (c *Chain) invoke(ctx context.Context, m Module, rec *core.CanonicalRecord, bc *BatchContext) (result core.ModuleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &core.ModuleError{Module: m.Name(), Key: rec.Key(), Err: fmt.Errorf("%w: %v", ErrModulePanic, r)}
		}
	}()

	result, err = m.Enrich(ctx, rec, bc)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Module() != m.Name() {
		return nil, &core.ModuleError{Module: m.Name(), Key: rec.Key(), Err: ErrUnexpectedResult}
	}
	return result, nil
}
