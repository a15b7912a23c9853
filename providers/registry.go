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


package providers

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/enrichit/core"
)

// Registry holds provider descriptors in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*Descriptor
	logger *slog.Logger
}

// NewRegistry creates a registry holding the given descriptors.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Descriptor, len(descriptors)),
		logger: slog.Default().With("component", "provider-registry"),
	}
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a descriptor. Names must be unique.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, d.Name)
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]
	if !ok {
		return nil, &core.UnknownProviderError{Name: name}
	}
	return d, nil
}

// All returns every registered descriptor, including ones without text.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Enabled returns the descriptors that have extractable text.
func (r *Registry) Enabled() []*Descriptor {
	all := r.All()
	out := make([]*Descriptor, 0, len(all))
	for _, d := range all {
		if d.HasText {
			out = append(out, d)
		}
	}
	return out
}

// Resolve returns the effective provider set for a run.
// An empty allow-list, or one containing "all", selects every enabled provider.
// Otherwise the allow-list, in its own order, is intersected with the enabled set;
// unknown and disabled names are logged and skipped.
// An explicit allow-list that resolves to nothing is a ConfigurationError.
func (r *Registry) Resolve(allow []string) ([]*Descriptor, error) {
	if len(allow) == 0 || slices.ContainsFunc(allow, isAll) {
		return r.Enabled(), nil
	}

	seen := make(map[string]struct{}, len(allow))
	out := make([]*Descriptor, 0, len(allow))
	var rejected []string
	for _, raw := range allow {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		d, err := r.Lookup(name)
		if err != nil {
			r.logger.Warn("ignoring unknown provider", "provider", name)
			rejected = append(rejected, name)
			continue
		}
		if !d.HasText {
			r.logger.Warn("ignoring provider without text", "provider", name)
			rejected = append(rejected, name)
			continue
		}
		out = append(out, d)
	}

	if len(out) == 0 {
		return nil, &core.ConfigurationError{
			Reason: fmt.Sprintf("no enabled providers in allow-list (rejected: %s)", strings.Join(rejected, ", ")),
		}
	}
	return out, nil
}

// AllProviders selects every enabled provider in an allow-list.
const AllProviders = "all"

func isAll(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), AllProviders)
}
