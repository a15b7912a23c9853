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


package mock

import "github.com/poiesic/enrichit/ai"

// Provider is a test double for ai.Provider.
type Provider struct {
	invoker *Invoker
	closed  bool
}

// NewProvider creates a mock provider wrapping a default mock invoker.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockInvoker() to script responses.
func NewProvider() ai.Provider {
	return &Provider{invoker: NewInvoker()}
}

// NewProviderWithInvoker creates a mock provider around a scripted invoker.
func NewProviderWithInvoker(inv *Invoker) *Provider {
	return &Provider{invoker: inv}
}

// Invoker returns the mock invoker.
func (p *Provider) Invoker() ai.StructuredInvoker {
	return p.invoker
}

// Name returns "mock".
func (p *Provider) Name() string {
	return "mock"
}

// Close marks the provider closed.
func (p *Provider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	return p.closed
}

// GetMockInvoker returns the underlying mock invoker for scripting and assertions.
func (p *Provider) GetMockInvoker() *Invoker {
	return p.invoker
}
