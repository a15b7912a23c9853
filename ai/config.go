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


package ai

import (
	"fmt"
	"strings"
	"time"
)

// Supported inference backends.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config holds configuration for the inference backend.
type Config struct {
	// Backend selects the client implementation: "openai" or "gemini".
	Backend string

	// Host is the base URL for OpenAI-compatible APIs.
	// Example: "http://localhost:11434/v1" for a local server. Ignored by gemini.
	Host string

	// Model is the model identifier.
	// Example: "qwen2.5:7b", "gpt-4o-mini", "gemini-1.5-flash"
	Model string

	// APIKey authenticates against the backend. Local OpenAI-compatible
	// servers accept any value; "none" is sent when empty.
	APIKey string

	// RequestTimeout bounds each individual attempt.
	// Default: 30s
	RequestTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt for transient failures.
	// Default: 2
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles on every retry.
	// Default: 500ms
	RetryBaseDelay time.Duration

	// ForceTool asks OpenAI-compatible backends for a forced tool call.
	// When false, or when the server ignores tools, JSON mode is used.
	// Default: true
	ForceTool bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the backend name.
func WithBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithHost sets the OpenAI-compatible host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithRequestTimeout sets the per-attempt timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithMaxRetries sets the number of transient retries.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryBaseDelay sets the first backoff delay.
func WithRetryBaseDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryBaseDelay = d
	}
}

// WithForceTool toggles forced tool calls for OpenAI-compatible backends.
func WithForceTool(force bool) ConfigOption {
	return func(c *Config) {
		c.ForceTool = force
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendOpenAI,
		Host:           "http://localhost:11434/v1",
		Model:          "qwen2.5:7b",
		RequestTimeout: 30 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: 500 * time.Millisecond,
		ForceTool:      true,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434"),
//	    WithModel("qwen2.5:7b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix, which Ollama, LocalAI and vLLM require.
func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend != BackendOpenAI {
		return
	}
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendOpenAI:
		if c.Host == "" {
			return fmt.Errorf("%w: Host is required for %s", ErrInvalidConfig, c.Backend)
		}
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: APIKey is required for %s", ErrInvalidConfig, c.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown Backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: Model is required", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: RequestTimeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: MaxRetries must not be negative", ErrInvalidConfig)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("%w: RetryBaseDelay must not be negative", ErrInvalidConfig)
	}
	return nil
}
