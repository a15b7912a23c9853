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


// Package config loads the enrichit YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/enrichment"
	"github.com/poiesic/enrichit/pipeline"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// DefaultMetricsJob is the push-gateway job name.
const DefaultMetricsJob = "enrichit"

// ErrInvalidConfig is returned when the file is unreadable or fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the configuration file.
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Modules ModulesConfig `yaml:"modules"`
	AI      AIConfig      `yaml:"ai"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// RunConfig holds run-level settings.
type RunConfig struct {
	Providers           []string `yaml:"providers"`
	Limit               *int     `yaml:"limit"` // nil means the default, 0 means no cap
	BatchSize           int      `yaml:"batch_size"`
	Concurrency         int      `yaml:"concurrency"`
	ProviderConcurrency int      `yaml:"provider_concurrency"`
	PercentileWindow    string   `yaml:"percentile_window"`
	ProgressInterval    int      `yaml:"progress_interval"` // 0 disables progress output
}

// ModulesConfig toggles modules. Unset modules are enabled.
type ModulesConfig struct {
	Sentiment  *bool `yaml:"sentiment"`
	Entity     *bool `yaml:"entity"`
	Topic      *bool `yaml:"topic"`
	Engagement *bool `yaml:"engagement"`
	Moderation *bool `yaml:"moderation"`
}

// AIConfig holds inference backend settings.
type AIConfig struct {
	Backend        string        `yaml:"backend"`
	Host           string        `yaml:"host"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     *int          `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	ForceTool      *bool         `yaml:"force_tool"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	InMemory bool           `yaml:"in_memory"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	SSLMode   string `yaml:"sslmode"`
	Table     string `yaml:"table"`
	RunsTable string `yaml:"runs_table"`
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrInvalidConfig, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Run.Limit == nil {
		limit := pipeline.DefaultLimit
		c.Run.Limit = &limit
	}
	if c.Run.BatchSize == 0 {
		c.Run.BatchSize = pipeline.DefaultBatchSize
	}
	if c.Run.Concurrency == 0 {
		c.Run.Concurrency = 1
	}
	if c.Run.ProviderConcurrency == 0 {
		c.Run.ProviderConcurrency = 1
	}
	if c.Run.PercentileWindow == "" {
		c.Run.PercentileWindow = enrichment.WindowBatch
	}

	defaults := ai.DefaultConfig()
	if c.AI.Backend == "" {
		c.AI.Backend = defaults.Backend
	}
	if c.AI.Host == "" && c.AI.Backend == ai.BackendOpenAI {
		c.AI.Host = defaults.Host
	}
	if c.AI.Model == "" {
		c.AI.Model = defaults.Model
	}
	if c.AI.RequestTimeout == 0 {
		c.AI.RequestTimeout = defaults.RequestTimeout
	}
	if c.AI.MaxRetries == nil {
		n := defaults.MaxRetries
		c.AI.MaxRetries = &n
	}
	if c.AI.RetryBaseDelay == 0 {
		c.AI.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if c.AI.ForceTool == nil {
		force := defaults.ForceTool
		c.AI.ForceTool = &force
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverBadger
	}
	if c.Store.Driver == DriverPostgres {
		pg := &c.Store.Postgres
		if pg.Port == 0 {
			pg.Port = 5432
		}
		if pg.SSLMode == "" {
			pg.SSLMode = "disable"
		}
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
}

// Validate checks the configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if err := c.RunConfig().Validate(); err != nil {
		return fmt.Errorf("%w: run: %w", ErrInvalidConfig, err)
	}
	if c.Run.ProgressInterval < 0 {
		return fmt.Errorf("%w: run: progress_interval must not be negative", ErrInvalidConfig)
	}

	if c.Modules.Set().RequiresInference() {
		if _, err := c.AIConfig(); err != nil {
			return err
		}
	}

	switch c.Store.Driver {
	case DriverBadger:
		if c.Store.Path == "" && !c.Store.InMemory {
			return fmt.Errorf("%w: store: path is required for badger unless in_memory is set", ErrInvalidConfig)
		}
	case DriverPostgres:
		pg := c.Store.Postgres
		if pg.Host == "" || pg.Database == "" || pg.User == "" {
			return fmt.Errorf("%w: store: postgres host, database and user are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store: unknown driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Metrics.PushgatewayURL != "" && !c.Metrics.Enabled {
		return fmt.Errorf("%w: metrics: pushgateway_url is set but metrics are disabled", ErrInvalidConfig)
	}
	return nil
}

// Set returns the effective module toggles.
func (m ModulesConfig) Set() enrichment.ModuleSet {
	on := func(b *bool) bool { return b == nil || *b }
	return enrichment.ModuleSet{
		Sentiment:  on(m.Sentiment),
		Entity:     on(m.Entity),
		Topic:      on(m.Topic),
		Engagement: on(m.Engagement),
		Moderation: on(m.Moderation),
	}
}

// RunConfig converts the file into the pipeline's run configuration.
func (c *Config) RunConfig() pipeline.RunConfig {
	limit := pipeline.DefaultLimit
	if c.Run.Limit != nil {
		limit = *c.Run.Limit
	}
	return pipeline.RunConfig{
		Modules:             c.Modules.Set(),
		Providers:           c.Run.Providers,
		Limit:               limit,
		BatchSize:           c.Run.BatchSize,
		Concurrency:         c.Run.Concurrency,
		ProviderConcurrency: c.Run.ProviderConcurrency,
		PercentileWindow:    c.Run.PercentileWindow,
	}
}

// AIConfig builds and validates the inference backend configuration.
// When api_key is empty it is read from the api_key_env variable.
func (c *Config) AIConfig() (*ai.Config, error) {
	key := c.AI.APIKey
	if key == "" && c.AI.APIKeyEnv != "" {
		key = os.Getenv(c.AI.APIKeyEnv)
	}

	opts := []ai.ConfigOption{
		ai.WithBackend(c.AI.Backend),
		ai.WithModel(c.AI.Model),
		ai.WithAPIKey(key),
	}
	if c.AI.Host != "" {
		opts = append(opts, ai.WithHost(c.AI.Host))
	}
	if c.AI.RequestTimeout != 0 {
		opts = append(opts, ai.WithRequestTimeout(c.AI.RequestTimeout))
	}
	if c.AI.MaxRetries != nil {
		opts = append(opts, ai.WithMaxRetries(*c.AI.MaxRetries))
	}
	if c.AI.RetryBaseDelay != 0 {
		opts = append(opts, ai.WithRetryBaseDelay(c.AI.RetryBaseDelay))
	}
	if c.AI.ForceTool != nil {
		opts = append(opts, ai.WithForceTool(*c.AI.ForceTool))
	}

	cfg := ai.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ai: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ConnectionString builds a lib/pq connection string.
func (p *PostgresConfig) ConnectionString() string {
	parts := []string{
		fmt.Sprintf("host=%s", p.Host),
		fmt.Sprintf("port=%d", p.Port),
		fmt.Sprintf("dbname=%s", p.Database),
		fmt.Sprintf("user=%s", p.User),
	}
	if p.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quoteValue(p.Password)))
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", p.SSLMode))
	return strings.Join(parts, " ")
}

// quoteValue quotes a libpq keyword value when it contains spaces or quotes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// IsConfigurationError reports whether err came from configuration handling.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, core.ErrConfiguration)
}
