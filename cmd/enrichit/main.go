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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/enrichit"
	"github.com/poiesic/enrichit/config"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/pipeline"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the YAML configuration file",
		EnvVars:  []string{"ENRICHIT_CONFIG"},
		Required: true,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "enrichit",
		Usage: "Enrich scraped social media posts with sentiment, entities, topics, engagement and moderation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set logging format (text, json)",
				Value: "text",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Enrich unprocessed rows of every enabled provider",
				Action: runCommand,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringSliceFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Restrict the run to this provider (repeatable)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum rows fetched per provider (0 for no cap)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records per upsert",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Records enriched in parallel within a provider",
					},
					&cli.StringSliceFlag{
						Name:  "disable",
						Usage: "Disable an enrichment module (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the effective run plan without touching the store",
					},
				},
			},
			{
				Name:   "providers",
				Usage:  "List the registered providers",
				Action: providersCommand,
			},
			{
				Name:   "runs",
				Usage:  "List recent runs from the run ledger",
				Action: runsCommand,
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of ledger entries to show",
						Value: 20,
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Print one enrichment record as JSON",
				Action: showCommand,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "table",
						Aliases:  []string{"t"},
						Usage:    "Source table of the record",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Source id of the record",
						Required: true,
					},
				},
			},
		},
	}
}

// runConfigFromFlags overlays command line flags on the file configuration.
func runConfigFromFlags(c *cli.Context, cfg *config.Config) (pipeline.RunConfig, error) {
	rc := cfg.RunConfig()
	if names := c.StringSlice("provider"); len(names) > 0 {
		rc = rc.WithProviders(names...)
	}
	if c.IsSet("limit") {
		rc.Limit = c.Int("limit")
	}
	if c.IsSet("batch-size") {
		rc.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("concurrency") {
		rc.Concurrency = c.Int("concurrency")
	}
	for _, raw := range c.StringSlice("disable") {
		name, ok := core.ParseModuleName(strings.TrimSpace(raw))
		if !ok {
			return rc, &core.ConfigurationError{Reason: fmt.Sprintf("unknown module %q", raw)}
		}
		rc = rc.WithoutModules(name)
	}
	return rc, rc.Validate()
}

func runCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	rc, err := runConfigFromFlags(c, cfg)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("dry-run") {
		return printPlan(out, rc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := enrichit.NewEngine(ctx, cfg, enrichit.WithProgressWriter(c.App.ErrWriter))
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Close()

	stats, err := engine.Run(ctx, rc)
	if stats != nil {
		printRunStats(out, stats)
	}
	if err != nil {
		return err
	}
	if stats.Failed() {
		return cli.Exit("one or more providers failed", 1)
	}
	return nil
}

func printPlan(w io.Writer, rc pipeline.RunConfig) error {
	plan, err := providers.Builtin().Resolve(rc.Providers)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Modules: %s\n", rc.Modules)
	fmt.Fprintf(w, "Limit: %d\n", rc.Limit)
	fmt.Fprintf(w, "Batch size: %d\n", rc.BatchSize)
	fmt.Fprintf(w, "Concurrency: %d\n", rc.Concurrency)
	fmt.Fprintf(w, "Percentile window: %s\n", rc.PercentileWindow)
	fmt.Fprintln(w, "Providers:")
	for _, d := range plan {
		fmt.Fprintf(w, "  %s\n", d.Name)
	}
	return nil
}

func printRunStats(w io.Writer, stats *pipeline.RunStats) {
	fmt.Fprintf(w, "Run %s finished in %s\n", stats.RunID, stats.Duration().Round(time.Millisecond))
	if len(stats.Dropped) > 0 {
		fmt.Fprintf(w, "Dropped modules: %v\n", stats.Dropped)
	}
	for _, s := range stats.Providers {
		fmt.Fprintf(w, "  %-24s %-9s fetched=%d written=%d batches=%d module_failures=%d\n",
			s.Provider, s.Status, s.Fetched, s.Written, s.Batches, s.RecordsWithFailures)
		if s.Err != nil {
			fmt.Fprintf(w, "    error: %v\n", s.Err)
		}
	}
	totals := stats.Totals()
	fmt.Fprintf(w, "Total: fetched=%d written=%d\n", totals.Fetched, totals.Written)
}

func providersCommand(c *cli.Context) error {
	for _, d := range providers.Builtin().All() {
		state := "enabled"
		if !d.HasText {
			state = "disabled"
		}
		fmt.Fprintf(c.App.Writer, "%-24s %-9s id=%s\n", d.Name, state, d.IDColumn)
	}
	return nil
}

func openStore(c *cli.Context) (storage.Store, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	store, err := enrichit.OpenStore(c.Context, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runsCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	for _, r := range runs {
		fmt.Fprintf(c.App.Writer, "%s  %s  %-24s %-9s written=%d/%d %s\n",
			r.StartedAt.Format(time.RFC3339), r.RunID, r.Provider, r.Status,
			r.Written, r.Fetched, r.Error)
	}
	return nil
}

func showCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetEnrichment(c.Context, core.SourceKey{Table: c.String("table"), ID: c.String("id")})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	w := c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.String("log-format")) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.String("log-format"))
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
