// Package pipeline drives enrichment runs.
//
// A ProviderRunner handles one source table: it fetches unenriched rows,
// normalizes them into canonical records, runs the module chain, and upserts
// the results in batches of RunConfig.BatchSize. Records are written in the
// order they were fetched even when enriched concurrently.
//
// The Orchestrator resolves the provider allow-list, prepares the output
// table, and runs providers with bounded parallelism. A provider that fails
// is skipped and reported; the run continues with the rest. Because writes
// are idempotent upserts and fetches skip already enriched rows, a failed or
// interrupted run can simply be repeated.
//
// Basic usage:
//
//	orch, err := pipeline.NewOrchestrator(providers.Builtin(), store, store,
//		pipeline.WithInvoker(invoker),
//		pipeline.WithRunRecorder(store),
//	)
//	stats, err := orch.Run(ctx, pipeline.DefaultRunConfig())
package pipeline
