package storage

import (
	"context"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
)

// SourceReader reads raw provider rows that have no enrichment yet.
// Implementations must be thread-safe.
type SourceReader interface {
	// FetchUnenriched returns up to limit rows of d's table whose
	// (d.Name, id) has no Enrichment Record. A limit <= 0 means no limit.
	// Rows come back in a stable source order.
	FetchUnenriched(ctx context.Context, d *providers.Descriptor, limit int) ([]core.RawRow, error)
}

// SourceWriter loads raw rows into a source table.
type SourceWriter interface {
	// PutSourceRows stores rows under table, keyed by their idColumn value.
	// A row whose id already exists replaces the stored row.
	// Returns the number of rows stored; rows without an id are skipped.
	PutSourceRows(ctx context.Context, table, idColumn string, rows []core.RawRow) (int, error)
}

// EnrichmentWriter persists Enrichment Records.
type EnrichmentWriter interface {
	// EnsureOutputTable creates the output table if it does not exist. Idempotent.
	EnsureOutputTable(ctx context.Context) error

	// UpsertBatch replaces records whose (source_table, source_id) already
	// exists and inserts the rest, atomically per batch.
	// An empty batch is a no-op.
	UpsertBatch(ctx context.Context, records []*core.EnrichmentRecord) error
}

// EnrichmentReader reads persisted Enrichment Records.
type EnrichmentReader interface {
	// GetEnrichment returns the record for key, or ErrNotFound.
	GetEnrichment(ctx context.Context, key core.SourceKey) (*core.EnrichmentRecord, error)

	// CountEnrichments counts the records of one source table.
	// An empty table counts every record.
	CountEnrichments(ctx context.Context, table string) (int, error)
}

// RunRecorder keeps a ledger of provider runs.
type RunRecorder interface {
	// RecordRun stores one provider's run summary.
	RecordRun(ctx context.Context, summary *RunSummary) error

	// ListRuns returns up to limit summaries, most recent first.
	ListRuns(ctx context.Context, limit int) ([]*RunSummary, error)
}

// Store combines every storage capability of one backend.
type Store interface {
	SourceReader
	SourceWriter
	EnrichmentWriter
	EnrichmentReader
	RunRecorder

	// Close releases the backend.
	Close() error
}
