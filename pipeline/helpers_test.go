package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"github.com/poiesic/enrichit/storage/badger"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var errDiskFull = errors.New("disk full")

func newStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func descriptor(t *testing.T, name string) *providers.Descriptor {
	t.Helper()
	d, err := providers.Builtin().Lookup(name)
	require.NoError(t, err)
	return d
}

func tweets(ids ...string) []core.RawRow {
	rows := make([]core.RawRow, len(ids))
	for i, id := range ids {
		rows[i] = core.RawRow{
			"tweet_id":   id,
			"tweet_text": fmt.Sprintf("post %s #go", id),
			"author":     "ada",
			"likes":      100,
			"retweets":   50,
			"replies":    10,
			"views":      2000,
		}
	}
	return rows
}

func redditPosts(ids ...string) []core.RawRow {
	rows := make([]core.RawRow, len(ids))
	for i, id := range ids {
		rows[i] = core.RawRow{
			"post_id":   id,
			"title":     "Ask " + id,
			"caption":   "anyone?",
			"upvotes":   7,
			"subreddit": "golang",
		}
	}
	return rows
}

func seed(t *testing.T, store storage.SourceWriter, table, idColumn string, rows []core.RawRow) {
	t.Helper()
	n, err := store.PutSourceRows(context.Background(), table, idColumn, rows)
	require.NoError(t, err)
	require.Equal(t, len(rows), n)
}

// recordingWriter records batch keys in write order and can fail one batch.
type recordingWriter struct {
	storage.EnrichmentWriter

	mu          sync.Mutex
	batches     [][]string
	failBatch   int // 1-based index of the batch to fail, 0 for never
	attempts    int
	ensureCalls int
	ensureErr   error
}

func (w *recordingWriter) EnsureOutputTable(ctx context.Context) error {
	w.mu.Lock()
	w.ensureCalls++
	w.mu.Unlock()
	if w.ensureErr != nil {
		return w.ensureErr
	}
	return w.EnrichmentWriter.EnsureOutputTable(ctx)
}

func (w *recordingWriter) UpsertBatch(ctx context.Context, records []*core.EnrichmentRecord) error {
	w.mu.Lock()
	w.attempts++
	if w.attempts == w.failBatch {
		w.mu.Unlock()
		return errDiskFull
	}
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Source.SourceID
	}
	w.batches = append(w.batches, keys)
	w.mu.Unlock()
	return w.EnrichmentWriter.UpsertBatch(ctx, records)
}

func (w *recordingWriter) written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

// failingReader fails FetchUnenriched for the named providers.
type failingReader struct {
	storage.SourceReader
	fail map[string]error
}

func (r failingReader) FetchUnenriched(ctx context.Context, d *providers.Descriptor, limit int) ([]core.RawRow, error) {
	if err, ok := r.fail[d.Name]; ok {
		return nil, err
	}
	return r.SourceReader.FetchUnenriched(ctx, d, limit)
}

// rowsReader returns fixed rows for every provider.
type rowsReader []core.RawRow

func (r rowsReader) FetchUnenriched(context.Context, *providers.Descriptor, int) ([]core.RawRow, error) {
	return r, nil
}

// countingObserver tallies events.
type countingObserver struct {
	mu             sync.Mutex
	fetched        map[string]int
	normalization  int
	moduleFailures map[core.ModuleName]int
	written        map[string]int
	writeFailures  int
	finished       []*Stats
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		fetched:        map[string]int{},
		moduleFailures: map[core.ModuleName]int{},
		written:        map[string]int{},
	}
}

func (o *countingObserver) RecordsFetched(p string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetched[p] += n
}

func (o *countingObserver) NormalizationFailed(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.normalization++
}

func (o *countingObserver) ModuleFailed(_ string, m core.ModuleName) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moduleFailures[m]++
}

func (o *countingObserver) BatchWritten(p string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written[p] += n
}

func (o *countingObserver) WriteFailed(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writeFailures++
}

func (o *countingObserver) ProviderFinished(s *Stats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, s)
}
