package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func tweetsDescriptor(t *testing.T) *providers.Descriptor {
	t.Helper()
	d, err := providers.Builtin().Lookup("x_tweets")
	require.NoError(t, err)
	return d
}

func tweetRows(ids ...string) []core.RawRow {
	rows := make([]core.RawRow, len(ids))
	for i, id := range ids {
		rows[i] = core.RawRow{"tweet_id": id, "tweet_text": "post " + id, "likes": 3}
	}
	return rows
}

func enriched(table, id string) *core.EnrichmentRecord {
	rec := core.NewEnrichmentRecord(&core.CanonicalRecord{SourceTable: table, SourceID: id, Text: "post " + id},
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	rec.Engagement = core.EmptyEngagement()
	return rec
}

func TestPutAndFetchSourceRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := tweetsDescriptor(t)

	n, err := store.PutSourceRows(ctx, d.Name, d.IDColumn, append(tweetRows("b", "a", "c"), core.RawRow{"tweet_text": "no id"}))
	require.NoError(t, err)
	assert.Equal(t, 3, n, "rows without an id are skipped")

	rows, err := store.FetchUnenriched(ctx, d, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[0]["tweet_id"], "insertion order")
	assert.Equal(t, "a", rows[1]["tweet_id"])
	assert.Equal(t, json.Number("3"), rows[0]["likes"], "numbers decode as json.Number")

	rows, err = store.FetchUnenriched(ctx, d, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPutSourceRowsReplacesExistingID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := tweetsDescriptor(t)

	_, err := store.PutSourceRows(ctx, d.Name, d.IDColumn, tweetRows("1", "2"))
	require.NoError(t, err)
	_, err = store.PutSourceRows(ctx, d.Name, d.IDColumn, []core.RawRow{{"tweet_id": "1", "tweet_text": "edited"}})
	require.NoError(t, err)

	rows, err := store.FetchUnenriched(ctx, d, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "edited", rows[0]["tweet_text"])
}

func TestPutSourceRowsValidation(t *testing.T) {
	store := newTestStore(t)
	_, err := store.PutSourceRows(context.Background(), "", "id", tweetRows("1"))
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFetchUnenrichedSkipsEnriched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := tweetsDescriptor(t)

	_, err := store.PutSourceRows(ctx, d.Name, d.IDColumn, tweetRows("1", "2", "3"))
	require.NoError(t, err)
	require.NoError(t, store.UpsertBatch(ctx, []*core.EnrichmentRecord{enriched("x_tweets", "2")}))
	// same id in another table does not count
	require.NoError(t, store.UpsertBatch(ctx, []*core.EnrichmentRecord{enriched("reddit_posts", "3")}))

	rows, err := store.FetchUnenriched(ctx, d, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0]["tweet_id"])
	assert.Equal(t, "3", rows[1]["tweet_id"])
}

func TestFetchUnenrichedOtherTablesIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutSourceRows(ctx, "x_tweets_archive", "tweet_id", tweetRows("9"))
	require.NoError(t, err)

	rows, err := store.FetchUnenriched(ctx, tweetsDescriptor(t), 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpsertBatchLatestWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := enriched("x_tweets", "1")
	first.Sentiment = &core.SentimentResult{Label: "negative", Score: 0.4, Emotions: []string{}, Topics: []string{}}
	require.NoError(t, store.UpsertBatch(ctx, []*core.EnrichmentRecord{first}))

	second := enriched("x_tweets", "1")
	second.Topic = core.EmptyTopic()
	require.NoError(t, store.UpsertBatch(ctx, []*core.EnrichmentRecord{second}))

	got, err := store.GetEnrichment(ctx, core.SourceKey{Table: "x_tweets", ID: "1"})
	require.NoError(t, err)
	assert.Nil(t, got.Sentiment, "the later record replaces the earlier one entirely")
	assert.Equal(t, core.EmptyTopic(), got.Topic)

	count, err := store.CountEnrichments(ctx, "x_tweets")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertBatchEmptyAndInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertBatch(ctx, nil))

	bad := enriched("x_tweets", "")
	err := store.UpsertBatch(ctx, []*core.EnrichmentRecord{enriched("x_tweets", "ok"), bad})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	count, err := store.CountEnrichments(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count, "a batch is all or nothing")
}

func TestGetEnrichmentNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetEnrichment(context.Background(), core.SourceKey{Table: "x_tweets", ID: "nope"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCountEnrichments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var batch []*core.EnrichmentRecord
	for i := 0; i < 5; i++ {
		batch = append(batch, enriched("x_tweets", fmt.Sprint(i)))
	}
	batch = append(batch, enriched("reddit_posts", "r1"), enriched("x", "1"))
	require.NoError(t, store.UpsertBatch(ctx, batch))

	count, err := store.CountEnrichments(ctx, "x_tweets")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	count, err = store.CountEnrichments(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountEnrichments(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestRunLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, provider := range []string{"x_tweets", "reddit_posts", "tiktok_videos"} {
		require.NoError(t, store.RecordRun(ctx, &storage.RunSummary{
			RunID:      "run-1",
			Provider:   provider,
			Status:     storage.RunSucceeded,
			Fetched:    i,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "tiktok_videos", runs[0].Provider, "newest first")
	assert.Equal(t, "reddit_posts", runs[1].Provider)

	runs, err = store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	assert.ErrorIs(t, store.RecordRun(ctx, &storage.RunSummary{Provider: "x"}), storage.ErrInvalidQuery)
}

func TestStoreOnFileSystemPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.UpsertBatch(ctx, []*core.EnrichmentRecord{enriched("x_tweets", "1")}))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetEnrichment(ctx, core.SourceKey{Table: "x_tweets", ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "post 1", got.Source.Text)
}

func TestStoreWithSharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	store, err := NewStoreWithBackend(backend)
	require.NoError(t, err)
	n, err := store.PutSourceRows(context.Background(), "x_tweets", "tweet_id", tweetRows("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Close())
	assert.False(t, backend.IsClosed(), "a borrowed backend stays open")

	again, err := NewStoreWithBackend(backend)
	require.NoError(t, err)
	defer again.Close()
	rows, err := again.FetchUnenriched(context.Background(), tweetsDescriptor(t), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestEnrichmentKeyIsExact(t *testing.T) {
	a := core.SourceKey{Table: "x_tweets", ID: "1"}
	key := makeEnrichmentKey(a)
	assert.True(t, bytes.HasSuffix(key, []byte("x_tweets\x001")))
	assert.NotEqual(t, key, makeEnrichmentKey(core.SourceKey{Table: "x_tweets", ID: "10"}))
	assert.NotEqual(t, makeEnrichmentKey(core.SourceKey{Table: "a", ID: "b\x00c"}),
		makeEnrichmentKey(core.SourceKey{Table: "a\x00b", ID: "c"}))
}

func TestHashCollisionDoesNotHideRecord(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	store, err := NewStoreWithBackend(backend)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	d := tweetsDescriptor(t)
	_, err = store.PutSourceRows(ctx, d.Name, d.IDColumn, tweetRows("1"))
	require.NoError(t, err)

	// another key sharing the content ID of x_tweets/1
	target := core.SourceKey{Table: "x_tweets", ID: "1"}
	collider := []byte(enrichmentPrefix + ":")
	collider = binary.BigEndian.AppendUint64(collider, uint64(target.KeyID()))
	collider = append(collider, "x_tweets\x00other"...)
	require.NoError(t, backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(collider, storage.MarshalEnrichmentRecord(enriched("x_tweets", "other")))
	}))

	rows, err := store.FetchUnenriched(ctx, d, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1, "x_tweets/1 is still unenriched")

	_, err = store.GetEnrichment(ctx, target)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.UpsertBatch(ctx, []*core.EnrichmentRecord{enriched("x_tweets", "1")}))
	got, err := store.GetEnrichment(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, target, got.Key())
}
