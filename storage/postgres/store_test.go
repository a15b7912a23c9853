package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (storage.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, WithTable("enriched"), WithRunsTable("runs"))
	require.NoError(t, err)
	return store, mock
}

func sampleRecord() *core.EnrichmentRecord {
	posted := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := core.NewEnrichmentRecord(&core.CanonicalRecord{
		SourceTable: "x_tweets",
		SourceID:    "123",
		Text:        "Great launch!",
		Likes:       100,
		Retweets:    50,
		Replies:     10,
		Views:       2000,
		PostedAt:    &posted,
		Hashtags:    []string{"launch"},
		Metadata:    map[string]string{"lang": "en"},
	}, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	rec.Sentiment = &core.SentimentResult{Label: "positive", Score: 0.9, Emotions: []string{"joy"}, Topics: []string{}}
	rec.Engagement = &core.EngagementResult{Score: 290, Rate: 0.145, TimeAdjustedScore: 145, Tier: core.TierUnranked}
	return rec
}

func TestNewStoreValidation(t *testing.T) {
	_, err := NewStore(nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewStore(db, WithTable(""))
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestEnsureOutputTable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "enriched"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "runs"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureOutputTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureOutputTableError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := store.EnsureOutputTable(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestFetchUnenriched(t *testing.T) {
	store, mock := newMockStore(t)
	d, err := providers.Builtin().Lookup("x_tweets")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"tweet_id", "tweet_text", "likes"}).
		AddRow([]byte("1"), "hello", int64(3)).
		AddRow("2", "world", nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT ON (s."tweet_id") s.* FROM "x_tweets" s WHERE NOT EXISTS (SELECT 1 FROM "enriched" e WHERE e.source_table = $1 AND e.source_id = s."tweet_id"::text) ORDER BY s."tweet_id", s."scraped_at" DESC NULLS LAST LIMIT $2`)).
		WithArgs("x_tweets", 10).
		WillReturnRows(rows)

	got, err := store.FetchUnenriched(context.Background(), d, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0]["tweet_id"], "byte columns become strings")
	assert.Equal(t, int64(3), got[0]["likes"])
	assert.Nil(t, got[1]["likes"])
	require.NoError(t, mock.ExpectationsWereMet())

	rec, err := providers.Normalize(got[0], d)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Likes)
}

func TestFetchUnenrichedNoLimit(t *testing.T) {
	store, mock := newMockStore(t)
	d, err := providers.Builtin().Lookup("x_tweets")
	require.NoError(t, err)

	mock.ExpectQuery(`ORDER BY s."tweet_id", s."scraped_at" DESC NULLS LAST$`).WithArgs("x_tweets").
		WillReturnRows(sqlmock.NewRows([]string{"tweet_id"}))

	got, err := store.FetchUnenriched(context.Background(), d, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnenrichedQueryWithoutScrapeColumn(t *testing.T) {
	q := unenrichedQuery("reddit_posts", "post_id", "", "enriched", false)
	assert.Contains(t, q, `SELECT DISTINCT ON (s."post_id") s.*`)
	assert.True(t, strings.HasSuffix(q, `ORDER BY s."post_id"`))
}

func TestFetchUnenrichedQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	d, err := providers.Builtin().Lookup("x_tweets")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))
	_, err = store.FetchUnenriched(context.Background(), d, 5)
	assert.ErrorContains(t, err, "relation does not exist")
}

func TestUpsertBatch(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "enriched" (source_table, source_id,`))
	prep.ExpectExec().WithArgs(anyArgs(len(outputColumns))...).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(anyArgs(len(outputColumns))...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	other := sampleRecord()
	other.Source.SourceID = "124"
	require.NoError(t, store.UpsertBatch(context.Background(), []*core.EnrichmentRecord{rec, other}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO").ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.UpsertBatch(context.Background(), []*core.EnrichmentRecord{sampleRecord()})
	assert.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchEmptyAndInvalid(t *testing.T) {
	store, mock := newMockStore(t)

	require.NoError(t, store.UpsertBatch(context.Background(), nil))

	bad := sampleRecord()
	bad.Source.SourceID = ""
	err := store.UpsertBatch(context.Background(), []*core.EnrichmentRecord{bad})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
	require.NoError(t, mock.ExpectationsWereMet(), "no statements for empty or invalid batches")
}

func TestUpsertQueryReplacesEveryColumn(t *testing.T) {
	q := upsertQuery("enriched")
	assert.Contains(t, q, "ON CONFLICT (source_table, source_id) DO UPDATE SET source_text = EXCLUDED.source_text")
	assert.Contains(t, q, "date = EXCLUDED.date")
	assert.NotContains(t, q, "source_id = EXCLUDED")
	assert.Contains(t, q, "$49")
}

func TestRecordArgsNullsDisabledModules(t *testing.T) {
	args, err := recordArgs(sampleRecord())
	require.NoError(t, err)
	require.Len(t, args, len(outputColumns))

	idx := func(col string) int {
		for i, c := range outputColumns {
			if c == col {
				return i
			}
		}
		t.Fatalf("no column %s", col)
		return -1
	}
	assert.Equal(t, "positive", args[idx("sentiment_label")])
	assert.Nil(t, args[idx("people")])
	assert.Nil(t, args[idx("primary_category")])
	assert.Nil(t, args[idx("is_safe")])
	assert.Equal(t, 290.0, args[idx("engagement_score")])
	assert.Equal(t, "2025-03-01", args[idx("date")])
	assert.Equal(t, int64(50), args[idx("shares")])
}

func TestGetEnrichment(t *testing.T) {
	store, mock := newMockStore(t)
	posted := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	enrichedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	values := []driver.Value{
		"x_tweets", "123",
		"Great launch!", "", "",
		int64(100), int64(50), int64(10), int64(2000),
		posted, "{launch}", "", "", "", nil, []byte(`{"lang":"en"}`),
		"positive", 0.9, "{joy}", "{}",
		nil, nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
		290.0, 0.145, 0.0, 0.0, 145.0, 0.0, core.TierUnranked,
		nil, nil, nil, nil, nil, nil,
		"{}", enrichedAt, core.EnrichmentVersion, enrichedAt,
	}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "enriched" WHERE source_table = $1 AND source_id = $2`)).
		WithArgs("x_tweets", "123").
		WillReturnRows(sqlmock.NewRows(outputColumns).AddRow(values...))

	got, err := store.GetEnrichment(context.Background(), core.SourceKey{Table: "x_tweets", ID: "123"})
	require.NoError(t, err)

	want := sampleRecord()
	want.Source.PostedAt = &posted
	assert.Equal(t, want, got)
}

func TestGetEnrichmentNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(outputColumns))

	_, err := store.GetEnrichment(context.Background(), core.SourceKey{Table: "x_tweets", ID: "nope"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCountEnrichments(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "enriched" WHERE source_table = $1`)).
		WithArgs("x_tweets").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "enriched"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	n, err := store.CountEnrichments(context.Background(), "x_tweets")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = store.CountEnrichments(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestRunLedger(t *testing.T) {
	store, mock := newMockStore(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	summary := &storage.RunSummary{
		RunID:          "run-1",
		Provider:       "x_tweets",
		Status:         storage.RunSucceeded,
		Fetched:        3,
		Written:        3,
		ModuleFailures: map[string]int{"topic": 1},
		StartedAt:      started,
		FinishedAt:     started.Add(time.Second),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "runs"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.RecordRun(context.Background(), summary))

	cols := []string{"run_id", "provider", "status", "fetched", "enriched", "written",
		"normalization_failures", "records_with_failures", "write_failures", "batches",
		"module_failures", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY started_at DESC, provider LIMIT $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("run-1", "x_tweets", "succeeded", 3, 0, 3, 0, 0, 0, 0,
			[]byte(`{"topic":1}`), "", started, started.Add(time.Second)))

	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary, runs[0])
	require.NoError(t, mock.ExpectationsWereMet())

	assert.ErrorIs(t, store.RecordRun(context.Background(), &storage.RunSummary{}), storage.ErrInvalidQuery)
}

func TestPutSourceRowsUnsupported(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.PutSourceRows(context.Background(), "x_tweets", "tweet_id", nil)
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}
