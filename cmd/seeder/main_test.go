package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestIngestBatched(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	path := writeLines(t, `{"tweet_id": 1, "tweet_text": "one"}

{"tweet_id": "2", "tweet_text": "two"}
{"tweet_id": "3", "tweet_text": "three"}
{"tweet_text": "no id"}
`)
	rows, err := rowsFromFile(path)
	require.NoError(t, err)

	n, err := ingestBatched(context.Background(), store, "x_tweets", "tweet_id", rows, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "rows without an id are skipped")

	d, err := providers.Builtin().Lookup("x_tweets")
	require.NoError(t, err)
	fetched, err := store.FetchUnenriched(context.Background(), d, 0)
	require.NoError(t, err)
	require.Len(t, fetched, 3)
	assert.Equal(t, "1", core.CoerceString(fetched[0]["tweet_id"]))
}

func TestRowsFromFileMalformed(t *testing.T) {
	rows, err := rowsFromFile(writeLines(t, "{\"tweet_id\": \"1\"}\nnot json\n"))
	require.NoError(t, err)

	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	n, err := ingestBatched(context.Background(), store, "x_tweets", "tweet_id", rows, 10)
	assert.ErrorContains(t, err, "line 2")
	assert.Equal(t, 0, n)

	_, err = rowsFromFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	path := writeLines(t, `{"post_id": "a1", "title": "hello"}`+"\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"seeder", "--db", dbPath, "--table", "reddit_posts", path}))
	assert.Contains(t, out.String(), "Loaded 1 rows into reddit_posts")

	err := app.Run([]string{"seeder", "--db", dbPath, "--table", "custom_feed", path})
	assert.ErrorContains(t, err, "--id-column")

	err = app.Run([]string{"seeder", "--db", dbPath, "--table", "reddit_posts"})
	assert.ErrorContains(t, err, "input file")
}
