package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// outputColumns lists the output table columns in insert order.
// source_table and source_id form the primary key.
var outputColumns = []string{
	"source_table", "source_id",
	"source_text", "source_author", "author_handle",
	"likes", "shares", "comments", "views",
	"posted_at", "source_hashtags", "keyword", "region", "source_url", "scraped_at", "metadata",
	"sentiment_label", "sentiment_score", "sentiment_emotions", "sentiment_topics",
	"people", "organizations", "locations", "products", "hashtags", "mentions",
	"primary_category", "sub_categories", "industry", "keywords", "is_commercial", "is_news",
	"engagement_score", "engagement_rate", "virality_score", "interaction_quality",
	"time_adjusted_score", "percentile_score", "engagement_tier",
	"is_safe", "risk_level", "flags", "content_warnings", "recommended_action", "confidence_score",
	"failed_modules", "enriched_at", "enrichment_version", "date",
}

const createOutputTable = `
CREATE TABLE IF NOT EXISTS %[1]s (
	source_table        TEXT NOT NULL,
	source_id           TEXT NOT NULL,
	source_text         TEXT NOT NULL DEFAULT '',
	source_author       TEXT NOT NULL DEFAULT '',
	author_handle       TEXT NOT NULL DEFAULT '',
	likes               BIGINT NOT NULL DEFAULT 0,
	shares              BIGINT NOT NULL DEFAULT 0,
	comments            BIGINT NOT NULL DEFAULT 0,
	views               BIGINT NOT NULL DEFAULT 0,
	posted_at           TIMESTAMPTZ,
	source_hashtags     TEXT[],
	keyword             TEXT NOT NULL DEFAULT '',
	region              TEXT NOT NULL DEFAULT '',
	source_url          TEXT NOT NULL DEFAULT '',
	scraped_at          TIMESTAMPTZ,
	metadata            JSONB,
	sentiment_label     TEXT,
	sentiment_score     DOUBLE PRECISION,
	sentiment_emotions  TEXT[],
	sentiment_topics    TEXT[],
	people              TEXT[],
	organizations       TEXT[],
	locations           TEXT[],
	products            TEXT[],
	hashtags            TEXT[],
	mentions            TEXT[],
	primary_category    TEXT,
	sub_categories      TEXT[],
	industry            TEXT,
	keywords            TEXT[],
	is_commercial       BOOLEAN,
	is_news             BOOLEAN,
	engagement_score    DOUBLE PRECISION,
	engagement_rate     DOUBLE PRECISION,
	virality_score      DOUBLE PRECISION,
	interaction_quality DOUBLE PRECISION,
	time_adjusted_score DOUBLE PRECISION,
	percentile_score    DOUBLE PRECISION,
	engagement_tier     TEXT,
	is_safe             BOOLEAN,
	risk_level          TEXT,
	flags               TEXT[],
	content_warnings    TEXT[],
	recommended_action  TEXT,
	confidence_score    DOUBLE PRECISION,
	failed_modules      TEXT[],
	enriched_at         TIMESTAMPTZ NOT NULL,
	enrichment_version  TEXT NOT NULL,
	date                DATE NOT NULL,
	PRIMARY KEY (source_table, source_id)
)`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS %[1]s (
	run_id                 TEXT NOT NULL,
	provider               TEXT NOT NULL,
	status                 TEXT NOT NULL,
	fetched                INTEGER NOT NULL DEFAULT 0,
	enriched               INTEGER NOT NULL DEFAULT 0,
	written                INTEGER NOT NULL DEFAULT 0,
	normalization_failures INTEGER NOT NULL DEFAULT 0,
	records_with_failures  INTEGER NOT NULL DEFAULT 0,
	write_failures         INTEGER NOT NULL DEFAULT 0,
	batches                INTEGER NOT NULL DEFAULT 0,
	module_failures        JSONB,
	error                  TEXT NOT NULL DEFAULT '',
	started_at             TIMESTAMPTZ NOT NULL,
	finished_at            TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, provider)
)`

// upsertQuery builds INSERT ... ON CONFLICT (source_table, source_id) DO UPDATE
// replacing every non-key column, so the latest write wins entirely.
func upsertQuery(table string) string {
	placeholders := make([]string, len(outputColumns))
	updates := make([]string, 0, len(outputColumns)-2)
	for i, col := range outputColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if i >= 2 {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (source_table, source_id) DO UPDATE SET %s",
		pq.QuoteIdentifier(table),
		strings.Join(outputColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "))
}

// selectQuery reads one record by key.
func selectQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE source_table = $1 AND source_id = $2",
		strings.Join(outputColumns, ", "), pq.QuoteIdentifier(table))
}

// unenrichedQuery anti-joins a source table against the output table.
// Scrape tables are append logs, so DISTINCT ON keeps one row per id: the
// latest scrape when scrapedColumn is set.
func unenrichedQuery(sourceTable, idColumn, scrapedColumn, outputTable string, limited bool) string {
	id := pq.QuoteIdentifier(idColumn)
	order := "s." + id
	if scrapedColumn != "" {
		order += ", s." + pq.QuoteIdentifier(scrapedColumn) + " DESC NULLS LAST"
	}
	q := fmt.Sprintf("SELECT DISTINCT ON (s.%[2]s) s.* FROM %[1]s s WHERE NOT EXISTS (SELECT 1 FROM %[3]s e WHERE e.source_table = $1 AND e.source_id = s.%[2]s::text) ORDER BY %[4]s",
		pq.QuoteIdentifier(sourceTable), id, pq.QuoteIdentifier(outputTable), order)
	if limited {
		q += " LIMIT $2"
	}
	return q
}
