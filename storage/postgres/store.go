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


package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
)

const (
	// DefaultTable is the default output table.
	DefaultTable = "social_enrichment"
	// DefaultRunsTable is the default run ledger table.
	DefaultRunsTable = "enrichment_runs"
)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db        *sql.DB
	table     string
	runsTable string
	ownsDB    bool
	logger    *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithTable sets the output table name.
func WithTable(name string) Option {
	return func(s *Store) error {
		if name == "" {
			return fmt.Errorf("%w: output table name is empty", storage.ErrInvalidQuery)
		}
		s.table = name
		return nil
	}
}

// WithRunsTable sets the run ledger table name.
func WithRunsTable(name string) Option {
	return func(s *Store) error {
		if name == "" {
			return fmt.Errorf("%w: runs table name is empty", storage.ErrInvalidQuery)
		}
		s.runsTable = name
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewStore wraps an open database. Closing the store does not close db.
func NewStore(db *sql.DB, opts ...Option) (storage.Store, error) {
	return newStore(db, false, opts...)
}

// Open connects with a lib/pq connection string and verifies the connection.
func Open(ctx context.Context, connStr string, opts ...Option) (storage.Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	store, err := newStore(db, true, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func newStore(db *sql.DB, ownsDB bool, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db is nil", storage.ErrInvalidQuery)
	}
	s := &Store{
		db:        db,
		table:     DefaultTable,
		runsTable: DefaultRunsTable,
		ownsDB:    ownsDB,
		logger:    slog.Default().With("component", "postgres-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// EnsureOutputTable creates the output and run ledger tables if missing.
func (s *Store) EnsureOutputTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createOutputTable, pq.QuoteIdentifier(s.table))); err != nil {
		return fmt.Errorf("failed to create output table %s: %w", s.table, err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createRunsTable, pq.QuoteIdentifier(s.runsTable))); err != nil {
		return fmt.Errorf("failed to create runs table %s: %w", s.runsTable, err)
	}
	return nil
}

// PutSourceRows is not supported: source tables belong to the scrapers.
func (s *Store) PutSourceRows(context.Context, string, string, []core.RawRow) (int, error) {
	return 0, fmt.Errorf("%w: postgres source tables are read-only", storage.ErrUnsupported)
}

// FetchUnenriched anti-joins d's table against the output table.
func (s *Store) FetchUnenriched(ctx context.Context, d *providers.Descriptor, limit int) ([]core.RawRow, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: descriptor is nil", storage.ErrInvalidQuery)
	}
	args := []any{d.Name}
	if limit > 0 {
		args = append(args, limit)
	}
	var scraped string
	if cols := d.Columns(core.FieldScrapedAt); len(cols) > 0 {
		scraped = cols[0]
	}
	rows, err := s.db.QueryContext(ctx, unenrichedQuery(d.Name, d.IDColumn, scraped, s.table, limit > 0), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []core.RawRow
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(core.RawRow, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertBatch writes records in one transaction with ON CONFLICT DO UPDATE.
func (s *Store) UpsertBatch(ctx context.Context, records []*core.EnrichmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := core.ValidateEnrichmentRecord(rec); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		args, err := recordArgs(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", rec.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// GetEnrichment reads one record by key.
func (s *Store) GetEnrichment(ctx context.Context, key core.SourceKey) (*core.EnrichmentRecord, error) {
	row := s.db.QueryRowContext(ctx, selectQuery(s.table), key.Table, key.ID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return rec, err
}

// CountEnrichments counts rows for one table, or all rows when table is empty.
func (s *Store) CountEnrichments(ctx context.Context, table string) (int, error) {
	var count int
	var err error
	if table == "" {
		err = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(s.table))).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE source_table = $1", pq.QuoteIdentifier(s.table)), table).Scan(&count)
	}
	return count, err
}

// RecordRun upserts a provider run summary.
func (s *Store) RecordRun(ctx context.Context, summary *storage.RunSummary) error {
	if summary == nil || summary.RunID == "" || summary.Provider == "" {
		return fmt.Errorf("%w: run summary needs a run id and provider", storage.ErrInvalidQuery)
	}
	failures, err := json.Marshal(summary.ModuleFailures)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (run_id, provider, status, fetched, enriched, written,
		normalization_failures, records_with_failures, write_failures, batches,
		module_failures, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, provider) DO UPDATE SET
			status = EXCLUDED.status, fetched = EXCLUDED.fetched, enriched = EXCLUDED.enriched,
			written = EXCLUDED.written, normalization_failures = EXCLUDED.normalization_failures,
			records_with_failures = EXCLUDED.records_with_failures, write_failures = EXCLUDED.write_failures,
			batches = EXCLUDED.batches, module_failures = EXCLUDED.module_failures,
			error = EXCLUDED.error, started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at`,
		pq.QuoteIdentifier(s.runsTable))

	_, err = s.db.ExecContext(ctx, query,
		summary.RunID, summary.Provider, summary.Status,
		summary.Fetched, summary.Enriched, summary.Written,
		summary.NormalizationFailures, summary.RecordsWithFailures, summary.WriteFailures, summary.Batches,
		failures, summary.Error, summary.StartedAt.UTC(), summary.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run %s/%s: %w", summary.RunID, summary.Provider, err)
	}
	return nil
}

// ListRuns returns the newest summaries first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*storage.RunSummary, error) {
	query := fmt.Sprintf(`SELECT run_id, provider, status, fetched, enriched, written,
		normalization_failures, records_with_failures, write_failures, batches,
		module_failures, error, started_at, finished_at
		FROM %s ORDER BY started_at DESC, provider`, pq.QuoteIdentifier(s.runsTable))
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*storage.RunSummary
	for rows.Next() {
		var r storage.RunSummary
		var failures []byte
		if err := rows.Scan(&r.RunID, &r.Provider, &r.Status, &r.Fetched, &r.Enriched, &r.Written,
			&r.NormalizationFailures, &r.RecordsWithFailures, &r.WriteFailures, &r.Batches,
			&failures, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if len(failures) > 0 {
			if err := json.Unmarshal(failures, &r.ModuleFailures); err != nil {
				return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
		}
		r.StartedAt = r.StartedAt.UTC()
		r.FinishedAt = r.FinishedAt.UTC()
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
