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


package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
)

// Store implements storage.Store on BadgerDB.
type Store struct {
	backend   *Backend
	ownsDB    bool
	seqMu     sync.Mutex
	seq       *badger.Sequence
	closeOnce sync.Once
}

var _ storage.Store = (*Store)(nil)

// NewStore opens (or creates) a store at path.
func NewStore(path string) (storage.Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend, true)
}

// NewMemoryStore creates an in-memory store, for tests and dry runs.
func NewMemoryStore() (storage.Store, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newStore(backend, true)
}

// NewStoreWithBackend creates a store on an already open backend.
// Closing the store does not close the backend.
func NewStoreWithBackend(backend *Backend) (*Store, error) {
	return newStore(backend, false)
}

func newStore(backend *Backend, ownsDB bool) (*Store, error) {
	seq, err := backend.GetSequence(sourceRowSeq)
	if err != nil {
		if ownsDB {
			backend.Close()
		}
		return nil, err
	}
	return &Store{backend: backend, ownsDB: ownsDB, seq: seq}, nil
}

// Close releases the row sequence and, when owned, the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.seq.Release()
		if s.ownsDB {
			err = errors.Join(err, s.backend.Close())
		}
	})
	return err
}

// PutSourceRows stores raw rows under table in insertion order.
// A row whose id was stored before keeps its position and gets the new content.
func (s *Store) PutSourceRows(ctx context.Context, table, idColumn string, rows []core.RawRow) (int, error) {
	if table == "" || idColumn == "" {
		return 0, fmt.Errorf("%w: table and id column are required", storage.ErrInvalidQuery)
	}
	stored := 0
	err := s.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, row := range rows {
			id := strings.TrimSpace(core.CoerceString(row[idColumn]))
			if id == "" {
				continue
			}
			value, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}

			seq, err := s.rowSeq(tx, table, id)
			if err != nil {
				return err
			}
			if err := tx.Set(makeSourceRowKey(table, seq), value); err != nil {
				return err
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// rowSeq returns the existing sequence for (table, id) or allocates a new one.
func (s *Store) rowSeq(tx *badger.Txn, table, id string) (uint64, error) {
	idxKey := makeSourceIndexKey(table, id)
	item, err := tx.Get(idxKey)
	if err == nil {
		var seq uint64
		err = item.Value(func(val []byte) error {
			seq = binary.BigEndian.Uint64(val)
			return nil
		})
		return seq, err
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, err
	}

	s.seqMu.Lock()
	seq, err := s.seq.Next()
	s.seqMu.Unlock()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return seq, tx.Set(idxKey, buf)
}

// FetchUnenriched scans d's rows in insertion order and keeps those without an Enrichment Record.
// Rows whose id column is blank are returned so normalization can count them.
func (s *Store) FetchUnenriched(ctx context.Context, d *providers.Descriptor, limit int) ([]core.RawRow, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: descriptor is nil", storage.ErrInvalidQuery)
	}
	var rows []core.RawRow
	err := s.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSourceRowPrefix(d.Name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(rows) >= limit {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var row core.RawRow
			err := iter.Item().Value(func(val []byte) error {
				dec := json.NewDecoder(bytes.NewReader(val))
				dec.UseNumber()
				return dec.Decode(&row)
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}

			id := strings.TrimSpace(core.CoerceString(row[d.IDColumn]))
			if id != "" {
				enriched, err := exists(tx, makeEnrichmentKey(core.SourceKey{Table: d.Name, ID: id}))
				if err != nil {
					return err
				}
				if enriched {
					continue
				}
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsureOutputTable is a no-op: badger has no schema.
func (s *Store) EnsureOutputTable(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// UpsertBatch writes records in one transaction; a later write for a key replaces the earlier one.
func (s *Store) UpsertBatch(ctx context.Context, records []*core.EnrichmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := core.ValidateEnrichmentRecord(rec); err != nil {
			return err
		}
	}
	return s.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, rec := range records {
			key := rec.Key()
			if err := tx.Set(makeEnrichmentKey(key), storage.MarshalEnrichmentRecord(rec)); err != nil {
				return err
			}
			if err := tx.Set(makeEnrichmentTableKey(key), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEnrichment returns the stored record for key.
func (s *Store) GetEnrichment(ctx context.Context, key core.SourceKey) (*core.EnrichmentRecord, error) {
	var record *core.EnrichmentRecord
	err := s.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeEnrichmentKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalEnrichmentRecord(val)
			return unmarshalErr
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CountEnrichments counts index keys under the table prefix.
func (s *Store) CountEnrichments(ctx context.Context, table string) (int, error) {
	count := 0
	err := s.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeEnrichmentTablePrefix(table)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func exists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
