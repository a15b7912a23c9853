package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/enrichit/storage"
)

// RecordRun persists a provider run summary.
func (s *Store) RecordRun(ctx context.Context, summary *storage.RunSummary) error {
	if summary == nil || summary.RunID == "" || summary.Provider == "" {
		return fmt.Errorf("%w: run summary needs a run id and provider", storage.ErrInvalidQuery)
	}
	return s.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeRunKey(summary.StartedAt, summary.RunID, summary.Provider)
		return tx.Set(key, storage.MarshalRunSummary(summary))
	})
}

// ListRuns returns up to limit summaries, newest first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*storage.RunSummary, error) {
	var runs []*storage.RunSummary
	err := s.backend.View(ctx, func(tx *badger.Txn) error {
		prefix := []byte(runLogPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seek := append(append([]byte{}, prefix...), 0xff)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			if limit > 0 && len(runs) >= limit {
				return nil
			}
			err := iter.Item().Value(func(val []byte) error {
				summary, err := storage.UnmarshalRunSummary(val)
				if err != nil {
					return err
				}
				runs = append(runs, summary)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
