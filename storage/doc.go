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


// Package storage defines the collaborators the enrichment pipeline reads
// from and writes to.
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Store interface:
//
//	store, err := badger.NewStore("/path/to/db")   // storage.Store
//	store, err := postgres.NewStore(db, "enriched") // storage.Store
//
// Internal constructors may return concrete types.
//
// # Collaborators
//
//   - SourceReader: raw provider rows that have no enrichment yet
//   - SourceWriter: loads raw rows (used by the seeder)
//   - EnrichmentWriter: idempotent upsert keyed by (source_table, source_id)
//   - EnrichmentReader: point lookups and counts
//   - RunRecorder: per-provider run ledger
//
// # Encoding
//
// Enrichment Records and run summaries are encoded with mus-go serializers
// behind a one-byte format version.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
