package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/enrichit/core"
)

// Key prefixes for different data types
const (
	sourceRowPrefix    = "srcrow"
	sourceIndexPrefix  = "srcidx"
	sourceRowSeq       = "srcseq"
	enrichmentPrefix   = "enrrec"
	enrichmentTablePfx = "enrtbl"
	runLogPrefix       = "runlog"
)

// makeSourceRowPrefix generates the scan prefix for one table's rows.
// Format: prefix:table\x00
func makeSourceRowPrefix(table string) []byte {
	return []byte(sourceRowPrefix + ":" + table + "\x00")
}

// makeSourceRowKey generates the key of one source row.
// Format: prefix:table\x00seq, with seq big-endian so scans follow insertion order.
func makeSourceRowKey(table string, seq uint64) []byte {
	prefix := makeSourceRowPrefix(table)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeSourceIndexKey maps a provider-local id to its row sequence.
// Format: prefix:table\x00id
func makeSourceIndexKey(table, id string) []byte {
	return []byte(sourceIndexPrefix + ":" + table + "\x00" + id)
}

// makeEnrichmentKey generates the key of an Enrichment Record.
// Format: prefix:keyID table\x00id. The content ID spreads keys; the exact
// table and id that follow it keep identity lossless.
func makeEnrichmentKey(key core.SourceKey) []byte {
	prefix := []byte(enrichmentPrefix + ":")
	exact := key.Table + "\x00" + key.ID
	buf := make([]byte, len(prefix)+8+len(exact))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(key.KeyID()))
	copy(buf[offset+8:], exact)
	return buf
}

// makeEnrichmentTablePrefix generates the scan prefix of a table's enrichment index.
// An empty table scans every table.
func makeEnrichmentTablePrefix(table string) []byte {
	if table == "" {
		return []byte(enrichmentTablePfx + ":")
	}
	return []byte(enrichmentTablePfx + ":" + table + "\x00")
}

// makeEnrichmentTableKey indexes an Enrichment Record by table.
// Format: prefix:table\x00id
func makeEnrichmentTableKey(key core.SourceKey) []byte {
	return []byte(enrichmentTablePfx + ":" + key.Table + "\x00" + key.ID)
}

// makeRunKey generates a run ledger key.
// Format: prefix:startedAt:runID\x00provider, startedAt big-endian micros.
func makeRunKey(startedAt time.Time, runID, provider string) []byte {
	prefix := []byte(runLogPrefix + ":")
	suffix := []byte(runID + "\x00" + provider)
	buf := make([]byte, len(prefix)+8+len(suffix))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], suffix)
	return buf
}
