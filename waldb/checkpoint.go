package waldb

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/leftmike/waldb/walfile"
)

// Checkpoint executes spec.md §4.8: migrate every committed page image in
// the WAL prefix no live reader still needs into the page store, then
// rewrite the WAL to drop that prefix and rebase every live reader's
// snapshot accordingly.
func (eng *Engine) Checkpoint() error {
	eng.ckptMu.Lock()
	defer eng.ckptMu.Unlock()

	walSize, err := eng.wal.Size()
	if err != nil {
		return newError(IoError, "checkpoint: size WAL", err)
	}
	safe := eng.txm.OldestReaderSnapshot(walSize)
	if safe <= 0 {
		return nil
	}

	buf, err := eng.wal.ReadAt(0, int(safe))
	if err != nil {
		return newError(IoError, "checkpoint: read WAL prefix", err)
	}

	committed := make(map[uint32]bool)
	walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		if rec.Type == walfile.CommitRecordType && rec.CommitOK {
			committed[rec.TxID] = true
		}
		return true
	})

	migrated := 0
	var writeErr error
	walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		if rec.Type == walfile.PageRecordType && committed[rec.TxID] {
			// Scan only ever sees well-formed records here: buf
			// came from the already-recovered, append-only prefix
			// [0, safe), which can contain no partial records.
			if err := eng.store.WritePage(rec.PageID, rec.Data); err != nil {
				writeErr = newError(IoError, "checkpoint: write page", err)
				return false
			}
			migrated++
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}

	if err := eng.store.Sync(); err != nil {
		return newError(IoError, "checkpoint: sync page store", err)
	}
	eng.cacheMu.Lock()
	eng.cache.Invalidate()
	eng.cacheMu.Unlock()
	if err := eng.wal.TruncatePrefix(safe); err != nil {
		return newError(IoError, "checkpoint: truncate WAL prefix", err)
	}

	eng.rebaseReaders(safe)
	eng.txm.RebaseReaders(safe)

	eng.log.WithFields(logrus.Fields{"safe": safe, "migrated_pages": migrated}).Debug(
		"waldb: checkpoint complete")

	return nil
}

// rebaseReaders shifts every live Reader's snapshot by -delta and drops its
// cached scan results, so that the next Read rebuilds against the rewritten
// WAL. Readers whose snapshot was already < delta cannot exist: checkpoint
// only ever rebases by oldest_reader_snapshot, so every live snapshot is
// >= delta by construction.
func (eng *Engine) rebaseReaders(delta int64) {
	eng.readersMu.Lock()
	readers := make([]*Reader, 0, len(eng.readers))
	for r := range eng.readers {
		readers = append(readers, r)
	}
	eng.readersMu.Unlock()

	for _, r := range readers {
		atomic.AddInt64(&r.snapshot, -delta)
		r.invalidate()
	}
}
