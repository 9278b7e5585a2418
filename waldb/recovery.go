package waldb

import (
	"github.com/sirupsen/logrus"

	"github.com/leftmike/waldb/walfile"
)

// recover runs spec.md §4.7's startup recovery: forward-scan the WAL,
// determine which tx_ids committed, replay their page images into the page
// store in forward (last-write-wins) order, fsync the store, and truncate
// the WAL to zero. A malformed trailing record is treated as end-of-log,
// not a fault.
func (eng *Engine) recover() error {
	size, err := eng.wal.Size()
	if err != nil {
		return newError(IoError, "recovery: size WAL", err)
	}
	if size == 0 {
		return nil
	}

	buf, err := eng.wal.ReadAt(0, int(size))
	if err != nil {
		return newError(IoError, "recovery: read WAL", err)
	}

	committed := make(map[uint32]bool)
	_, truncated := walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		if rec.Type == walfile.CommitRecordType && rec.CommitOK {
			committed[rec.TxID] = true
		}
		return true
	})
	if truncated {
		eng.log.Warn("waldb: recovery found a malformed or partial trailing WAL record; " +
			"treating it as end-of-log")
	}

	replayed := 0
	var replayErr error
	walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		if rec.Type == walfile.PageRecordType && committed[rec.TxID] {
			if err := eng.store.WritePage(rec.PageID, rec.Data); err != nil {
				// Scan cannot produce a malformed image length, so a
				// WritePage failure here is an I/O failure; it is
				// fatal rather than a silently skipped page.
				replayErr = newError(IoError, "recovery: replay page record", err)
				return false
			}
			replayed++
		}
		return true
	})
	if replayErr != nil {
		return replayErr
	}

	if err := eng.store.Sync(); err != nil {
		return newError(IoError, "recovery: sync page store", err)
	}
	eng.cacheMu.Lock()
	eng.cache.Invalidate()
	eng.cacheMu.Unlock()
	if err := eng.wal.TruncateToZero(); err != nil {
		return newError(IoError, "recovery: truncate WAL", err)
	}

	eng.log.WithFields(logrus.Fields{
		"committed_txs":   len(committed),
		"replayed_pages":  replayed,
		"truncated_input": truncated,
	}).Info("waldb: recovery complete")

	return nil
}
