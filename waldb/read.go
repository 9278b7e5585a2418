package waldb

import (
	"sync/atomic"

	"github.com/google/btree"

	"github.com/leftmike/waldb/walfile"
)

// readCache holds the per-reader result of scanning the WAL once: the
// newest committed page image found in the log within the reader's snapshot
// for each page_id that appears there at all. The committed tx_id set used
// to build it is not kept. spec.md §4.6 permits caching across reads from
// the same reader as long as the snapshot itself is never extended.
//
// The newest-image index is kept in a btree.BTree rather than a plain map
// so Checkpoint's invalidation story generalizes if a future caller wants
// ordered iteration (e.g. dumping a reader's visible WAL-resident pages in
// page_id order for inspection); today lookups are by exact page_id only.
type readCache struct {
	byPage *btree.BTree
}

type pageItem struct {
	pageID uint32
	data   []byte
}

func (p pageItem) Less(than btree.Item) bool {
	return p.pageID < than.(pageItem).pageID
}

// Read executes spec.md §4.6's read protocol: resolve the newest committed
// image for pageID visible at r's snapshot, falling back to the page store.
func (eng *Engine) Read(r *Reader, pageID uint32) ([]byte, error) {
	cache, err := eng.readerCache(r)
	if err != nil {
		return nil, err
	}

	item := cache.byPage.Get(pageItem{pageID: pageID})
	if item != nil {
		pi := item.(pageItem)
		out := make([]byte, len(pi.data))
		copy(out, pi.data)
		return out, nil
	}

	eng.cacheMu.Lock()
	data, err := eng.cache.ReadPage(pageID)
	eng.cacheMu.Unlock()
	if err != nil {
		return nil, newError(IoError, "read page", err)
	}
	return data, nil
}

// readerCache returns r's cached scan results, building them on first use.
// Checkpoint's rebase clears the cache via invalidate so the next Read
// rebuilds it against the rebased WAL.
func (eng *Engine) readerCache(r *Reader) (*readCache, error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if r.cache != nil {
		return r.cache, nil
	}

	snapshot := atomic.LoadInt64(&r.snapshot)
	buf, err := eng.wal.ReadAt(0, int(snapshot))
	if err != nil {
		return nil, newError(IoError, "read WAL for snapshot", err)
	}

	committed := make(map[uint32]bool)
	walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		if rec.Type == walfile.CommitRecordType && rec.CommitOK {
			committed[rec.TxID] = true
		}
		return true
	})

	byPage := btree.New(32)
	walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		if rec.Type == walfile.PageRecordType && committed[rec.TxID] {
			// Forward order: later records for the same page_id
			// overwrite earlier ones, which is equivalent to the
			// rearward "first match wins" scan spec.md §4.6
			// describes — both select the last Page Record written
			// for page_id within the committed set.
			byPage.ReplaceOrInsert(pageItem{pageID: rec.PageID, data: rec.Data})
		}
		return true
	})

	r.cache = &readCache{byPage: byPage}
	return r.cache, nil
}

// invalidate drops r's cached scan results, forcing the next Read to
// rebuild them. Called by checkpoint after it rebases r's snapshot.
func (r *Reader) invalidate() {
	r.cacheMu.Lock()
	r.cache = nil
	r.cacheMu.Unlock()
}
