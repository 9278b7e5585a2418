// Package waldb implements the WAL storage engine: the single public entry
// point that ties the Page Store, WAL File, and Transaction Manager into the
// open/begin_write/stage_write/commit/begin_read/read/end_read/checkpoint
// protocol described by spec.md §6.
//
// Package layout mirrors the teacher's storage/rowcols package, which also
// keeps one file per concern (store, wal, transactions) behind a single
// exported store type: engine.go here plays the role rowcols.go plays
// there.
package waldb

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/leftmike/waldb/pagestore"
	"github.com/leftmike/waldb/txmgr"
	"github.com/leftmike/waldb/walfile"
)

// PageSize is the fixed page size for every Engine. spec.md §3 calls 4096
// the "conventional" size; the engine does not support per-open overrides,
// mirroring pagestore.Size.
const PageSize = pagestore.Size

// CheckpointInterval is the default number of commits between automatic
// checkpoints, grounded on spec.md §4.8's "every N commits, for a small N
// like 10." It is a policy knob, not a correctness requirement: Engine.Open
// callers may disable automatic checkpointing entirely via a negative
// Options.CheckpointEvery and call Checkpoint themselves.
const CheckpointInterval = 10

// DefaultPageCacheSize is the read-through cache capacity used when
// Options.PageCacheSize is left at zero.
const DefaultPageCacheSize = 256

// Options configures Open. The zero value is a usable default.
type Options struct {
	// CheckpointEvery is the number of commits between automatic
	// checkpoints. 0 uses CheckpointInterval; a negative value disables
	// automatic checkpointing entirely.
	CheckpointEvery int

	// PageCacheSize bounds the read-through page store cache consulted
	// when a reader's WAL scan misses, per spec.md §9 ("an optional
	// read-path LRU over the Page Store is permitted but not required").
	// 0 uses DefaultPageCacheSize; a negative value disables the cache.
	PageCacheSize int

	// Log receives structured diagnostics. A nil Log uses logrus's
	// standard logger, matching the teacher's package-level use of
	// logrus without a per-component logger.
	Log *logrus.Entry
}

// Engine is the single object owning both files and the transaction state,
// replacing the source's global db_fd/wal_fd/next_tx_id/reader_snapshots
// per spec.md §9.
type Engine struct {
	store *pagestore.Store
	wal   *walfile.File
	txm   *txmgr.Manager
	log   *logrus.Entry

	// cache is a read-through cache over store, consulted by Read only
	// after a WAL scan misses. cacheMu serializes access since
	// pagestore.Cache keeps no lock of its own.
	cacheMu sync.Mutex
	cache   *pagestore.Cache

	checkpointEvery int

	// commitMu serializes a commit's WAL append+fsync+size-publication
	// against a begin_read's snapshot capture, per spec.md §5
	// ("begin_read is linearizable with respect to commit").
	commitMu sync.Mutex

	// ckptMu excludes concurrent checkpoints from each other and from a
	// commit in progress, per spec.md §5 ("checkpoint holds a separate
	// mutex excluding writers and other checkpoints but allowing
	// readers").
	ckptMu sync.Mutex

	readersMu      sync.Mutex
	readers        map[*Reader]struct{}
	commitsPending int32 // commits since the last checkpoint; accessed atomically
}

// Writer owns a tx_id and an exclusive write buffer, per spec.md §3's
// Writer Handle. At most one Writer exists at a time.
type Writer struct {
	txID uint32
	buf  *writeBuffer
	done bool
}

// Reader owns a snapshot offset into the WAL, per spec.md §3's Reader
// Handle. snapshot is accessed atomically because checkpoint rebases it
// concurrently with calls to Read on other readers.
type Reader struct {
	snapshot int64 // kept first: atomically accessed, must stay word-aligned

	cacheMu sync.Mutex
	cache   *readCache // lazily built by Read, invalidated by rebase
}

// Open opens (creating if necessary) the main page store at path and its
// WAL at path+"-wal", runs recovery, and returns a ready Engine.
func Open(path string, opts Options) (*Engine, error) {
	store, err := pagestore.Open(path)
	if err != nil {
		return nil, newError(IoError, "open page store", err)
	}

	wal, err := walfile.Open(path + "-wal")
	if err != nil {
		store.Close()
		return nil, newError(IoError, "open WAL", err)
	}

	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	checkpointEvery := opts.CheckpointEvery
	switch {
	case checkpointEvery == 0:
		checkpointEvery = CheckpointInterval
	case checkpointEvery < 0:
		checkpointEvery = 0
	}

	cacheSize := opts.PageCacheSize
	switch {
	case cacheSize == 0:
		cacheSize = DefaultPageCacheSize
	case cacheSize < 0:
		cacheSize = 0
	}

	eng := &Engine{
		store:           store,
		wal:             wal,
		txm:             txmgr.New(),
		log:             log,
		cache:           pagestore.NewCache(store, cacheSize),
		checkpointEvery: checkpointEvery,
		readers:         make(map[*Reader]struct{}),
	}

	if err := eng.recover(); err != nil {
		wal.Close()
		store.Close()
		return nil, err
	}

	return eng, nil
}

// Close flushes nothing implicitly, per spec.md §6, and releases both file
// handles on a best-effort basis.
func (eng *Engine) Close() error {
	walErr := eng.wal.Close()
	storeErr := eng.store.Close()
	if walErr != nil {
		return newError(IoError, "close WAL", walErr)
	}
	if storeErr != nil {
		return newError(IoError, "close page store", storeErr)
	}
	return nil
}

// BeginWrite allocates a Writer Handle with an empty Write Buffer, failing
// with WriterBusy if another writer already exists.
func (eng *Engine) BeginWrite() (*Writer, error) {
	txID, err := eng.txm.BeginWrite()
	if err != nil {
		return nil, newError(WriterBusy, "begin write", err)
	}
	return &Writer{txID: txID, buf: newWriteBuffer()}, nil
}

// StageWrite copies data into w's write buffer under pageID. data must be
// exactly PageSize bytes.
func (eng *Engine) StageWrite(w *Writer, pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return newError(BadPageSize, "stage_write", nil)
	}
	w.buf.stage(pageID, data)
	return nil
}

// Commit executes the protocol of spec.md §4.5: append every staged page
// record, then a commit record, fsync, and release the writer slot. On any
// I/O failure the transaction aborts; the orphaned WAL tail is reclaimed by
// the next recovery.
func (eng *Engine) Commit(w *Writer) error {
	if w.done {
		return newError(Corruption, "commit: writer already consumed", nil)
	}

	staged := w.buf.drain()

	// Excludes checkpoint for the duration of the append+fsync, per
	// spec.md §5 ("[checkpoint] may not run while a writer is
	// mid-commit"); commitMu nested inside additionally orders the
	// WAL-size publication against begin_read's snapshot capture.
	eng.ckptMu.Lock()
	eng.commitMu.Lock()
	err := eng.appendCommit(w.txID, staged)
	eng.commitMu.Unlock()
	eng.ckptMu.Unlock()

	eng.txm.EndWrite()
	w.done = true

	if err != nil {
		return err
	}

	eng.log.WithFields(logrus.Fields{"tx_id": w.txID, "pages": len(staged)}).Debug(
		"waldb: committed")

	if eng.checkpointEvery > 0 {
		if n := atomic.AddInt32(&eng.commitsPending, 1); int(n) >= eng.checkpointEvery {
			atomic.StoreInt32(&eng.commitsPending, 0)
			if err := eng.Checkpoint(); err != nil {
				eng.log.WithError(err).Warn("waldb: automatic checkpoint failed")
			}
		}
	}

	return nil
}

func (eng *Engine) appendCommit(txID uint32, staged []stagedPage) error {
	for _, p := range staged {
		if err := eng.wal.AppendPageRecord(txID, p.PageID, p.Data); err != nil {
			return newError(IoError, "append page record", err)
		}
	}
	if err := eng.wal.AppendCommitRecord(txID); err != nil {
		return newError(IoError, "append commit record", err)
	}
	if err := eng.wal.Sync(); err != nil {
		return newError(IoError, "sync WAL", err)
	}
	return nil
}

// Abort discards w's staged pages without writing anything. It is provided
// for callers that want to abort explicitly rather than simply dropping w;
// dropping w without calling Commit or Abort has the same effect except
// that the writer slot is not released until one of them runs.
func (eng *Engine) Abort(w *Writer) {
	if w.done {
		return
	}
	w.buf.drain()
	eng.txm.EndWrite()
	w.done = true
}

// BeginRead captures snapshot = WAL.size() atomically with respect to
// commit (both hold commitMu) and registers it as a live reader. It also
// holds ckptMu so that a reader can never be registered in the narrow
// window between checkpoint computing its safe point and rebasing every
// registered reader by it — a conservative reading of spec.md §5's "rebase
// is atomic with respect to new readers."
func (eng *Engine) BeginRead() (*Reader, error) {
	eng.ckptMu.Lock()
	defer eng.ckptMu.Unlock()

	eng.commitMu.Lock()
	snapshot, err := eng.wal.Size()
	if err != nil {
		eng.commitMu.Unlock()
		return nil, newError(IoError, "begin_read: size WAL", err)
	}
	eng.txm.BeginReadAt(snapshot)
	eng.commitMu.Unlock()

	r := &Reader{snapshot: snapshot}
	eng.readersMu.Lock()
	eng.readers[r] = struct{}{}
	eng.readersMu.Unlock()
	return r, nil
}

// EndRead releases r's snapshot, allowing checkpoint to reclaim WAL bytes
// it alone was pinning.
func (eng *Engine) EndRead(r *Reader) {
	eng.readersMu.Lock()
	delete(eng.readers, r)
	eng.readersMu.Unlock()

	eng.txm.EndRead(atomic.LoadInt64(&r.snapshot))
}
