// Package txmgr implements the Transaction Manager: issuing monotonically
// increasing writer IDs, and registering the snapshot offsets of active
// readers so checkpoint knows how much WAL it may reclaim.
//
// All state is guarded by a single mutex, per spec.md §5 ("Transaction
// Manager state ... is guarded by a single mutex; operations are
// O(readers) but brief"), the way the teacher guards rowColsStore.mutex.
package txmgr

import (
	"errors"
	"sync"
)

// ErrWriterBusy is returned by BeginWrite when a writer is already active.
// At most one writer may exist at a time (spec.md §4.3).
var ErrWriterBusy = errors.New("txmgr: another writer is already active")

// Manager tracks the writer slot, the next transaction ID to hand out, and
// the multiset of active reader snapshot offsets.
type Manager struct {
	mu sync.Mutex

	nextTxID     uint32
	writerActive bool

	// activeReaders is a multiset of snapshot offsets: the count at a key
	// is how many live readers share that exact snapshot. spec.md §9
	// calls for a growable mapping here in place of the source's
	// fixed-capacity array.
	activeReaders map[int64]int
}

// New creates a Manager with tx_id allocation starting at 1, as spec.md §3
// requires (0 is reserved as "none").
func New() *Manager {
	return &Manager{
		nextTxID:      1,
		activeReaders: make(map[int64]int),
	}
}

// BeginWrite allocates the next tx_id and marks the writer slot occupied.
// It fails with ErrWriterBusy if a writer is already active.
func (m *Manager) BeginWrite() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writerActive {
		return 0, ErrWriterBusy
	}
	m.writerActive = true
	txID := m.nextTxID
	m.nextTxID++
	return txID, nil
}

// EndWrite releases the writer slot, whether the writer committed or was
// dropped without committing. The allocated tx_id is never reused.
func (m *Manager) EndWrite() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writerActive = false
}

// BeginReadAt registers snapshot as an active reader's snapshot offset.
// Callers must capture snapshot (WAL.Size()) atomically with respect to
// commits — see waldb.Engine.BeginRead, which holds the same commit-ordering
// lock while calling this.
func (m *Manager) BeginReadAt(snapshot int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeReaders[snapshot]++
}

// EndRead removes one occurrence of snapshot from the active-reader set.
func (m *Manager) EndRead(snapshot int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.activeReaders[snapshot]
	if !ok {
		return
	}
	if n <= 1 {
		delete(m.activeReaders, snapshot)
	} else {
		m.activeReaders[snapshot] = n - 1
	}
}

// OldestReaderSnapshot returns the minimum active reader snapshot, or
// walSize (the current end of the WAL) if there are no active readers, per
// spec.md §4.3/§4.8.
func (m *Manager) OldestReaderSnapshot(walSize int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.activeReaders) == 0 {
		return walSize
	}
	oldest := int64(-1)
	for snap := range m.activeReaders {
		if oldest == -1 || snap < oldest {
			oldest = snap
		}
	}
	return oldest
}

// RebaseReaders subtracts delta from every active reader snapshot, called
// once by checkpoint immediately after it rewrites the WAL so that bytes
// [safe, end) become [0, end-safe). Snapshots below safe would go negative
// and must not exist: checkpoint only ever rebases by oldest_reader_snapshot,
// so every live snapshot is >= delta.
func (m *Manager) RebaseReaders(delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delta == 0 {
		return
	}
	rebased := make(map[int64]int, len(m.activeReaders))
	for snap, n := range m.activeReaders {
		rebased[snap-delta] = n
	}
	m.activeReaders = rebased
}

// ActiveReaderCount reports how many live readers exist, for diagnostics.
func (m *Manager) ActiveReaderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, n := range m.activeReaders {
		total += n
	}
	return total
}
