// Package pagestore implements random-access reads and writes of fixed-size
// pages on the main database file.
//
// The store is sparse by default: reading a page beyond the current file
// extent returns a zero-filled page rather than an error, so the file never
// needs to be pre-allocated. The store is mutated only by recovery and
// checkpoint; the write path never touches it directly.
package pagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Size is the fixed size, in bytes, of every page.
const Size = 4096

// Store is a random-access file of fixed-size pages.
type Store struct {
	f *os.File
}

// Open opens, creating if necessary, the main database file at path.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pagestore: open %s: %s", path, err)
	}
	return &Store{f: f}, nil
}

// ReadPage returns the page_size bytes at page_id * page_size. Pages outside
// the current file extent, and short reads at the tail of the file, read as
// zero-filled.
func (st *Store) ReadPage(pageID uint32) ([]byte, error) {
	buf := make([]byte, Size)
	_, err := st.f.ReadAt(buf, int64(pageID)*Size)
	if err != nil {
		// io.EOF (page beyond extent) and io.ErrUnexpectedEOF (partial
		// trailing page) both mean "never written"; zero-filled is correct.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return buf, nil
		}
		return nil, fmt.Errorf("pagestore: read page %d: %s", pageID, err)
	}
	return buf, nil
}

// WritePage writes data, which must be exactly Size bytes, at page_id *
// page_size. It does not fsync; callers batch fsync across a checkpoint or
// recovery pass.
func (st *Store) WritePage(pageID uint32, data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("pagestore: write page %d: bad page size %d", pageID, len(data))
	}
	_, err := st.f.WriteAt(data, int64(pageID)*Size)
	if err != nil {
		return fmt.Errorf("pagestore: write page %d: %s", pageID, err)
	}
	return nil
}

// Sync flushes the store to durable storage. It is called once per batch of
// checkpoint or recovery writes, never per page.
func (st *Store) Sync() error {
	if err := st.f.Sync(); err != nil {
		return fmt.Errorf("pagestore: sync: %s", err)
	}
	return nil
}

// Close closes the underlying file. It does not implicitly flush.
func (st *Store) Close() error {
	return st.f.Close()
}
