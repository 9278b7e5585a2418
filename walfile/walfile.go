// Package walfile implements the append-only write-ahead log file: the
// on-disk stream of Page Records and Commit Records described by spec.md
// §4.2/§6. It knows how to append records, read raw ranges, report the
// current size, and rewrite the file to drop a checkpointed prefix. It does
// not know what a transaction or a reader snapshot is — that is txmgr's and
// waldb's job.
package walfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is the append-only WAL file.
type File struct {
	path string
	f    *os.File
}

// Open opens, creating if necessary, the WAL file at path. It is opened with
// O_APPEND so every Write lands at the current end of file regardless of the
// file's read offset, which ReadAt (used by the scan path) leaves untouched;
// without it, an append after a ReadAt-driven scan, or after TruncatePrefix
// reopens the file, would write at whatever offset the file position happens
// to be at instead of the end.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("walfile: open %s: %s", path, err)
	}
	return &File{path: path, f: f}, nil
}

// Size returns the current length of the WAL file, which doubles as the
// next byte offset a record would be appended at.
func (wf *File) Size() (int64, error) {
	fi, err := wf.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("walfile: stat: %s", err)
	}
	return fi.Size(), nil
}

// ReadAt reads n bytes starting at offset. A short read at the tail of the
// file returns only the bytes actually present, with a nil error; any
// other read failure is returned as an error.
func (wf *File) ReadAt(offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	nr, err := wf.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return buf[:nr], fmt.Errorf("walfile: read at %d: %s", offset, err)
	}
	return buf[:nr], nil
}

// AppendPageRecord appends a Page Record for txID/pageID/data. It does not
// fsync; the caller fsyncs once after the whole commit sequence.
func (wf *File) AppendPageRecord(txID, pageID uint32, data []byte) error {
	_, err := wf.f.Write(EncodePageRecord(txID, pageID, data))
	if err != nil {
		return fmt.Errorf("walfile: append page record: %s", err)
	}
	return nil
}

// AppendCommitRecord appends a Commit Record for txID. It does not fsync.
func (wf *File) AppendCommitRecord(txID uint32) error {
	_, err := wf.f.Write(EncodeCommitRecord(txID))
	if err != nil {
		return fmt.Errorf("walfile: append commit record: %s", err)
	}
	return nil
}

// AppendRaw writes b directly to the end of the WAL file without encoding
// it as a record. It exists for tests that simulate a crash leaving a
// partial record on disk; production code never calls it.
func (wf *File) AppendRaw(b []byte) error {
	_, err := wf.f.Write(b)
	if err != nil {
		return fmt.Errorf("walfile: append raw: %s", err)
	}
	return nil
}

// Sync fsyncs the WAL file. A successful return from the commit protocol's
// Sync call implies every byte appended before it is durable.
func (wf *File) Sync() error {
	if err := wf.f.Sync(); err != nil {
		return fmt.Errorf("walfile: sync: %s", err)
	}
	return nil
}

// TruncateToZero discards the entire WAL. Used by recovery once every
// committed page image has been migrated into the page store. The file was
// opened O_APPEND, so the next Write lands at offset 0 with no seek needed.
func (wf *File) TruncateToZero() error {
	if err := wf.f.Truncate(0); err != nil {
		return fmt.Errorf("walfile: truncate: %s", err)
	}
	return nil
}

// TruncatePrefix drops the first n bytes of the WAL, so that bytes [n, end)
// become the new [0, end-n). It rewrites the file via a temp file and
// rename, the way the teacher's WAL rewrites itself wholesale on newWAL,
// because in-place prefix removal has no portable file-system primitive.
func (wf *File) TruncatePrefix(n int64) error {
	size, err := wf.Size()
	if err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	if n >= size {
		return wf.TruncateToZero()
	}

	dir := filepath.Dir(wf.path)
	tmp, err := os.CreateTemp(dir, "walfile-*.tmp")
	if err != nil {
		return fmt.Errorf("walfile: create temp: %s", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := io.Copy(tmp, io.NewSectionReader(wf.f, n, size-n)); err != nil {
		tmp.Close()
		return fmt.Errorf("walfile: copy suffix: %s", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("walfile: sync temp: %s", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("walfile: close temp: %s", err)
	}

	if err := wf.f.Close(); err != nil {
		return fmt.Errorf("walfile: close: %s", err)
	}
	if err := os.Rename(tmpPath, wf.path); err != nil {
		return fmt.Errorf("walfile: rename: %s", err)
	}

	f, err := os.OpenFile(wf.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("walfile: reopen: %s", err)
	}
	wf.f = f
	return nil
}

// Close closes the underlying file.
func (wf *File) Close() error {
	return wf.f.Close()
}
