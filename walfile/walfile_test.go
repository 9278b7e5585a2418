package walfile_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/leftmike/waldb/pagestore"
	"github.com/leftmike/waldb/walfile"
)

func page(b byte) []byte {
	return bytes.Repeat([]byte{b}, pagestore.Size)
}

func openWAL(t *testing.T) *walfile.File {
	t.Helper()
	wf, err := walfile.Open(filepath.Join(t.TempDir(), "test-wal"))
	if err != nil {
		t.Fatal(err)
	}
	return wf
}

func TestAppendAndScanPageThenCommit(t *testing.T) {
	wf := openWAL(t)
	defer wf.Close()

	if err := wf.AppendPageRecord(1, 7, page(0x41)); err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendCommitRecord(1); err != nil {
		t.Fatal(err)
	}

	size, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}
	wantSize := int64(walfile.PageRecordLen(pagestore.Size) + walfile.CommitRecordLen)
	if size != wantSize {
		t.Fatalf("Size() = %d, want %d", size, wantSize)
	}

	buf, err := wf.ReadAt(0, int(size))
	if err != nil {
		t.Fatal(err)
	}

	var records []walfile.Record
	cleanEnd, truncated := walfile.Scan(buf, 0, pagestore.Size, func(r walfile.Record) bool {
		records = append(records, r)
		return true
	})
	if truncated {
		t.Errorf("Scan: unexpectedly truncated")
	}
	if cleanEnd != size {
		t.Errorf("Scan: cleanEnd = %d, want %d", cleanEnd, size)
	}
	if len(records) != 2 {
		t.Fatalf("Scan: got %d records, want 2", len(records))
	}
	if records[0].Type != walfile.PageRecordType || records[0].PageID != 7 {
		t.Errorf("records[0] = %v, want page record for page 7", records[0])
	}
	if records[1].Type != walfile.CommitRecordType || !records[1].CommitOK {
		t.Errorf("records[1] = %v, want a valid commit record", records[1])
	}
}

func TestScanStopsAtMalformedTrailingBytes(t *testing.T) {
	wf := openWAL(t)
	defer wf.Close()

	if err := wf.AppendCommitRecord(3); err != nil {
		t.Fatal(err)
	}
	size, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-page-record: a type tag followed by a truncated
	// body, as spec.md §4.2/§4.7 requires recovery to tolerate.
	partial := walfile.EncodePageRecord(4, 1, page(0x42))[:20]
	if err := wf.AppendRaw(partial); err != nil {
		t.Fatal(err)
	}

	total := size + int64(len(partial))
	buf, err := wf.ReadAt(0, int(total))
	if err != nil {
		t.Fatal(err)
	}

	var records []walfile.Record
	cleanEnd, truncated := walfile.Scan(buf, 0, pagestore.Size, func(r walfile.Record) bool {
		records = append(records, r)
		return true
	})
	if !truncated {
		t.Errorf("Scan: expected truncated=true for a partial trailing record")
	}
	if cleanEnd != size {
		t.Errorf("Scan: cleanEnd = %d, want %d (end of the well-formed commit record)",
			cleanEnd, size)
	}
	if len(records) != 1 {
		t.Fatalf("Scan: got %d records, want 1", len(records))
	}
}

func TestTruncatePrefixRebasesRemainingBytes(t *testing.T) {
	wf := openWAL(t)
	defer wf.Close()

	if err := wf.AppendPageRecord(1, 0, page(0x41)); err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendCommitRecord(1); err != nil {
		t.Fatal(err)
	}
	prefixLen, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendPageRecord(2, 1, page(0x42)); err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendCommitRecord(2); err != nil {
		t.Fatal(err)
	}
	totalBefore, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}

	if err := wf.TruncatePrefix(prefixLen); err != nil {
		t.Fatal(err)
	}

	size, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}
	if want := totalBefore - prefixLen; size != want {
		t.Fatalf("Size() after TruncatePrefix = %d, want %d", size, want)
	}

	buf, err := wf.ReadAt(0, int(size))
	if err != nil {
		t.Fatal(err)
	}
	var records []walfile.Record
	walfile.Scan(buf, 0, pagestore.Size, func(r walfile.Record) bool {
		records = append(records, r)
		return true
	})
	if len(records) != 2 || records[0].TxID != 2 {
		t.Fatalf("records after TruncatePrefix = %v, want tx 2's page+commit at offset 0",
			records)
	}
}

func TestAppendAfterTruncatePrefixFollowsRetainedSuffix(t *testing.T) {
	wf := openWAL(t)
	defer wf.Close()

	if err := wf.AppendPageRecord(1, 0, page(0x41)); err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendCommitRecord(1); err != nil {
		t.Fatal(err)
	}
	prefixLen, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendPageRecord(2, 1, page(0x42)); err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendCommitRecord(2); err != nil {
		t.Fatal(err)
	}

	if err := wf.TruncatePrefix(prefixLen); err != nil {
		t.Fatal(err)
	}

	// A commit landing after the reopen that TruncatePrefix performs must
	// append after tx 2's retained records, not overwrite them at offset 0.
	if err := wf.AppendPageRecord(3, 2, page(0x43)); err != nil {
		t.Fatal(err)
	}
	if err := wf.AppendCommitRecord(3); err != nil {
		t.Fatal(err)
	}

	size, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}
	buf, err := wf.ReadAt(0, int(size))
	if err != nil {
		t.Fatal(err)
	}

	var records []walfile.Record
	_, truncated := walfile.Scan(buf, 0, pagestore.Size, func(r walfile.Record) bool {
		records = append(records, r)
		return true
	})
	if truncated {
		t.Errorf("Scan: unexpectedly truncated")
	}
	if len(records) != 4 {
		t.Fatalf("records after append post-TruncatePrefix = %v, want 4 (tx 2's and tx 3's "+
			"page+commit records, in that order)", records)
	}
	if records[0].TxID != 2 || records[1].TxID != 2 {
		t.Errorf("records[0:2] = %v, want tx 2's retained records first", records[:2])
	}
	if records[2].TxID != 3 || records[3].TxID != 3 {
		t.Errorf("records[2:4] = %v, want tx 3's freshly appended records last", records[2:])
	}
}

func TestTruncatePrefixOfEverythingEmptiesTheLog(t *testing.T) {
	wf := openWAL(t)
	defer wf.Close()

	if err := wf.AppendCommitRecord(1); err != nil {
		t.Fatal(err)
	}
	size, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}

	if err := wf.TruncatePrefix(size); err != nil {
		t.Fatal(err)
	}
	after, err := wf.Size()
	if err != nil {
		t.Fatal(err)
	}
	if after != 0 {
		t.Errorf("Size() after draining the whole log = %d, want 0", after)
	}
}
