package waldb_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/leftmike/waldb/waldb"
	"github.com/leftmike/waldb/testutil"
)

func page(b byte) []byte {
	return bytes.Repeat([]byte{b}, waldb.PageSize)
}

func openEngine(t *testing.T) *waldb.Engine {
	t.Helper()
	eng, err := waldb.Open(filepath.Join(t.TempDir(), "test.db"), waldb.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func mustCommit(t *testing.T, eng *waldb.Engine, pages map[uint32][]byte) {
	t.Helper()
	w, err := eng.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	for pageID, data := range pages {
		if err := eng.StageWrite(w, pageID, data); err != nil {
			t.Fatal(err)
		}
	}
	if err := eng.Commit(w); err != nil {
		t.Fatal(err)
	}
}

// scenario 1: simple write-read cycle.
func TestSimpleWriteReadCycle(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	mustCommit(t, eng, map[uint32][]byte{0: page(0x41)})

	r, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r)

	got, err := eng.Read(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, page(0x41)) {
		t.Errorf("Read(0) mismatch:\n%s", testutil.PageDiff(got, page(0x41)))
	}
}

// scenario 2: snapshot isolation.
func TestSnapshotIsolation(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	mustCommit(t, eng, map[uint32][]byte{0: page(0x41)})

	r1, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r1)

	mustCommit(t, eng, map[uint32][]byte{0: page(0x42)})

	got1, err := eng.Read(r1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got1, page(0x41)) {
		t.Errorf("r1.Read(0) after W2's commit = %x..., want 0x41 (pre-existing snapshot)",
			got1[:4])
	}

	r2, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r2)

	got2, err := eng.Read(r2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got2, page(0x42)) {
		t.Errorf("r2.Read(0) = %x..., want 0x42 (fresh snapshot)", got2[:4])
	}
}

// scenario 4: checkpoint then read.
func TestCheckpointThenRead(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	mustCommit(t, eng, map[uint32][]byte{0: page(0x41)})

	if err := eng.Checkpoint(); err != nil {
		t.Fatal(err)
	}

	r, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r)

	got, err := eng.Read(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, page(0x41)) {
		t.Errorf("Read(0) after checkpoint = %x..., want 0x41", got[:4])
	}
}

// scenario 5: delayed reclamation.
func TestDelayedReclamation(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	r1, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}

	mustCommit(t, eng, map[uint32][]byte{0: page(0x58)})

	if err := eng.Checkpoint(); err != nil {
		t.Fatal(err)
	}

	got, err := eng.Read(r1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, make([]byte, waldb.PageSize)) {
		t.Errorf("r1.Read(0) = %x..., want zero-filled (r1 predates the commit)", got[:4])
	}

	eng.EndRead(r1)
	if err := eng.Checkpoint(); err != nil {
		t.Fatal(err)
	}
}

// scenario 6: intra-transaction overwrite, and property P5.
func TestIntraTransactionOverwrite(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	w, err := eng.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.StageWrite(w, 5, page(0x41)); err != nil {
		t.Fatal(err)
	}
	if err := eng.StageWrite(w, 5, page(0x42)); err != nil {
		t.Fatal(err)
	}
	if err := eng.Commit(w); err != nil {
		t.Fatal(err)
	}

	r, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r)

	got, err := eng.Read(r, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, page(0x42)) {
		t.Errorf("Read(5) = %x..., want 0x42 (second stage_write wins)", got[:4])
	}
}

func TestReadUnwrittenPageIsZeroFilled(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	r, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r)

	got, err := eng.Read(r, 99)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, make([]byte, waldb.PageSize)) {
		t.Errorf("Read(99) on a never-written page = %x..., want zero-filled", got[:4])
	}
}

func TestStageWriteBadPageSize(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	w, err := eng.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	err = eng.StageWrite(w, 0, []byte{1, 2, 3})
	if err == nil {
		t.Fatal("StageWrite with a short page: got nil error")
	}
	werr, ok := err.(*waldb.Error)
	if !ok || werr.Kind != waldb.BadPageSize {
		t.Errorf("StageWrite with a short page: err = %v, want Kind=BadPageSize", err)
	}
}

func TestBeginWriteFailsWhileWriterActive(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	w, err := eng.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.BeginWrite()
	werr, ok := err.(*waldb.Error)
	if !ok || werr.Kind != waldb.WriterBusy {
		t.Errorf("second BeginWrite: err = %v, want Kind=WriterBusy", err)
	}

	if err := eng.Commit(w); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.BeginWrite(); err != nil {
		t.Errorf("BeginWrite after Commit released the slot: %v", err)
	}
}

func TestAbortDiscardsStagedPages(t *testing.T) {
	eng := openEngine(t)
	defer eng.Close()

	w, err := eng.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.StageWrite(w, 3, page(0x99)); err != nil {
		t.Fatal(err)
	}
	eng.Abort(w)

	r, err := eng.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng.EndRead(r)

	got, err := eng.Read(r, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, make([]byte, waldb.PageSize)) {
		t.Errorf("Read(3) after Abort = %x..., want zero-filled", got[:4])
	}
	if _, err := eng.BeginWrite(); err != nil {
		t.Errorf("BeginWrite after Abort released the slot: %v", err)
	}
}

func TestReopenPreservesCommittedState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	eng, err := waldb.Open(path, waldb.Options{})
	if err != nil {
		t.Fatal(err)
	}
	mustCommit(t, eng, map[uint32][]byte{0: page(0x7a)})
	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}

	eng2, err := waldb.Open(path, waldb.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer eng2.Close()

	r, err := eng2.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer eng2.EndRead(r)

	got, err := eng2.Read(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, page(0x7a)) {
		t.Errorf("Read(0) after reopen = %x..., want 0x7a", got[:4])
	}
}
