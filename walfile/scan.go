package walfile

import "fmt"

// Record is one decoded WAL record together with the byte range it
// occupied, as produced by Scan.
type Record struct {
	Type   uint32
	Offset int64 // start of the record
	End    int64 // offset immediately after the record

	TxID uint32

	// Page Record fields.
	PageID uint32
	Data   []byte

	// Commit Record fields.
	CommitOK bool // magic matched
}

// Scan walks the records in buf in forward order, invoking fn for each
// well-formed record; reported offsets are relative to base. It stops early
// if fn returns false, or when it reaches the end of buf having parsed every
// record cleanly.
//
// If it encounters bytes that do not form a complete, well-typed record
// before the end of buf, it stops there and returns the offset at which the
// clean prefix ends along with truncated=true. That is not an error: per
// spec.md §4.2/§4.7, a malformed or partial trailing record is end-of-log,
// not a fault, and its bytes are part of the discarded suffix.
func Scan(buf []byte, base int64, pageSize int, fn func(Record) bool) (cleanEnd int64,
	truncated bool) {

	pos := 0
	for pos < len(buf) {
		typ, ok := PeekType(buf[pos:])
		if !ok {
			return base + int64(pos), true
		}

		switch typ {
		case PageRecordType:
			want := PageRecordLen(pageSize)
			if pos+want > len(buf) {
				return base + int64(pos), true
			}
			txID, pageID, data, err := DecodePageRecord(buf[pos:pos+want], pageSize)
			if err != nil {
				return base + int64(pos), true
			}
			rec := Record{
				Type:   typ,
				Offset: base + int64(pos),
				End:    base + int64(pos+want),
				TxID:   txID,
				PageID: pageID,
				Data:   data,
			}
			if !fn(rec) {
				return rec.End, false
			}
			pos += want

		case CommitRecordType:
			if pos+CommitRecordLen > len(buf) {
				return base + int64(pos), true
			}
			txID, ok, err := DecodeCommitRecord(buf[pos : pos+CommitRecordLen])
			if err != nil {
				return base + int64(pos), true
			}
			rec := Record{
				Type:     typ,
				Offset:   base + int64(pos),
				End:      base + int64(pos+CommitRecordLen),
				TxID:     txID,
				CommitOK: ok,
			}
			if !fn(rec) {
				return rec.End, false
			}
			pos += CommitRecordLen

		default:
			// Neither a Page Record nor a Commit Record: a corrupt record
			// type, per spec.md §7 (Corruption), treated as end-of-log.
			return base + int64(pos), true
		}
	}

	return base + int64(pos), false
}

// String is used by tests and log messages to describe a record compactly
// without dumping a 4096-byte page image.
func (r Record) String() string {
	if r.Type == CommitRecordType {
		return fmt.Sprintf("commit(tx=%d ok=%v)@%d", r.TxID, r.CommitOK, r.Offset)
	}
	return fmt.Sprintf("page(tx=%d page=%d)@%d", r.TxID, r.PageID, r.Offset)
}
