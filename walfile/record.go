package walfile

import (
	"encoding/binary"
	"fmt"
)

// Record type tags, occupying the first 4 bytes of every record.
const (
	PageRecordType   uint32 = 1
	CommitRecordType uint32 = 2
)

// CommitMagic is the fixed magic value stamped into every Commit Record.
const CommitMagic uint32 = 0xC0DECAFE

// PageRecordLen is the on-disk size of a Page Record for the given page
// size: 4-byte type, 4-byte tx_id, 4-byte page_id, then the page image.
func PageRecordLen(pageSize int) int {
	return 12 + pageSize
}

// CommitRecordLen is the fixed on-disk size of a Commit Record.
const CommitRecordLen = 12

// EncodePageRecord serializes a Page Record: type=1, tx_id, page_id, data.
// data must be exactly pageSize bytes.
func EncodePageRecord(txID, pageID uint32, data []byte) []byte {
	buf := make([]byte, 12+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], PageRecordType)
	binary.LittleEndian.PutUint32(buf[4:8], txID)
	binary.LittleEndian.PutUint32(buf[8:12], pageID)
	copy(buf[12:], data)
	return buf
}

// EncodeCommitRecord serializes a Commit Record: type=2, tx_id, magic.
func EncodeCommitRecord(txID uint32) []byte {
	buf := make([]byte, CommitRecordLen)
	binary.LittleEndian.PutUint32(buf[0:4], CommitRecordType)
	binary.LittleEndian.PutUint32(buf[4:8], txID)
	binary.LittleEndian.PutUint32(buf[8:12], CommitMagic)
	return buf
}

// PeekType reads the 4-byte type tag at the start of buf without consuming
// any other field.
func PeekType(buf []byte) (uint32, bool) {
	if len(buf) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[0:4]), true
}

// DecodePageRecord parses a Page Record of exactly PageRecordLen(pageSize)
// bytes. Callers must have already checked the type tag.
func DecodePageRecord(buf []byte, pageSize int) (txID, pageID uint32, data []byte, err error) {
	want := PageRecordLen(pageSize)
	if len(buf) < want {
		return 0, 0, nil, fmt.Errorf("walfile: short page record: have %d, want %d",
			len(buf), want)
	}
	txID = binary.LittleEndian.Uint32(buf[4:8])
	pageID = binary.LittleEndian.Uint32(buf[8:12])
	data = buf[12:want]
	return txID, pageID, data, nil
}

// DecodeCommitRecord parses a Commit Record of exactly CommitRecordLen
// bytes, validating the magic. Callers must have already checked the type
// tag.
func DecodeCommitRecord(buf []byte) (txID uint32, ok bool, err error) {
	if len(buf) < CommitRecordLen {
		return 0, false, fmt.Errorf("walfile: short commit record: have %d, want %d",
			len(buf), CommitRecordLen)
	}
	txID = binary.LittleEndian.Uint32(buf[4:8])
	magic := binary.LittleEndian.Uint32(buf[8:12])
	return txID, magic == CommitMagic, nil
}
