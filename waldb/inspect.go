package waldb

import "github.com/leftmike/waldb/walfile"

// RecordInfo describes one WAL record for diagnostic tools. It mirrors
// walfile.Record but omits the page image, which callers such as `waldb
// inspect` have no use for and do not want printed.
type RecordInfo struct {
	Kind     string
	Offset   int64
	TxID     uint32
	PageID   uint32 // valid only when Kind == "page"
	CommitOK bool   // valid only when Kind == "commit"
}

// WALRecords returns every record currently in the WAL, in file order,
// for inspection tools. It does not require a Reader Handle and is not
// subject to any snapshot: it shows the whole file, including any
// uncommitted tail.
func (eng *Engine) WALRecords() ([]RecordInfo, error) {
	size, err := eng.wal.Size()
	if err != nil {
		return nil, newError(IoError, "inspect: size WAL", err)
	}
	buf, err := eng.wal.ReadAt(0, int(size))
	if err != nil {
		return nil, newError(IoError, "inspect: read WAL", err)
	}

	var infos []RecordInfo
	walfile.Scan(buf, 0, PageSize, func(rec walfile.Record) bool {
		info := RecordInfo{Offset: rec.Offset, TxID: rec.TxID}
		if rec.Type == walfile.CommitRecordType {
			info.Kind = "commit"
			info.CommitOK = rec.CommitOK
		} else {
			info.Kind = "page"
			info.PageID = rec.PageID
		}
		infos = append(infos, info)
		return true
	})
	return infos, nil
}
