package waldb

// writeBuffer is the per-writer staging area described by spec.md §4.4: a
// page_id -> bytes mapping that collapses repeated writes to the same page
// and replays drained entries in original insertion order.
type writeBuffer struct {
	order []uint32
	pages map[uint32][]byte
}

func newWriteBuffer() *writeBuffer {
	return &writeBuffer{pages: make(map[uint32][]byte)}
}

// stage copies data into the buffer under pageID. A second stage for the
// same pageID overwrites the first but keeps its original position in
// insertion order, matching "last write wins within the transaction"
// without disturbing drain ordering for distinct pages.
func (wb *writeBuffer) stage(pageID uint32, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)

	if _, ok := wb.pages[pageID]; !ok {
		wb.order = append(wb.order, pageID)
	}
	wb.pages[pageID] = buf
}

// drain returns the buffered pages in insertion order and empties the
// buffer. It is called exactly once, by commit.
func (wb *writeBuffer) drain() []stagedPage {
	out := make([]stagedPage, 0, len(wb.order))
	for _, pageID := range wb.order {
		out = append(out, stagedPage{PageID: pageID, Data: wb.pages[pageID]})
	}
	wb.order = nil
	wb.pages = make(map[uint32][]byte)
	return out
}

func (wb *writeBuffer) len() int {
	return len(wb.order)
}

type stagedPage struct {
	PageID uint32
	Data   []byte
}
