package testutil

import (
	"fmt"
	"strings"

	"github.com/andreyvit/diff"
)

// PageDiff renders a line-oriented diff between two page images, for use in
// test failure messages where printing two 4096-byte hex blobs side by side
// would be useless. Each page is rendered 16 bytes per line so the diff
// output points at the differing offset ranges directly.
func PageDiff(got, want []byte) string {
	return diff.LineDiff(hexLines(want), hexLines(got))
}

func hexLines(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&b, "%08x  %x\n", off, data[off:end])
	}
	return b.String()
}
