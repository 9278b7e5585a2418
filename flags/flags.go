// Package flags holds named, config-file-settable integer policy knobs
// that are not correctness requirements — currently just checkpoint
// cadence, per spec.md §4.8 ("the exact cadence is a policy knob, not a
// correctness requirement").
package flags

import "strings"

type Flag int

const (
	CheckpointEvery Flag = iota
)

type flagDefault struct {
	flag Flag
	def  int
}

var defaultFlags = map[string]flagDefault{
	"checkpoint_every": {CheckpointEvery, 10},
}

// LookupFlag resolves a config variable name, case-insensitively, to a
// Flag, for use by a config file loader that does not know the set of
// flags in advance.
func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

// ListFlags calls fn once per known flag, in no particular order.
func ListFlags(fn func(nam string, f Flag)) {
	for nam, fd := range defaultFlags {
		fn(nam, fd.flag)
	}
}

// Flags is a dense array of current flag values, indexed by Flag.
type Flags []int

func (flgs Flags) GetFlag(f Flag) int {
	return flgs[f]
}

// Default returns a Flags populated with every flag's default value.
func Default() Flags {
	flgs := make([]int, len(defaultFlags))
	for _, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
	}
	return flgs
}
