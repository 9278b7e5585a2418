package flags_test

import (
	"testing"

	"github.com/leftmike/waldb/flags"
)

func TestDefault(t *testing.T) {
	flgs := flags.Default()
	if got := flgs.GetFlag(flags.CheckpointEvery); got != 10 {
		t.Errorf("GetFlag(CheckpointEvery) = %d, want 10", got)
	}
}

func TestLookupFlag(t *testing.T) {
	f, ok := flags.LookupFlag("Checkpoint_Every")
	if !ok || f != flags.CheckpointEvery {
		t.Errorf("LookupFlag(\"Checkpoint_Every\") = (%v, %v), want (CheckpointEvery, true)", f, ok)
	}

	if _, ok := flags.LookupFlag("nonexistent"); ok {
		t.Errorf("LookupFlag(\"nonexistent\") = ok, want not found")
	}
}
