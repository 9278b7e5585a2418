package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/leftmike/waldb/waldb"
)

const waldbHistory = ".waldb_history"

var (
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Run an interactive console against the store",
		RunE:  replRun,
	}
)

func init() {
	rootCmd.AddCommand(replCmd)
}

// replState holds the engine plus whatever reader or writer the console
// has open, since commands like "begin-write"/"stage"/"commit" span
// multiple console lines.
type replState struct {
	eng *waldb.Engine
	w   *waldb.Writer
	r   *waldb.Reader
}

func replRun(cmd *cobra.Command, args []string) error {
	eng, err := waldb.Open(dbPath, waldb.Options{CheckpointEvery: checkpointEvery()})
	if err != nil {
		return err
	}
	defer eng.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(waldbHistory); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	st := &replState{eng: eng}
	for {
		s, err := line.Prompt("waldb> ")
		if err != nil {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		line.AppendHistory(s)

		if s == "quit" || s == "exit" {
			break
		}
		if err := st.dispatch(s); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if f, err := os.Create(waldbHistory); err != nil {
		fmt.Fprintf(os.Stderr, "waldb: error writing history file, %s: %s\n", waldbHistory, err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}

	return nil
}

func (st *replState) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "begin-write":
		if st.w != nil {
			return fmt.Errorf("a writer is already open")
		}
		w, err := st.eng.BeginWrite()
		if err != nil {
			return err
		}
		st.w = w
		fmt.Println("writer started")

	case "stage":
		if st.w == nil {
			return fmt.Errorf("no writer open; run begin-write first")
		}
		if len(rest) != 2 {
			return fmt.Errorf("usage: stage <page_id> <hex_byte>")
		}
		pageID, err := parsePageID(rest[0])
		if err != nil {
			return err
		}
		var b byte
		if _, err := fmt.Sscanf(rest[1], "%02x", &b); err != nil {
			return fmt.Errorf("bad hex byte %q: %s", rest[1], err)
		}
		data := make([]byte, waldb.PageSize)
		for i := range data {
			data[i] = b
		}
		if err := st.eng.StageWrite(st.w, pageID, data); err != nil {
			return err
		}
		fmt.Printf("staged page %d\n", pageID)

	case "commit":
		if st.w == nil {
			return fmt.Errorf("no writer open")
		}
		err := st.eng.Commit(st.w)
		st.w = nil
		if err != nil {
			return err
		}
		fmt.Println("committed")

	case "abort":
		if st.w == nil {
			return fmt.Errorf("no writer open")
		}
		st.eng.Abort(st.w)
		st.w = nil
		fmt.Println("aborted")

	case "begin-read":
		if st.r != nil {
			return fmt.Errorf("a reader is already open; end-read first")
		}
		r, err := st.eng.BeginRead()
		if err != nil {
			return err
		}
		st.r = r
		fmt.Println("reader started")

	case "read":
		if st.r == nil {
			return fmt.Errorf("no reader open; run begin-read first")
		}
		if len(rest) != 1 {
			return fmt.Errorf("usage: read <page_id>")
		}
		pageID, err := parsePageID(rest[0])
		if err != nil {
			return err
		}
		data, err := st.eng.Read(st.r, pageID)
		if err != nil {
			return err
		}
		fmt.Printf("%x\n", data)

	case "end-read":
		if st.r == nil {
			return fmt.Errorf("no reader open")
		}
		st.eng.EndRead(st.r)
		st.r = nil
		fmt.Println("reader ended")

	case "checkpoint":
		if err := st.eng.Checkpoint(); err != nil {
			return err
		}
		fmt.Println("checkpoint complete")

	default:
		return fmt.Errorf("unknown command %q; try begin-write, stage, commit, abort, "+
			"begin-read, read, end-read, checkpoint, quit", cmd)
	}
	return nil
}

func parsePageID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad page_id %q: %s", s, err)
	}
	return uint32(n), nil
}
