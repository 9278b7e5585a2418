package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leftmike/waldb/waldb"
)

var (
	writeCmd = &cobra.Command{
		Use:   "write",
		Short: "Stage and commit a single page write",
		RunE:  writeRun,
	}

	writePageID uint32
	writeFile   string
	writeFill   string
)

func init() {
	fs := writeCmd.Flags()
	fs.Uint32Var(&writePageID, "page", 0, "`page_id` to write")
	fs.StringVar(&writeFile, "file", "", "`file` whose contents become the page image "+
		"(a shorter file is zero-padded; bytes past the page size are ignored)")
	fs.StringVar(&writeFill, "fill", "", "fill the page with a single repeated hex `byte`, "+
		"e.g. 41; ignored if --file is set")

	rootCmd.AddCommand(writeCmd)
}

func writeRun(cmd *cobra.Command, args []string) error {
	eng, err := waldb.Open(dbPath, waldb.Options{CheckpointEvery: checkpointEvery()})
	if err != nil {
		return err
	}
	defer eng.Close()

	data, err := pageImage()
	if err != nil {
		return err
	}

	w, err := eng.BeginWrite()
	if err != nil {
		return err
	}
	if err := eng.StageWrite(w, writePageID, data); err != nil {
		eng.Abort(w)
		return err
	}
	if err := eng.Commit(w); err != nil {
		return err
	}

	fmt.Printf("waldb: committed page %d\n", writePageID)
	return nil
}

func pageImage() ([]byte, error) {
	data := make([]byte, waldb.PageSize)

	if writeFile != "" {
		f, err := os.Open(writeFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if _, err := io.ReadFull(f, data); err != nil && err != io.ErrUnexpectedEOF &&
			err != io.EOF {
			return nil, err
		}
		return data, nil
	}

	if writeFill != "" {
		var b byte
		if _, err := fmt.Sscanf(writeFill, "%02x", &b); err != nil {
			return nil, fmt.Errorf("waldb: bad --fill value %q: %s", writeFill, err)
		}
		for i := range data {
			data[i] = b
		}
	}

	return data, nil
}
