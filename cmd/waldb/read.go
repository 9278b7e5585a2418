package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leftmike/waldb/waldb"
)

var (
	readCmd = &cobra.Command{
		Use:   "read",
		Short: "Read a single page at a fresh snapshot and print it as hex",
		RunE:  readRun,
	}

	readPageID uint32
	readOut    string
)

func init() {
	fs := readCmd.Flags()
	fs.Uint32Var(&readPageID, "page", 0, "`page_id` to read")
	fs.StringVar(&readOut, "out", "", "`file` to write the raw page bytes to, instead of stdout")

	rootCmd.AddCommand(readCmd)
}

func readRun(cmd *cobra.Command, args []string) error {
	eng, err := waldb.Open(dbPath, waldb.Options{CheckpointEvery: checkpointEvery()})
	if err != nil {
		return err
	}
	defer eng.Close()

	r, err := eng.BeginRead()
	if err != nil {
		return err
	}
	defer eng.EndRead(r)

	data, err := eng.Read(r, readPageID)
	if err != nil {
		return err
	}

	if readOut != "" {
		return os.WriteFile(readOut, data, 0644)
	}
	fmt.Printf("%x\n", data)
	return nil
}
