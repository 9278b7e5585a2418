package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftmike/waldb/waldb"
)

var (
	checkpointCmd = &cobra.Command{
		Use:   "checkpoint",
		Short: "Run a checkpoint, migrating committed pages into the store and shrinking the WAL",
		RunE:  checkpointRun,
	}
)

func init() {
	rootCmd.AddCommand(checkpointCmd)
}

func checkpointRun(cmd *cobra.Command, args []string) error {
	eng, err := waldb.Open(dbPath, waldb.Options{CheckpointEvery: -1})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Checkpoint(); err != nil {
		return err
	}
	fmt.Println("waldb: checkpoint complete")
	return nil
}
