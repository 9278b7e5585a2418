package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leftmike/waldb/waldb"
)

var (
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Commit a number of single-page writes and report throughput",
		RunE:  benchRun,
	}

	benchCommits int
	benchPages   int
)

func init() {
	fs := benchCmd.Flags()
	fs.IntVar(&benchCommits, "commits", 1000, "number of commits to run")
	fs.IntVar(&benchPages, "pages", 1, "pages staged per commit")

	rootCmd.AddCommand(benchCmd)
}

func benchRun(cmd *cobra.Command, args []string) error {
	eng, err := waldb.Open(dbPath, waldb.Options{CheckpointEvery: checkpointEvery()})
	if err != nil {
		return err
	}
	defer eng.Close()

	data := make([]byte, waldb.PageSize)
	start := time.Now()

	for i := 0; i < benchCommits; i++ {
		w, err := eng.BeginWrite()
		if err != nil {
			return err
		}
		for p := 0; p < benchPages; p++ {
			pageID := uint32((i*benchPages + p) % 1024)
			if err := eng.StageWrite(w, pageID, data); err != nil {
				eng.Abort(w)
				return err
			}
		}
		if err := eng.Commit(w); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("waldb: %d commits (%d pages each) in %s, %.0f commits/sec\n",
		benchCommits, benchPages, elapsed, float64(benchCommits)/elapsed.Seconds())
	return nil
}
