package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/leftmike/waldb/waldb"
)

var (
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "List every record currently in the WAL",
		RunE:  inspectRun,
	}
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectRun(cmd *cobra.Command, args []string) error {
	eng, err := waldb.Open(dbPath, waldb.Options{CheckpointEvery: -1})
	if err != nil {
		return err
	}
	defer eng.Close()

	recs, err := eng.WALRecords()
	if err != nil {
		return err
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"offset", "kind", "tx_id", "page_id", "commit_ok"})

	for _, r := range recs {
		row := []string{
			strconv.FormatInt(r.Offset, 10),
			r.Kind,
			strconv.FormatUint(uint64(r.TxID), 10),
			"",
			"",
		}
		if r.Kind == "page" {
			row[3] = strconv.FormatUint(uint64(r.PageID), 10)
		} else {
			row[4] = strconv.FormatBool(r.CommitOK)
		}
		tw.Append(row)
	}
	tw.Render()

	fmt.Printf("%d records\n", len(recs))
	return nil
}
