package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the waldb CLI's version string.
const Version = "0.1.0"

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of waldb",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(Version)
			},
		})
}
