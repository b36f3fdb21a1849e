package main

import (
	"fmt"

	"github.com/aretw0/tally"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tally",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tally version %s\n", tally.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
