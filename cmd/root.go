package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bufsearch",
	Short: "Search across open text buffers",
	Long: `bufsearch keeps the text of open buffers in memory and answers plain or
regular expression searches over them, including searches within the results
of an earlier search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}
