// Package main is the entry point for the htmlmd command line converter.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "htmlmd",
	Short: "Convert HTML documents to Markdown",
	Long: `htmlmd converts HTML documents to Markdown. Each output file is named
after the document's <title>, falling back to the input file name.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
