package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragcheck",
		Short: "Exercise the notebook document service upload flow",
		Long: `ragcheck runs the upload-and-verification workflow against a
notebook document service: authenticate, probe the document listing,
submit a document, and verify it was registered. Each stage is reported
separately so failures point at the exact step that broke.

It can also serve a local emulation of the document service for
development and end-to-end testing.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ragcheck %s (%s, %s)\n", version, commit, buildDate)
		},
	})

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
