// compintel runs the competitor news intelligence pipeline.
//
// Usage:
//
//	compintel serve
//	compintel run [--competitor=Samsung ...] [--format=json|text]
//	compintel submit --url=http://localhost:9080 [--wait]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "compintel",
	Short: "Competitor news intelligence pipeline",
	Long: "compintel retrieves competitor news, classifies and scores events,\n" +
		"and recommends actions. Configuration comes from COMPINTEL_ env vars\n" +
		"and an optional YAML file named by COMPINTEL_CONFIG.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
