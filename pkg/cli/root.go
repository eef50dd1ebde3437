// Package cli implements the hooksink command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hooksink",
	Short: "hooksink is a configurable HTTP endpoint simulator",
	Long: `hooksink accepts HTTP requests, matches them against declaratively
configured rules, returns templated JSON responses, and runs delayed
webhook sequences against your services afterwards.

Endpoints are defined in a YAML or JSON file; see 'hooksink init' for
a starter configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true, // errors are handled in Execute()
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
