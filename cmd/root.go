// Package cmd defines the CLI commands for the pagefold executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagefold",
		Short: "Crawl a documentation site and fold it into a few large files",
		Long: `pagefold crawls a site section breadth-first, converts every page to
plain text, markdown, or a rendered PDF, and merges the results into
size-capped output bundles suitable for offline reading or ingestion.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pagefold.yaml)")

	cmd.AddCommand(newCrawlCmd(viper.New()))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pagefold: %v\n", err)
		os.Exit(1)
	}
}
