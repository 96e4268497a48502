package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version. Typically
// called by the main package with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the acsdash CLI under ctx and returns an error if any command
// fails. Cancelling ctx aborts in-flight requests.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose bool
		cfgPath string
	)

	root := &cobra.Command{
		Use:          "acsdash",
		Short:        "acsdash pulls American Community Survey data for Pierce County",
		Long:         `acsdash is a dashboard for ACS 5-year estimates in Pierce County, Washington: pull social and economic indicators at county, tract, or ZCTA level, break them down by age, sex, or race, and export the results as CSV or reproduction code.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("acsdash %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/acsdash/config.toml)")

	root.AddCommand(newPullCmd(&cfgPath))
	root.AddCommand(newIndicatorsCmd())
	root.AddCommand(newVarsCmd(&cfgPath))
	root.AddCommand(newSnippetCmd(&cfgPath))
	root.AddCommand(newCacheCmd(&cfgPath))
	root.AddCommand(newHistoryCmd(&cfgPath))
	root.AddCommand(newTUICmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))

	return root.ExecuteContext(ctx)
}
