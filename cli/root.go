// Package cli wires tablehealth's analyzer up to a cobra command tree and
// renders its HealthReport for a human or a downstream tool.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tablehealth",
	Short: "Quantitative health reports for Delta Lake and Iceberg tables",
	Long: `tablehealth inspects a table stored in S3 or GCS under the Delta Lake or
Apache Iceberg open table format and reports its health: file and
partition distributions, orphaned data files, metadata and snapshot
growth, and a derived health score with recommendations.

It never modifies the table: no compaction, no snapshot expiry, no
vacuum. Diagnostics only.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteWithLogger runs the root command with logger stashed on its
// context, so subcommands (analyze) can log with request-scoped fields.
func ExecuteWithLogger(logger zerolog.Logger) error {
	ctx := context.WithValue(context.Background(), loggerKey{}, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// loggerKey is the context key ExecuteWithLogger stashes the request logger
// under, so subcommands can pull it back out without a global.
type loggerKey struct{}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
}

func loggerFromCmd(cmd *cobra.Command) zerolog.Logger {
	if l, ok := cmd.Context().Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}
