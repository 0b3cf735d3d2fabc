// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finetl",
		Short: "ETL pipeline for financial filing statements",
		Long: `finetl extracts statement tables from financial filing HTML files,
tidies them into fact records, and loads them into a configured sink
(SQLite OLTP, MongoDB, or SQL Server). Configuration comes from the
environment: SOURCE_URI, SINK_URI, OLAP_URI, ON_ERROR, TIMEOUT_SECONDS,
BATCH_SIZE, LOG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewRunCmd(), NewOLAPCmd(), NewCheckCmd())

	return rootCmd
}
