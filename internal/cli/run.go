package cli

import (
	"github.com/spf13/cobra"
)

// ExitError carries the process exit code chosen for an outcome:
// 1 generic failure, 2 configuration error, 3 cancelled.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "pipeline failed"
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the extract-transform-load pipeline",
		RunE: func(c *cobra.Command, args []string) error {
			return runPipeline()
		},
	}
}

func NewOLAPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "olap",
		Short: "Rebuild the OLAP star schema from the OLTP database",
		RunE: func(c *cobra.Command, args []string) error {
			return runOLAP()
		},
	}
}

func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run data quality checks against the OLAP database",
		RunE: func(c *cobra.Command, args []string) error {
			return runQualityChecks()
		},
	}
}
