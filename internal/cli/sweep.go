package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetsql/internal/sweeper"
)

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired datasets once and report what happened",
		Long: "Sweep scans the data directory a single time and deletes dataset files\n" +
			"older than the retention window, except those of reserved datasets.\n" +
			"Files that do not belong to a dataset are left alone.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The store creates the data directory when it is missing.
			if _, err := a.openStore(); err != nil {
				return err
			}

			report := sweeper.New(sweeper.ConfigFrom(a.cfg), a.logger).SweepOnce()
			if report.Err != nil {
				return sysErr("sweep: %v", report.Err)
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, deleted %d, retained %d, failed %d\n",
				report.Scanned, report.Deleted, report.Retained, report.Failed)
			for _, name := range report.DeletedFiles {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
			}
			return nil
		},
	}
}
