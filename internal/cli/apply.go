package cli

import (
	"github.com/spf13/cobra"

	"github.com/HendryAvila/pairdoc/internal/history"
)

func newApplyCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply [dir]",
		Short: "Move misplaced content between the two documents",
		Long: `Moves every flagged item to its optimal document. Both documents are
backed up (<name>.backup.YYYYMMDD_HHMMSS) before anything is written and a
change_log entry is appended to the structured store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			an, r := a.engine(out).Rebalance(dir, dryRun)
			a.record(history.ParamsFor(history.KindApply, dir, an, r))

			// The executor has already printed the plan or the outcome.
			if !r.Success {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the plan without changing files")
	return cmd
}
