package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/discovery"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// defaultMinScore is the balance score at or above which a pair is skipped.
const defaultMinScore = 0.7

func newBatchCmd(a *app) *cobra.Command {
	var (
		root        string
		minScore    float64
		dryRun      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch [dir...]",
		Short: "Rebalance every project scoring below --min-score",
		Long: `Rebalances the given project directories, or every project found under
--root when none are given. Pairs already at or above --min-score are
skipped and count as success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minScore < 0 || minScore > 1 {
				return fmt.Errorf("--min-score must be between 0 and 1, got %v", minScore)
			}

			dirs, err := batchDirs(a, root, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}

			res := a.engine(nil).Batch(dirs, minScore, balance.BatchOptions{
				DryRun:      dryRun,
				Concurrency: concurrency,
			})
			for _, o := range res.Outcomes {
				a.record(history.ParamsForOutcome(o, dryRun))
			}

			fmt.Fprint(out, balance.FormatBatch(res, dryRun))
			if res.Failed > 0 {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "directory to search when no dirs are given")
	cmd.Flags().Float64Var(&minScore, "min-score", defaultMinScore, "skip pairs scoring at or above this")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "plan every pair without changing files")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 1, "pairs processed at once")
	return cmd
}

func batchDirs(a *app, root string, args []string) ([]string, error) {
	if len(args) > 0 {
		dirs := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}
			dirs = append(dirs, abs)
		}
		return dirs, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return discovery.FindPairs(abs, a.cfg.Files)
}
