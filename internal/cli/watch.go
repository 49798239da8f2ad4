package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-analyze whenever either document changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			engine := a.engine(nil)

			report := func(an *balance.Analysis) {
				fmt.Fprintf(out, "%s %s\n", time.Now().Format("15:04:05"), an)
			}

			w, err := watch.New(dir, a.cfg.Files, engine, report,
				watch.WithDebounce(debounce),
				watch.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			defer w.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return err
			}

			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", dir)
			report(engine.Analyze(dir))

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-analyzing")
	return cmd
}
