// Package cli implements the pairdoc command line.
//
// Every command loads configuration the same way (TOML file plus
// environment overrides), logs through the slog fanout on stderr, and keeps
// stdout for results so output can be piped.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/history"
	"github.com/HendryAvila/pairdoc/internal/logging"
)

// errFailed signals a non-zero exit after the command has already printed
// its own report.
var errFailed = errors.New("rebalance failed")

// app holds state shared by all subcommands for one invocation.
type app struct {
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *slog.Logger

	hs       *history.Store
	hsOpened bool
	closers  []func() error
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "pairdoc",
		Short: "Keep a project's structured store and narrative document balanced",
		Long: `pairdoc classifies every item of a project's two context documents
(context.json and CONTEXT.md), reports a balance score between 0 and 1,
and moves misplaced items to the document that suits them.

Applied runs back up both documents first and append a change_log entry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.pairdoc/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newAnalyzeCmd(a),
		newApplyCmd(a),
		newBatchCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root, a
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	logger, closeLog := logging.Setup(cfg.Log)
	a.logger = logger
	a.closers = append(a.closers, closeLog)
	return nil
}

// engine builds an engine whose plan output goes to out.
func (a *app) engine(out io.Writer) *balance.Engine {
	return balance.NewEngine(a.cfg, a.logger, out)
}

// history opens the run store on first use. It returns nil when history is
// disabled or unavailable.
func (a *app) history() *history.Store {
	if a.hsOpened {
		return a.hs
	}
	a.hsOpened = true
	if !a.cfg.History.Enabled {
		return nil
	}
	hs, err := history.New(history.Config{DataDir: a.cfg.History.DataDir})
	if err != nil {
		a.logger.Warn("run history disabled", "error", err)
		return nil
	}
	a.hs = hs
	a.closers = append(a.closers, hs.Close)
	return hs
}

// record stores a run; failures are logged only.
func (a *app) record(p history.RunParams) {
	hs := a.history()
	if hs == nil {
		return
	}
	if _, err := hs.Record(p); err != nil {
		a.logger.Warn("recording run failed", "dir", p.ProjectDir, "error", err)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("cleanup", "error", err)
		}
	}
	a.closers = nil
}

// projectDir resolves the optional [dir] operand.
func projectDir(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return os.Getwd()
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return "", fmt.Errorf("project dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project dir %s is not a directory", args[0])
	}
	return filepath.Abs(args[0])
}
