// Package tools implements the MCP tool handlers for content rebalancing.
//
// Each tool receives its dependencies via its struct and exposes
// Definition/Handle for registration with mcp-go.
//
// Design principles:
// - SRP: each file = one tool
// - The run history is optional: every tool works with a nil store
package tools

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// findProjectRoot walks up from the current working directory looking
// for a directory holding either document. If none is found, returns cwd.
// This allows tools to work from any subdirectory of the project.
func findProjectRoot(files config.Files) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		for _, name := range []string{files.Structured, files.Narrative} {
			if _, err := os.Stat(filepath.Join(current, name)); err == nil {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root; the caller reports missing documents.
			return dir, nil
		}
		current = parent
	}
}

// resolveDir returns the explicit project_dir argument when given,
// otherwise the detected project root.
func resolveDir(arg string, files config.Files) (string, error) {
	if arg != "" {
		return filepath.Abs(arg)
	}
	return findProjectRoot(files)
}

// recordRun stores a run when history is enabled. Failures are logged and
// never surface to the caller.
func recordRun(store *history.Store, logger *slog.Logger, p history.RunParams) {
	if store == nil {
		return
	}
	if _, err := store.Record(p); err != nil {
		logger.Warn("recording run failed", "dir", p.ProjectDir, "error", err)
	}
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
