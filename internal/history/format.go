package history

import (
	"fmt"
	"strings"
)

// FormatRuns renders runs as a markdown list, newest first.
func FormatRuns(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		mode := "applied"
		if r.DryRun {
			mode = "dry run"
		}
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		fmt.Fprintf(&sb, "- **%s** %s `%s` score %.2f (%s, %s): %d to structured, %d to narrative, %d well placed\n",
			r.CreatedAt, r.Kind, r.ProjectDir, r.BalanceScore, mode, status, r.ToStructured, r.ToNarrative, r.WellPlaced)
		for _, b := range r.Backups {
			fmt.Fprintf(&sb, "  - backup: %s\n", b)
		}
	}
	return sb.String()
}
