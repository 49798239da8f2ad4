package balance

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/pairdoc/internal/docs"
)

// ChangeLogKey is the structured-store key holding audit entries.
const ChangeLogKey = "change_log"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// backupPair is replaced in tests to simulate backup failures.
var backupPair = docs.BackupPair

// ApplyReport is the outcome of Executor.Apply. Success is false if any
// step failed; Diagnostics explains each failure or skipped item.
type ApplyReport struct {
	Success           bool     `json:"success"`
	DryRun            bool     `json:"dry_run"`
	ScoreBefore       float64  `json:"score_before"`
	Backups           []string `json:"backups,omitempty"`
	MovedToStructured []string `json:"moved_to_structured,omitempty"`
	MovedToNarrative  []string `json:"moved_to_narrative,omitempty"`
	Skipped           []string `json:"skipped,omitempty"`
	Diagnostics       []string `json:"diagnostics,omitempty"`
}

func (r *ApplyReport) diag(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Executor applies an analysis to disk.
//
// Callers must not run Apply concurrently on the same document pair: the
// read-backup-write sequence takes no file locks.
type Executor struct {
	out    io.Writer
	logger *slog.Logger
}

// NewExecutor creates an executor writing human-readable plans to out.
// A nil out or logger discards that output.
func NewExecutor(out io.Writer, logger *slog.Logger) *Executor {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Executor{out: out, logger: logger}
}

// Apply performs (or, with dryRun, only prints) the moves in a.
//
// Nothing is mutated when documents are missing, when no moves are needed,
// or in dry-run mode. Otherwise both documents are loaded and backed up
// first; a load or backup failure aborts before any write. Each move
// direction fails independently, and the audit entry records what
// actually moved.
func (e *Executor) Apply(a *Analysis, dryRun bool) *ApplyReport {
	r := &ApplyReport{DryRun: dryRun}
	if a == nil {
		r.diag("no analysis to apply")
		return r
	}
	r.ScoreBefore = a.BalanceScore()

	if a.HasMissing() {
		r.diag("missing documents: %s", strings.Join(a.MissingDocuments, ", "))
		fmt.Fprintf(e.out, "Cannot rebalance: missing %s\n", strings.Join(a.MissingDocuments, ", "))
		return r
	}
	if a.MoveCount() == 0 {
		fmt.Fprintf(e.out, "Nothing to rebalance (%d items well placed, balance score %.2f).\n",
			len(a.ItemsWellPlaced), r.ScoreBefore)
		r.Success = true
		return r
	}

	if dryRun {
		e.PrintPlan(a)
		fmt.Fprintln(e.out, "Dry run: no files were changed.")
		r.Success = true
		return r
	}

	pair := docs.Pair{Dir: filepath.Dir(a.StructuredPath), Structured: a.StructuredPath, Narrative: a.NarrativePath}

	// Both documents must load before anything is backed up or written.
	doc, err := docs.LoadStructured(pair.Structured)
	if err != nil {
		return e.abort(r, pair, "cannot load structured document, nothing changed: %v", err)
	}
	text, err := docs.LoadNarrative(pair.Narrative)
	if err != nil {
		return e.abort(r, pair, "cannot load narrative document, nothing changed: %v", err)
	}

	backups, err := backupPair(pair)
	if err != nil {
		return e.abort(r, pair, "backup failed, nothing changed: %v", err)
	}
	r.Backups = backups
	e.logger.Info("backups written", "structured", backups[0], "narrative", backups[1])

	ok := true
	if len(a.ItemsToMoveToStructured) > 0 {
		doc, text, ok = e.moveToStructured(pair, a.ItemsToMoveToStructured, doc, text, r)
	}
	if len(a.ItemsToMoveToNarrative) > 0 {
		var narrOK bool
		doc, text, narrOK = e.moveToNarrative(pair, a.ItemsToMoveToNarrative, doc, text, r)
		ok = ok && narrOK
	}

	if len(r.MovedToStructured)+len(r.MovedToNarrative) > 0 {
		if err := e.audit(pair, doc, r); err != nil {
			r.diag("audit entry not written: %v", err)
			e.logger.Error("audit failed", "path", pair.Structured, "error", err)
			ok = false
		}
	}

	r.Success = ok
	fmt.Fprintf(e.out, "Rebalanced %s: %d to structured, %d to narrative. Backups: %s\n",
		pair.Dir, len(r.MovedToStructured), len(r.MovedToNarrative), strings.Join(r.Backups, ", "))
	for _, d := range r.Diagnostics {
		fmt.Fprintf(e.out, "  ! %s\n", d)
	}
	return r
}

// abort records a failure that stopped the run before any write, logs it,
// and prints it to the plan output.
func (e *Executor) abort(r *ApplyReport, pair docs.Pair, format string, args ...any) *ApplyReport {
	r.diag(format, args...)
	msg := r.Diagnostics[len(r.Diagnostics)-1]
	e.logger.Error("rebalance aborted", "dir", pair.Dir, "reason", msg)
	fmt.Fprintf(e.out, "Cannot rebalance %s: %s\n", pair.Dir, msg)
	return r
}

// moveToStructured inserts narrative sections into the structured store and
// removes them from the narrative text. On a write failure the returned
// documents are the unchanged inputs.
func (e *Executor) moveToStructured(pair docs.Pair, items []ContentItem, doc map[string]any, text string, r *ApplyReport) (map[string]any, string, bool) {
	nextDoc := cloneMap(doc)
	nextText := text
	var moved []string

	for _, it := range items {
		body, _ := it.Value.(string)
		value := ToStructured(body)

		if existing, exists := nextDoc[it.Key]; exists {
			merged, ok := mergeLists(existing, value)
			if !ok {
				r.Skipped = append(r.Skipped, it.Key)
				r.diag("key %q already exists in structured store; section left in place", it.Key)
				continue
			}
			value = merged
		}
		nextDoc[it.Key] = value

		if sec, found := FindSection(nextText, it.Key); found {
			nextText = RemoveSection(nextText, sec)
		}
		moved = append(moved, it.Key)
	}

	if len(moved) == 0 {
		return doc, text, true
	}
	if err := docs.WriteStructured(pair.Structured, nextDoc); err != nil {
		r.diag("move to structured failed: %v", err)
		e.logger.Error("write structured failed", "path", pair.Structured, "error", err)
		return doc, text, false
	}
	if err := docs.WriteNarrative(pair.Narrative, nextText); err != nil {
		// Structured side already holds the items; the sections stay
		// duplicated until the user restores or edits.
		r.MovedToStructured = append(r.MovedToStructured, moved...)
		r.diag("sections copied to structured store but not removed from narrative: %v", err)
		e.logger.Error("write narrative failed", "path", pair.Narrative, "error", err)
		return nextDoc, text, false
	}
	r.MovedToStructured = append(r.MovedToStructured, moved...)
	e.logger.Info("moved to structured", "keys", moved)
	return nextDoc, nextText, true
}

// moveToNarrative appends sections for structured items and removes their
// top-level keys. Dotted (nested) keys are copied but not removed.
func (e *Executor) moveToNarrative(pair docs.Pair, items []ContentItem, doc map[string]any, text string, r *ApplyReport) (map[string]any, string, bool) {
	nextDoc := cloneMap(doc)
	nextText := text
	var moved []string

	for _, it := range items {
		nextText = AppendSection(nextText, ToNarrative(it.Key, it.Value))
		if strings.Contains(it.Key, ".") {
			r.diag("nested key %q copied to narrative but left in structured store", it.Key)
		} else {
			delete(nextDoc, it.Key)
		}
		moved = append(moved, it.Key)
	}

	if err := docs.WriteNarrative(pair.Narrative, nextText); err != nil {
		r.diag("move to narrative failed: %v", err)
		e.logger.Error("write narrative failed", "path", pair.Narrative, "error", err)
		return doc, text, false
	}
	if err := docs.WriteStructured(pair.Structured, nextDoc); err != nil {
		r.MovedToNarrative = append(r.MovedToNarrative, moved...)
		r.diag("sections appended to narrative but keys not removed from structured store: %v", err)
		e.logger.Error("write structured failed", "path", pair.Structured, "error", err)
		return doc, nextText, false
	}
	r.MovedToNarrative = append(r.MovedToNarrative, moved...)
	e.logger.Info("moved to narrative", "keys", moved)
	return nextDoc, nextText, true
}

// audit appends one change_log entry and rewrites the structured store.
func (e *Executor) audit(pair docs.Pair, doc map[string]any, r *ApplyReport) error {
	var log []any
	switch existing := doc[ChangeLogKey].(type) {
	case nil:
	case []any:
		log = existing
	default:
		return fmt.Errorf("%s is %T, want a list", ChangeLogKey, existing)
	}

	now := timeNow()
	entry := map[string]any{
		"date":    now.Format("2006-01-02"),
		"version": "rebalance-" + now.Format(docs.BackupLayout),
		"description": fmt.Sprintf(
			"Content rebalancing: moved %d item(s) to structured, %d item(s) to narrative (balance score before: %.2f)",
			len(r.MovedToStructured), len(r.MovedToNarrative), r.ScoreBefore,
		),
	}

	next := cloneMap(doc)
	next[ChangeLogKey] = append(append([]any{}, log...), entry)
	return docs.WriteStructured(pair.Structured, next)
}

// PrintPlan writes a human-readable plan for a.
func (e *Executor) PrintPlan(a *Analysis) {
	fmt.Fprint(e.out, FormatPlan(a))
}

// FormatPlan renders the move plan of a as text.
func FormatPlan(a *Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rebalance plan (balance score %.2f)\n", a.BalanceScore())
	fmt.Fprintf(&sb, "  structured: %s\n  narrative:  %s\n", a.StructuredPath, a.NarrativePath)

	writeBucket := func(title string, items []ContentItem) {
		fmt.Fprintf(&sb, "\n%s (%d):\n", title, len(items))
		if len(items) == 0 {
			sb.WriteString("  (none)\n")
			return
		}
		for _, it := range items {
			fmt.Fprintf(&sb, "  - %s [%s, confidence %.2f]\n", it.Key, it.ContentType, it.Confidence)
		}
	}
	writeBucket("Move to structured", a.ItemsToMoveToStructured)
	writeBucket("Move to narrative", a.ItemsToMoveToNarrative)
	fmt.Fprintf(&sb, "\nWell placed: %d item(s)\n", len(a.ItemsWellPlaced))
	for _, w := range a.Warnings {
		fmt.Fprintf(&sb, "  ! %s\n", w)
	}
	return sb.String()
}

// FormatReport renders an ApplyReport as text.
func FormatReport(r *ApplyReport) string {
	var sb strings.Builder
	status := "succeeded"
	if !r.Success {
		status = "failed"
	}
	mode := "Rebalance"
	if r.DryRun {
		mode = "Dry run"
	}
	fmt.Fprintf(&sb, "%s %s (balance score before: %.2f)\n", mode, status, r.ScoreBefore)

	list := func(title string, keys []string) {
		if len(keys) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s:\n", title)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  - %s\n", k)
		}
	}
	list("Moved to structured", r.MovedToStructured)
	list("Moved to narrative", r.MovedToNarrative)
	list("Skipped", r.Skipped)
	list("Backups", r.Backups)
	list("Diagnostics", r.Diagnostics)
	return sb.String()
}

// mergeLists appends the items of add missing from existing. ok is false
// unless both values are sequences.
func mergeLists(existing, add any) ([]any, bool) {
	a, ok1 := existing.([]any)
	b, ok2 := add.([]any)
	if !ok1 || !ok2 {
		return nil, false
	}
	seen := make(map[string]bool, len(a))
	out := append([]any{}, a...)
	for _, e := range a {
		seen[Stringify(e)] = true
	}
	for _, e := range b {
		if s := Stringify(e); !seen[s] {
			seen[s] = true
			out = append(out, e)
		}
	}
	return out, true
}

// cloneMap deep-copies mappings and sequences.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
