package balance

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/docs"
)

func newTestEngine(out *bytes.Buffer) *Engine {
	cfg := config.Default()
	if out == nil {
		return NewEngine(cfg, nil, nil)
	}
	return NewEngine(cfg, nil, out)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func mixedPair(t *testing.T) docs.Pair {
	t.Helper()
	return writePair(t,
		mustJSON(t, map[string]any{"status": "active", "vision": visionProse}),
		featuresNarrative,
	)
}

// --- Apply ---

func TestApply_MovesBothDirections(t *testing.T) {
	pair := mixedPair(t)
	origStructured := readFile(t, pair.Structured)
	origNarrative := readFile(t, pair.Narrative)

	var out bytes.Buffer
	_, r := newTestEngine(&out).Rebalance(pair.Dir, false)

	if !r.Success {
		t.Fatalf("Apply failed: %v", r.Diagnostics)
	}
	if diff := cmp.Diff([]string{"features"}, r.MovedToStructured); diff != "" {
		t.Errorf("MovedToStructured (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"vision"}, r.MovedToNarrative); diff != "" {
		t.Errorf("MovedToNarrative (-want +got):\n%s", diff)
	}

	doc, err := docs.LoadStructured(pair.Structured)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"Login page", "Export to CSV", "Dark mode"}, doc["features"]); diff != "" {
		t.Errorf("features (-want +got):\n%s", diff)
	}
	if _, ok := doc["vision"]; ok {
		t.Error("vision should be removed from the structured store")
	}
	if doc["status"] != "active" {
		t.Errorf("status = %v, want untouched", doc["status"])
	}

	text := readFile(t, pair.Narrative)
	if strings.Contains(text, "## Features") {
		t.Error("Features section should be removed from the narrative")
	}
	if !strings.Contains(text, "## Vision\n\n"+visionProse) {
		t.Errorf("narrative missing Vision section:\n%s", text)
	}
	if !strings.HasPrefix(text, "# Project\n\nIntro text.") {
		t.Errorf("narrative preamble changed:\n%s", text)
	}

	// Backups hold the pre-move content.
	if len(r.Backups) != 2 {
		t.Fatalf("Backups = %v", r.Backups)
	}
	if got := readFile(t, r.Backups[0]); got != origStructured {
		t.Error("structured backup differs from original")
	}
	if got := readFile(t, r.Backups[1]); got != origNarrative {
		t.Error("narrative backup differs from original")
	}
	if !strings.Contains(filepath.Base(r.Backups[0]), ".backup.") {
		t.Errorf("backup name = %s", r.Backups[0])
	}
}

func TestApply_AppendsChangeLog(t *testing.T) {
	pair := mixedPair(t)
	_, r := newTestEngine(nil).Rebalance(pair.Dir, false)
	if !r.Success {
		t.Fatalf("Apply failed: %v", r.Diagnostics)
	}

	doc, err := docs.LoadStructured(pair.Structured)
	if err != nil {
		t.Fatal(err)
	}
	log, ok := doc[ChangeLogKey].([]any)
	if !ok || len(log) != 1 {
		t.Fatalf("change_log = %#v", doc[ChangeLogKey])
	}
	entry := log[0].(map[string]any)
	if entry["date"] != "2026-02-20" {
		t.Errorf("date = %v", entry["date"])
	}
	if entry["version"] != "rebalance-20260220_123045" {
		t.Errorf("version = %v", entry["version"])
	}
	desc, _ := entry["description"].(string)
	if !strings.Contains(desc, "1 item(s) to structured") || !strings.Contains(desc, "1 item(s) to narrative") {
		t.Errorf("description = %q", desc)
	}
}

func TestApply_DryRunTouchesNothing(t *testing.T) {
	pair := mixedPair(t)
	before := dirEntries(t, pair.Dir)
	origStructured := readFile(t, pair.Structured)

	var out bytes.Buffer
	_, r := newTestEngine(&out).Rebalance(pair.Dir, true)

	if !r.Success || !r.DryRun {
		t.Fatalf("report = %+v", r)
	}
	if diff := cmp.Diff(before, dirEntries(t, pair.Dir)); diff != "" {
		t.Errorf("dry run created files (-want +got):\n%s", diff)
	}
	if readFile(t, pair.Structured) != origStructured {
		t.Error("dry run modified the structured store")
	}
	plan := out.String()
	for _, want := range []string{"Move to structured (1)", "features", "Move to narrative (1)", "vision", "Dry run"} {
		if !strings.Contains(plan, want) {
			t.Errorf("plan missing %q:\n%s", want, plan)
		}
	}
}

func TestApply_MissingDocumentFails(t *testing.T) {
	pair := writePair(t, `{"status": "active"}`, "")
	_, r := newTestEngine(nil).Rebalance(pair.Dir, false)

	if r.Success {
		t.Fatal("Apply should fail when a document is missing")
	}
	if diff := cmp.Diff([]string{config.DefaultStructuredFile}, dirEntries(t, pair.Dir)); diff != "" {
		t.Errorf("files changed (-want +got):\n%s", diff)
	}
}

func TestApply_BackupFailureAbortsBeforeWrite(t *testing.T) {
	pair := mixedPair(t)
	origStructured := readFile(t, pair.Structured)
	origNarrative := readFile(t, pair.Narrative)

	orig := backupPair
	backupPair = func(docs.Pair) ([]string, error) { return nil, errors.New("disk full") }
	t.Cleanup(func() { backupPair = orig })

	var out bytes.Buffer
	_, r := newTestEngine(&out).Rebalance(pair.Dir, false)

	if r.Success || len(r.Backups) != 0 {
		t.Fatalf("report = %+v", r)
	}
	if len(r.Diagnostics) != 1 || !strings.Contains(r.Diagnostics[0], "backup failed") {
		t.Errorf("Diagnostics = %v", r.Diagnostics)
	}
	if readFile(t, pair.Structured) != origStructured || readFile(t, pair.Narrative) != origNarrative {
		t.Error("documents changed after a failed backup")
	}
	if len(dirEntries(t, pair.Dir)) != 2 {
		t.Errorf("unexpected files: %v", dirEntries(t, pair.Dir))
	}
	if !strings.Contains(out.String(), "Cannot rebalance") || !strings.Contains(out.String(), "disk full") {
		t.Errorf("output should report the abort:\n%s", out.String())
	}
}

func TestApply_UnreadableStructuredAbortsWithoutBackup(t *testing.T) {
	pair := writePair(t, "{broken", featuresNarrative)

	var out bytes.Buffer
	a, r := newTestEngine(&out).Rebalance(pair.Dir, false)

	if a.MoveCount() == 0 {
		t.Fatalf("narrative side should still plan a move: %s", a)
	}
	if r.Success || len(r.Backups) != 0 {
		t.Fatalf("report = %+v", r)
	}
	if len(r.Diagnostics) != 1 || !strings.Contains(r.Diagnostics[0], "cannot load structured") {
		t.Errorf("Diagnostics = %v", r.Diagnostics)
	}
	if readFile(t, pair.Structured) != "{broken" || readFile(t, pair.Narrative) != featuresNarrative {
		t.Error("documents changed")
	}
	if len(dirEntries(t, pair.Dir)) != 2 {
		t.Errorf("unexpected files: %v", dirEntries(t, pair.Dir))
	}
	if !strings.Contains(out.String(), "cannot load structured") {
		t.Errorf("output should name the reason:\n%s", out.String())
	}
}

func TestApply_NothingToDo(t *testing.T) {
	pair := writePair(t, `{"status": "active"}`, "# Notes\n\nhello\n")
	_, r := newTestEngine(nil).Rebalance(pair.Dir, false)

	if !r.Success || len(r.Backups) != 0 {
		t.Fatalf("report = %+v", r)
	}
	if len(dirEntries(t, pair.Dir)) != 2 {
		t.Error("no backups expected when nothing moves")
	}
}

func TestApply_Idempotent(t *testing.T) {
	pair := mixedPair(t)
	e := newTestEngine(nil)

	if _, r := e.Rebalance(pair.Dir, false); !r.Success {
		t.Fatalf("first Apply failed: %v", r.Diagnostics)
	}
	structured := readFile(t, pair.Structured)
	narrative := readFile(t, pair.Narrative)

	a, r := e.Rebalance(pair.Dir, false)
	if !r.Success {
		t.Fatalf("second Apply failed: %v", r.Diagnostics)
	}
	if a.MoveCount() != 0 {
		t.Errorf("second analysis still has moves: %s", a)
	}
	if diff := cmp.Diff(structured, readFile(t, pair.Structured)); diff != "" {
		t.Errorf("structured changed on second run (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(narrative, readFile(t, pair.Narrative)); diff != "" {
		t.Errorf("narrative changed on second run (-first +second):\n%s", diff)
	}
}

func TestApply_MergesExistingList(t *testing.T) {
	pair := writePair(t,
		mustJSON(t, map[string]any{"features": []any{"Login page"}}),
		featuresNarrative,
	)
	_, r := newTestEngine(nil).Rebalance(pair.Dir, false)
	if !r.Success {
		t.Fatalf("Apply failed: %v", r.Diagnostics)
	}

	doc, err := docs.LoadStructured(pair.Structured)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"Login page", "Export to CSV", "Dark mode"}, doc["features"]); diff != "" {
		t.Errorf("features (-want +got):\n%s", diff)
	}
}

func TestApply_CollisionWithScalarSkips(t *testing.T) {
	pair := writePair(t, `{"features": "tracked elsewhere"}`, featuresNarrative)
	_, r := newTestEngine(nil).Rebalance(pair.Dir, false)

	if diff := cmp.Diff([]string{"features"}, r.Skipped); diff != "" {
		t.Fatalf("Skipped (-want +got):\n%s", diff)
	}
	if len(r.MovedToStructured) != 0 {
		t.Errorf("MovedToStructured = %v", r.MovedToStructured)
	}
	if !strings.Contains(readFile(t, pair.Narrative), "## Features") {
		t.Error("skipped section must stay in the narrative")
	}
}

func TestApply_NonListChangeLogFailsAudit(t *testing.T) {
	pair := writePair(t,
		mustJSON(t, map[string]any{"change_log": "oops", "vision": visionProse}),
		"# Project\n",
	)
	_, r := newTestEngine(nil).Rebalance(pair.Dir, false)

	if r.Success {
		t.Fatal("expected failure when change_log is not a list")
	}
	if len(r.MovedToNarrative) != 1 {
		t.Errorf("move should still be recorded: %+v", r)
	}
	found := false
	for _, d := range r.Diagnostics {
		if strings.Contains(d, "audit") {
			found = true
		}
	}
	if !found {
		t.Errorf("Diagnostics = %v, want an audit failure", r.Diagnostics)
	}
}

func TestApply_NestedKeyStays(t *testing.T) {
	a := NewAnalysis(docs.Pair{}, 0.5)
	pair := writePair(t, mustJSON(t, map[string]any{"project": map[string]any{"vision": visionProse}}), "# Project\n")
	a.StructuredPath, a.NarrativePath = pair.Structured, pair.Narrative
	a.ItemsToMoveToNarrative = []ContentItem{
		NewContentItem("project.vision", visionProse, Structured, Narrative, 1, CategoryIdeation, 0.6),
	}

	r := NewExecutor(nil, nil).Apply(a, false)
	if !r.Success {
		t.Fatalf("Apply failed: %v", r.Diagnostics)
	}
	doc, err := docs.LoadStructured(pair.Structured)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["project"].(map[string]any)["vision"]; !ok {
		t.Error("nested key should be left in place")
	}
	if !strings.Contains(readFile(t, pair.Narrative), "## Project Vision") {
		t.Error("nested value should be copied to the narrative")
	}
}

func TestApply_NilAnalysis(t *testing.T) {
	if r := NewExecutor(nil, nil).Apply(nil, false); r.Success {
		t.Error("nil analysis should not succeed")
	}
}

// --- FormatPlan ---

func TestFormatPlan_EmptyBuckets(t *testing.T) {
	plan := FormatPlan(NewAnalysis(docs.Pair{Structured: "s.json", Narrative: "n.md"}, 0.5))
	if !strings.Contains(plan, "balance score 1.00") || !strings.Contains(plan, "(none)") {
		t.Errorf("plan =\n%s", plan)
	}
}
