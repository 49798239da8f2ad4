package balance

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/docs"
)

func init() {
	timeNow = func() time.Time {
		return time.Date(2026, 2, 20, 12, 30, 45, 0, time.UTC)
	}
}

// writePair creates a project directory holding the given documents. An
// empty string leaves that document absent.
func writePair(t *testing.T, structured, narrative string) docs.Pair {
	t.Helper()
	dir := t.TempDir()
	pair := docs.NewPair(dir, config.Default().Files)
	if structured != "" {
		if err := os.WriteFile(pair.Structured, []byte(structured), 0o644); err != nil {
			t.Fatalf("write structured: %v", err)
		}
	}
	if narrative != "" {
		if err := os.WriteFile(pair.Narrative, []byte(narrative), 0o644); err != nil {
			t.Fatalf("write narrative: %v", err)
		}
	}
	return pair
}

func newTestPlanner() *Planner {
	return NewPlanner(config.DefaultHeuristics(), DefaultVocabulary(), nil)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

const featuresNarrative = "# Project\n\nIntro text.\n\n## Features\n\n- Login page\n- Export to CSV\n- Dark mode\n"

// --- Balance score ---

func TestComputeBalanceScore(t *testing.T) {
	well := NewContentItem("a", "x", Structured, Structured, 1, CategoryTechnical, 0.6)
	move := NewContentItem("b", "x", Structured, Narrative, 1, CategoryContext, 0.6)

	tests := []struct {
		name string
		toS  []ContentItem
		toN  []ContentItem
		well []ContentItem
		want float64
	}{
		{"no items", nil, nil, nil, 1.0},
		{"all well placed", nil, nil, []ContentItem{well, well}, 1.0},
		{"half moved", nil, []ContentItem{move}, []ContentItem{well}, 0.25},
		{"all moved clamps to zero", []ContentItem{move}, []ContentItem{move}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalanceScore(tt.toS, tt.toN, tt.well, 0.5)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- Analyze ---

func TestAnalyze_ProseInStructuredStore(t *testing.T) {
	pair := writePair(t,
		mustJSON(t, map[string]any{"vision": visionProse}),
		"# Project\n\nIntro text.\n",
	)
	a := newTestPlanner().Analyze(pair)

	if len(a.ItemsToMoveToNarrative) != 1 || a.ItemsToMoveToNarrative[0].Key != "vision" {
		t.Fatalf("ItemsToMoveToNarrative = %v", itemKeys(a.ItemsToMoveToNarrative))
	}
	if len(a.ItemsToMoveToStructured) != 0 || len(a.ItemsWellPlaced) != 0 {
		t.Errorf("unexpected buckets: %s", a)
	}
	if s := a.BalanceScore(); s != 0 {
		t.Errorf("BalanceScore = %v, want 0 (single confident move)", s)
	}
}

func TestAnalyze_BulletedSectionInNarrative(t *testing.T) {
	pair := writePair(t, `{"status": "active"}`, featuresNarrative)
	a := newTestPlanner().Analyze(pair)

	if len(a.ItemsToMoveToStructured) != 1 {
		t.Fatalf("ItemsToMoveToStructured = %v", itemKeys(a.ItemsToMoveToStructured))
	}
	it := a.ItemsToMoveToStructured[0]
	if it.Key != "features" || it.ContentType != CategoryTracking {
		t.Errorf("item = %+v", it)
	}
	if it.Confidence <= 0.6 {
		t.Errorf("Confidence = %v, want > 0.6", it.Confidence)
	}
}

func TestAnalyze_WellPlacedPair(t *testing.T) {
	pair := writePair(t, `{"status": "in_progress"}`, "# Notes\n\nhello\n")
	a := newTestPlanner().Analyze(pair)

	if a.MoveCount() != 0 || len(a.ItemsWellPlaced) != 1 {
		t.Fatalf("analysis = %s", a)
	}
	if a.BalanceScore() != 1.0 {
		t.Errorf("BalanceScore = %v, want 1.0", a.BalanceScore())
	}
}

func TestAnalyze_ProseDecisionsStayPut(t *testing.T) {
	pair := writePair(t, `{"status": "active"}`,
		"## Decisions\n\nWe chose Go because it compiles fast and the team knows it well.\n")
	a := newTestPlanner().Analyze(pair)

	if a.MoveCount() != 0 {
		t.Fatalf("prose Decisions section should not move: %s", a)
	}
	if a.TotalItems() != 2 {
		t.Errorf("TotalItems = %d, want 2", a.TotalItems())
	}
}

func TestAnalyze_MissingDocument(t *testing.T) {
	pair := writePair(t, `{"status": "active"}`, "")
	a := newTestPlanner().Analyze(pair)

	if !a.HasMissing() || a.MissingDocuments[0] != config.DefaultNarrativeFile {
		t.Fatalf("MissingDocuments = %v", a.MissingDocuments)
	}
	if a.TotalItems() != 0 {
		t.Errorf("TotalItems = %d, want 0", a.TotalItems())
	}
}

func TestAnalyze_MalformedStructuredDegrades(t *testing.T) {
	pair := writePair(t, "{broken", featuresNarrative)
	a := newTestPlanner().Analyze(pair)

	if len(a.Warnings) != 1 || !strings.Contains(a.Warnings[0], "structured") {
		t.Fatalf("Warnings = %v", a.Warnings)
	}
	if len(a.ItemsToMoveToStructured) != 1 {
		t.Errorf("narrative side should still be analyzed: %s", a)
	}
}

func TestAnalyze_InvalidUTF8NarrativeDegrades(t *testing.T) {
	pair := writePair(t, mustJSON(t, map[string]any{"vision": visionProse}), "## Notes\n\n\xff\xfe broken\n")
	a := newTestPlanner().Analyze(pair)

	if len(a.Warnings) != 1 || !strings.Contains(a.Warnings[0], "narrative") {
		t.Fatalf("Warnings = %v", a.Warnings)
	}
	if len(a.ItemsToMoveToNarrative) != 1 || a.ItemsToMoveToNarrative[0].Key != "vision" {
		t.Errorf("structured side should still be analyzed: %s", a)
	}
	if len(a.ItemsToMoveToStructured) != 0 {
		t.Errorf("ItemsToMoveToStructured = %v, want none", itemKeys(a.ItemsToMoveToStructured))
	}
}

func TestAnalyze_FiveBulletFeaturesMove(t *testing.T) {
	narrative := "# Project\n\nIntro text.\n\n## Features\n\n- Login page\n- Export to CSV\n- Dark mode\n- Offline sync\n- Audit trail\n"
	pair := writePair(t, `{"status": "active"}`, narrative)
	a := newTestPlanner().Analyze(pair)

	if len(a.ItemsToMoveToStructured) != 1 {
		t.Fatalf("ItemsToMoveToStructured = %v", itemKeys(a.ItemsToMoveToStructured))
	}
	it := a.ItemsToMoveToStructured[0]
	if it.Key != "features" || it.CurrentLocation != Narrative || it.OptimalLocation != Structured {
		t.Errorf("item = %+v", it)
	}
	body, _ := it.Value.(string)
	want := []any{"Login page", "Export to CSV", "Dark mode", "Offline sync", "Audit trail"}
	if diff := cmp.Diff(want, ToStructured(body)); diff != "" {
		t.Errorf("converted body (-want +got):\n%s", diff)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	pair := writePair(t,
		mustJSON(t, map[string]any{"status": "active", "vision": visionProse, "stack": map[string]any{"lang": "go", "db": "sqlite"}}),
		featuresNarrative,
	)
	p := newTestPlanner()

	first := mustJSON(t, p.Analyze(pair))
	second := mustJSON(t, p.Analyze(pair))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second analysis differs (-first +second):\n%s", diff)
	}
}

func TestAnalyze_IsReadOnly(t *testing.T) {
	pair := writePair(t, mustJSON(t, map[string]any{"vision": visionProse}), featuresNarrative)
	_ = newTestPlanner().Analyze(pair)

	entries, err := os.ReadDir(filepath.Dir(pair.Structured))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("Analyze created files: %d entries", len(entries))
	}
}

func TestAnalysis_MarshalIncludesScore(t *testing.T) {
	pair := writePair(t, `{"status": "active"}`, "# Notes\n\nhello\n")
	a := newTestPlanner().Analyze(pair)

	out := mustJSON(t, a)
	for _, want := range []string{`"balance_score":1`, `"items_well_placed":[`, `"missing_documents":[]`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s: %s", want, out)
		}
	}
}
