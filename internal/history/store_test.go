package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/docs"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// tick makes timeNow advance one second per call.
func tick(t *testing.T) {
	t.Helper()
	base := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	n := 0
	timeNow = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	t.Cleanup(func() { timeNow = time.Now })
}

// ─── New ─────────────────────────────────────────────────────────────────────

func TestNew_CreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := New(Config{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, DBFile))
	assert.NoError(t, err)
}

func TestNew_OpenError(t *testing.T) {
	orig := openDB
	openDB = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	t.Cleanup(func() { openDB = orig })

	_, err := New(Config{DataDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open database")
}

func TestNew_ReopenKeepsRuns(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{DataDir: dir})
	require.NoError(t, err)
	id, err := s.Record(RunParams{ProjectDir: "/p", BalanceScore: 0.5})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := New(Config{DataDir: dir})
	require.NoError(t, err)
	defer s2.Close()

	r, err := s2.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "/p", r.ProjectDir)
}

// ─── Record / Get ────────────────────────────────────────────────────────────

func TestRecord_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Record(RunParams{
		Kind:         KindApply,
		ProjectDir:   "/work/app",
		BalanceScore: 0.25,
		ToStructured: 1,
		ToNarrative:  2,
		WellPlaced:   3,
		Success:      true,
		Backups:      []string{"/work/app/context.json.backup.20260220_120000"},
	})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	r, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, KindApply, r.Kind)
	assert.Equal(t, 0.25, r.BalanceScore)
	assert.Equal(t, 1, r.ToStructured)
	assert.Equal(t, 2, r.ToNarrative)
	assert.Equal(t, 3, r.WellPlaced)
	assert.True(t, r.Success)
	assert.False(t, r.DryRun)
	assert.Equal(t, []string{"/work/app/context.json.backup.20260220_120000"}, r.Backups)
	assert.NotEmpty(t, r.CreatedAt)
}

func TestRecord_DefaultsKind(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Record(RunParams{ProjectDir: "/p"})
	require.NoError(t, err)

	r, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, KindAnalyze, r.Kind)
	assert.Empty(t, r.Backups)
}

func TestRecord_RequiresProjectDir(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Record(RunParams{})
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ─── Recent ──────────────────────────────────────────────────────────────────

func TestRecent_NewestFirstAndFiltered(t *testing.T) {
	tick(t)
	s := newTestStore(t)

	for _, dir := range []string{"/a", "/b", "/a"} {
		_, err := s.Record(RunParams{ProjectDir: dir})
		require.NoError(t, err)
	}
	last, err := s.Record(RunParams{ProjectDir: "/a", BalanceScore: 0.9})
	require.NoError(t, err)

	all, err := s.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, last, all[0].ID)

	onlyA, err := s.Recent("/a", 2)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	for _, r := range onlyA {
		assert.Equal(t, "/a", r.ProjectDir)
	}
}

func TestRecent_DefaultLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 12; i++ {
		_, err := s.Record(RunParams{ProjectDir: "/p"})
		require.NoError(t, err)
	}
	runs, err := s.Recent("/p", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 10)
}

// ─── Stats ───────────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	tick(t)
	s := newTestStore(t)

	params := []RunParams{
		{Kind: KindAnalyze, ProjectDir: "/a", BalanceScore: 0.2, Success: true},
		{Kind: KindApply, ProjectDir: "/a", BalanceScore: 0.4, Success: true},
		{Kind: KindApply, ProjectDir: "/b", BalanceScore: 0.6, DryRun: true, Success: false},
	}
	for _, p := range params {
		_, err := s.Record(p)
		require.NoError(t, err)
	}

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 1, stats.AppliedRuns)
	assert.Equal(t, 1, stats.FailedRuns)
	assert.InDelta(t, 0.4, stats.AverageScore, 1e-9)
	assert.Equal(t, []string{"/b", "/a"}, stats.Projects)
}

func TestStats_Empty(t *testing.T) {
	stats, err := newTestStore(t).Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRuns)
	assert.Empty(t, stats.Projects)
}

// ─── ParamsFor ───────────────────────────────────────────────────────────────

func TestParamsFor(t *testing.T) {
	a := balance.NewAnalysis(docs.Pair{Structured: "/p/context.json", Narrative: "/p/CONTEXT.md"}, 0.5)
	a.ItemsWellPlaced = []balance.ContentItem{
		balance.NewContentItem("status", "active", balance.Structured, balance.Structured, 1, balance.CategoryTracking, 0.6),
	}

	p := ParamsFor(KindAnalyze, "/p", a, nil)
	assert.Equal(t, 1.0, p.BalanceScore)
	assert.Equal(t, 1, p.WellPlaced)
	assert.True(t, p.DryRun)
	assert.True(t, p.Success)

	r := &balance.ApplyReport{Success: false, Backups: []string{"b1", "b2"}}
	p = ParamsFor(KindApply, "/p", a, r)
	assert.False(t, p.DryRun)
	assert.False(t, p.Success)
	assert.Equal(t, []string{"b1", "b2"}, p.Backups)
}

func TestParamsForOutcome(t *testing.T) {
	o := balance.PairOutcome{
		Dir:     "/p",
		Score:   0.2,
		Success: true,
		Report: &balance.ApplyReport{
			Success:           true,
			Backups:           []string{"b1", "b2"},
			MovedToStructured: []string{"features"},
			MovedToNarrative:  []string{"vision", "notes"},
		},
	}

	p := ParamsForOutcome(o, false)
	assert.Equal(t, KindBatch, p.Kind)
	assert.Equal(t, 1, p.ToStructured)
	assert.Equal(t, 2, p.ToNarrative)
	assert.Equal(t, []string{"b1", "b2"}, p.Backups)
	assert.False(t, p.DryRun)

	skipped := ParamsForOutcome(balance.PairOutcome{Dir: "/q", Score: 0.9, Skipped: true, Success: true}, true)
	assert.True(t, skipped.Success)
	assert.Zero(t, skipped.ToStructured)
}

// ─── FormatRuns ──────────────────────────────────────────────────────────────

func TestFormatRuns(t *testing.T) {
	runs := []Run{
		{Kind: KindApply, ProjectDir: "/p", BalanceScore: 0.25, Success: true, Backups: []string{"/p/x.backup"}, CreatedAt: "2026-02-20 12:00:01.000"},
		{Kind: KindAnalyze, ProjectDir: "/p", DryRun: true, CreatedAt: "2026-02-20 12:00:00.000"},
	}
	out := FormatRuns(runs)
	assert.Contains(t, out, "apply `/p` score 0.25 (applied, ok)")
	assert.Contains(t, out, "  - backup: /p/x.backup\n")
	assert.Contains(t, out, "analyze `/p` score 0.00 (dry run, failed)")
}
