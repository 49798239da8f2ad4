// Package history records every analyze and rebalance run in a local
// SQLite database so past balance scores and backups can be looked up.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// DBFile is the database file name inside the data directory.
const DBFile = "history.db"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("history: run not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// Kind names the operation a run performed.
type Kind string

const (
	KindAnalyze Kind = "analyze"
	KindApply   Kind = "apply"
	KindBatch   Kind = "batch"
)

// Run is one recorded engine invocation.
type Run struct {
	ID           string   `json:"id"`
	Kind         Kind     `json:"kind"`
	ProjectDir   string   `json:"project_dir"`
	BalanceScore float64  `json:"balance_score"`
	ToStructured int      `json:"to_structured"`
	ToNarrative  int      `json:"to_narrative"`
	WellPlaced   int      `json:"well_placed"`
	DryRun       bool     `json:"dry_run"`
	Success      bool     `json:"success"`
	Backups      []string `json:"backups,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// RunParams holds the input for recording a run.
type RunParams struct {
	Kind         Kind
	ProjectDir   string
	BalanceScore float64
	ToStructured int
	ToNarrative  int
	WellPlaced   int
	DryRun       bool
	Success      bool
	Backups      []string
}

// Stats holds aggregate history statistics.
type Stats struct {
	TotalRuns    int      `json:"total_runs"`
	AppliedRuns  int      `json:"applied_runs"`
	FailedRuns   int      `json:"failed_runs"`
	AverageScore float64  `json:"average_score"`
	Projects     []string `json:"projects"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds history store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration for the history store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".pairdoc")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the run history backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (creating if needed) the history database under cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, DBFile)
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT    PRIMARY KEY,
			kind          TEXT    NOT NULL,
			project_dir   TEXT    NOT NULL,
			balance_score REAL    NOT NULL,
			to_structured INTEGER NOT NULL DEFAULT 0,
			to_narrative  INTEGER NOT NULL DEFAULT 0,
			well_placed   INTEGER NOT NULL DEFAULT 0,
			dry_run       INTEGER NOT NULL DEFAULT 0,
			success       INTEGER NOT NULL DEFAULT 0,
			backups       TEXT    NOT NULL DEFAULT '[]',
			created_at    TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_dir);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`)
	return err
}

// ─── Runs ────────────────────────────────────────────────────────────────────

// Record stores a run and returns its generated id.
func (s *Store) Record(p RunParams) (string, error) {
	if p.ProjectDir == "" {
		return "", errors.New("history: project dir is required")
	}
	if p.Kind == "" {
		p.Kind = KindAnalyze
	}

	backups := p.Backups
	if backups == nil {
		backups = []string{}
	}
	encoded, err := json.Marshal(backups)
	if err != nil {
		return "", fmt.Errorf("history: encode backups: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO runs (id, kind, project_dir, balance_score, to_structured, to_narrative,
		                   well_placed, dry_run, success, backups, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(p.Kind), p.ProjectDir, p.BalanceScore, p.ToStructured, p.ToNarrative,
		p.WellPlaced, p.DryRun, p.Success, string(encoded), now(),
	)
	if err != nil {
		return "", fmt.Errorf("history: insert run: %w", err)
	}
	return id, nil
}

// Get returns one run by id.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(selectRuns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Recent returns the newest runs, optionally for one project directory.
func (s *Store) Recent(projectDir string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query := selectRuns + ` WHERE 1=1`
	args := []any{}
	if projectDir != "" {
		query += " AND project_dir = ?"
		args = append(args, projectDir)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate counts over all recorded runs.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN dry_run = 0 AND kind != 'analyze' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(balance_score), 0)
		FROM runs`,
	).Scan(&stats.TotalRuns, &stats.AppliedRuns, &stats.FailedRuns, &stats.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}

	rows, err := s.db.Query("SELECT project_dir FROM runs GROUP BY project_dir ORDER BY MAX(created_at) DESC")
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			stats.Projects = append(stats.Projects, p)
		}
	}
	return stats, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

const selectRuns = `
	SELECT id, kind, project_dir, balance_score, to_structured, to_narrative,
	       well_placed, dry_run, success, backups, created_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r       Run
		kind    string
		backups string
	)
	if err := row.Scan(&r.ID, &kind, &r.ProjectDir, &r.BalanceScore, &r.ToStructured, &r.ToNarrative,
		&r.WellPlaced, &r.DryRun, &r.Success, &backups, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(backups), &r.Backups); err != nil {
		return nil, fmt.Errorf("history: decode backups for %s: %w", r.ID, err)
	}
	return &r, nil
}

// now returns the current UTC time in the stored layout.
func now() string {
	return timeNow().UTC().Format("2006-01-02 15:04:05.000")
}
