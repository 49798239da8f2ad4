package balance

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/docs"
)

// Engine is the single-pair facade: it resolves a project directory to its
// document pair, analyzes it, and applies the result.
type Engine struct {
	cfg      config.Config
	planner  *Planner
	executor *Executor
	logger   *slog.Logger
}

// NewEngine builds an engine from cfg. Extra vocabulary entries whose
// category is unknown are ignored with a warning. A nil logger or out
// discards that output.
func NewEngine(cfg config.Config, logger *slog.Logger, out io.Writer) *Engine {
	if logger == nil {
		logger = discardLogger()
	}
	if out == nil {
		out = io.Discard
	}
	vocab := BuildVocabulary(cfg.Vocabulary, logger)
	return &Engine{
		cfg:      cfg,
		planner:  NewPlanner(cfg.Heuristics, vocab, logger),
		executor: NewExecutor(&lockedWriter{w: out}, logger),
		logger:   logger,
	}
}

// BuildVocabulary extends DefaultVocabulary with per-category keywords
// from configuration.
func BuildVocabulary(extra map[string][]string, logger *slog.Logger) Vocabulary {
	vocab := DefaultVocabulary()
	if len(extra) == 0 {
		return vocab
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make(map[Category][]string, len(extra))
	for _, name := range names {
		cat, ok := ParseCategory(name)
		if !ok {
			if logger != nil {
				logger.Warn("unknown vocabulary category ignored", "category", name)
			}
			continue
		}
		tables[cat] = append(tables[cat], extra[name]...)
	}
	return vocab.Extend(tables)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Pair resolves dir to its two conventional document paths.
func (e *Engine) Pair(dir string) docs.Pair {
	return docs.NewPair(dir, e.cfg.Files)
}

// Analyze runs the planner over the pair in dir without touching disk.
func (e *Engine) Analyze(dir string) *Analysis {
	return e.planner.Analyze(e.Pair(dir))
}

// Rebalance analyzes dir and applies the moves (or prints the plan when
// dryRun is set). The returned analysis is the pre-move state.
func (e *Engine) Rebalance(dir string, dryRun bool) (*Analysis, *ApplyReport) {
	a := e.Analyze(dir)
	r := e.executor.Apply(a, dryRun)
	e.logger.Info("rebalance finished",
		"dir", dir,
		"dry_run", dryRun,
		"success", r.Success,
		"score_before", r.ScoreBefore,
		"to_structured", len(r.MovedToStructured),
		"to_narrative", len(r.MovedToNarrative),
	)
	return a, r
}

// lockedWriter serializes writes from concurrent batch workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
