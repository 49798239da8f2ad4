package balance

import (
	"fmt"
	"log/slog"

	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/docs"
)

// Planner produces a RebalanceAnalysis for one document pair.
type Planner struct {
	h       config.Heuristics
	scanner *Scanner
	logger  *slog.Logger
}

// NewPlanner creates a planner. A nil logger discards output.
func NewPlanner(h config.Heuristics, vocab Vocabulary, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = discardLogger()
	}
	return &Planner{
		h:       h,
		scanner: NewScanner(h, NewClassifier(h, vocab)),
		logger:  logger,
	}
}

// NewAnalysis creates an empty analysis for pair whose balance score uses
// the given confidence penalty.
func NewAnalysis(pair docs.Pair, penalty float64) *Analysis {
	return &Analysis{
		StructuredPath:          pair.Structured,
		NarrativePath:           pair.Narrative,
		ItemsToMoveToStructured: []ContentItem{},
		ItemsToMoveToNarrative:  []ContentItem{},
		ItemsWellPlaced:         []ContentItem{},
		MissingDocuments:        []string{},
		penalty:                 penalty,
	}
}

// Analyze scans both documents and buckets every item. If either document
// is missing, the analysis only reports MissingDocuments. A malformed
// document degrades to an empty item set with a warning; Analyze never fails.
func (p *Planner) Analyze(pair docs.Pair) *Analysis {
	a := NewAnalysis(pair, p.h.ConfidencePenalty)

	if missing := pair.Missing(); len(missing) > 0 {
		a.MissingDocuments = missing
		p.logger.Warn("document pair incomplete", "dir", pair.Dir, "missing", missing)
		return a
	}

	var items []ContentItem

	doc, err := docs.LoadStructured(pair.Structured)
	if err != nil {
		a.Warnings = append(a.Warnings, fmt.Sprintf("structured document skipped: %v", err))
		p.logger.Warn("structured document unreadable, treating as empty", "path", pair.Structured, "error", err)
	} else {
		items = append(items, p.scanner.ScanStructured(doc)...)
	}

	text, err := docs.LoadNarrative(pair.Narrative)
	if err != nil {
		a.Warnings = append(a.Warnings, fmt.Sprintf("narrative document skipped: %v", err))
		p.logger.Warn("narrative document unreadable, treating as empty", "path", pair.Narrative, "error", err)
	} else {
		items = append(items, p.scanner.ScanNarrative(text)...)
	}

	for _, it := range items {
		switch {
		case !it.MoveRequired():
			a.ItemsWellPlaced = append(a.ItemsWellPlaced, it)
		case it.OptimalLocation == Structured:
			a.ItemsToMoveToStructured = append(a.ItemsToMoveToStructured, it)
		default:
			a.ItemsToMoveToNarrative = append(a.ItemsToMoveToNarrative, it)
		}
	}

	p.logger.Debug("analysis complete", "dir", pair.Dir, "summary", a.String())
	return a
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
