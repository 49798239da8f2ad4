package balance

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BatchOptions tunes Batch.
type BatchOptions struct {
	// DryRun plans every pair without writing.
	DryRun bool
	// Concurrency bounds how many pairs are processed at once. Values
	// below 2 process pairs one at a time, in order.
	Concurrency int
}

// PairOutcome is the batch result for one directory.
type PairOutcome struct {
	Dir     string       `json:"dir"`
	Score   float64      `json:"score"`
	Skipped bool         `json:"skipped"`
	Success bool         `json:"success"`
	Report  *ApplyReport `json:"report,omitempty"`
	Missing []string     `json:"missing_documents,omitempty"`
}

// BatchResult maps each input directory to whether it ended balanced.
// Pairs at or above the score threshold are skipped and count as success.
type BatchResult struct {
	Results   map[string]bool `json:"results"`
	Outcomes  []PairOutcome   `json:"outcomes"`
	Skipped   int             `json:"skipped"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// Batch rebalances every dir whose balance score is below minScore.
// Pairs are independent, so concurrent processing only changes ordering
// of side effects; Outcomes keeps the input order regardless.
func (e *Engine) Batch(dirs []string, minScore float64, opts BatchOptions) *BatchResult {
	outcomes := make([]PairOutcome, len(dirs))

	process := func(i int) {
		outcomes[i] = e.batchOne(dirs[i], minScore, opts.DryRun)
	}

	if opts.Concurrency < 2 {
		for i := range dirs {
			process(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i := range dirs {
			g.Go(func() error {
				process(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := &BatchResult{Results: make(map[string]bool, len(dirs)), Outcomes: outcomes}
	for _, o := range outcomes {
		res.Results[o.Dir] = o.Success
		switch {
		case o.Skipped:
			res.Skipped++
			res.Succeeded++
		case o.Success:
			res.Succeeded++
		default:
			res.Failed++
		}
	}

	e.logger.Info("batch finished",
		"pairs", len(dirs),
		"skipped", res.Skipped,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
	)
	return res
}

func (e *Engine) batchOne(dir string, minScore float64, dryRun bool) PairOutcome {
	a := e.Analyze(dir)
	o := PairOutcome{Dir: dir, Score: a.BalanceScore()}

	if a.HasMissing() {
		o.Missing = a.MissingDocuments
		e.logger.Warn("batch: pair incomplete", "dir", dir, "missing", a.MissingDocuments)
		return o
	}
	if o.Score >= minScore {
		o.Skipped = true
		o.Success = true
		e.logger.Debug("batch: pair already balanced", "dir", dir, "score", o.Score)
		return o
	}

	o.Report = e.executor.Apply(a, dryRun)
	o.Success = o.Report.Success
	return o
}

// Summary is a one-line label for reports.
func (o PairOutcome) Summary() string {
	switch {
	case len(o.Missing) > 0:
		return "missing " + strings.Join(o.Missing, ", ")
	case o.Skipped:
		return fmt.Sprintf("balanced (%.2f)", o.Score)
	case o.Success && o.Report != nil:
		return fmt.Sprintf("score %.2f, %d to structured, %d to narrative",
			o.Score, len(o.Report.MovedToStructured), len(o.Report.MovedToNarrative))
	case o.Report != nil:
		return fmt.Sprintf("failed (%s)", strings.Join(o.Report.Diagnostics, "; "))
	default:
		return "failed"
	}
}

// FormatBatch renders every outcome followed by the cumulative counts.
func FormatBatch(res *BatchResult, dryRun bool) string {
	var sb strings.Builder
	for _, o := range res.Outcomes {
		fmt.Fprintf(&sb, "- %s: %s\n", o.Dir, o.Summary())
	}
	fmt.Fprintf(&sb, "\n%d succeeded (%d already balanced), %d failed.\n", res.Succeeded, res.Skipped, res.Failed)
	if dryRun {
		sb.WriteString("Dry run: no files were changed.\n")
	}
	return sb.String()
}
