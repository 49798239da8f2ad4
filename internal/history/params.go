package history

import "github.com/HendryAvila/pairdoc/internal/balance"

// ParamsFor builds the run record for an analysis and, when the run applied
// or planned moves, its report. r may be nil for analyze-only runs.
func ParamsFor(kind Kind, dir string, a *balance.Analysis, r *balance.ApplyReport) RunParams {
	p := RunParams{
		Kind:         kind,
		ProjectDir:   dir,
		BalanceScore: a.BalanceScore(),
		ToStructured: len(a.ItemsToMoveToStructured),
		ToNarrative:  len(a.ItemsToMoveToNarrative),
		WellPlaced:   len(a.ItemsWellPlaced),
		DryRun:       true,
		Success:      !a.HasMissing(),
	}
	if r != nil {
		p.DryRun = r.DryRun
		p.Success = r.Success
		p.Backups = r.Backups
	}
	return p
}

// ParamsForOutcome builds the run record for one batch pair.
func ParamsForOutcome(o balance.PairOutcome, dryRun bool) RunParams {
	p := RunParams{
		Kind:         KindBatch,
		ProjectDir:   o.Dir,
		BalanceScore: o.Score,
		DryRun:       dryRun,
		Success:      o.Success,
	}
	if o.Report != nil {
		p.Backups = o.Report.Backups
		p.ToStructured = len(o.Report.MovedToStructured)
		p.ToNarrative = len(o.Report.MovedToNarrative)
	}
	return p
}
