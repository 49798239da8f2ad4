// Package balance is the content rebalancing engine.
//
// It inspects a project's structured store and narrative document, decides
// for every piece of content which of the two documents suits it, and can
// move misplaced content between them with backups and an audit entry.
//
// Flow: scanners -> classifier (per item) -> planner (buckets + balance
// score) -> executor (dry-run report, or backup and rewrite both documents).
package balance

import (
	"encoding/json"
	"fmt"
)

// Location identifies one of the two companion documents.
type Location string

const (
	Structured Location = "structured"
	Narrative  Location = "narrative"
)

// Valid reports whether l is one of the two known locations.
func (l Location) Valid() bool {
	return l == Structured || l == Narrative
}

// ContentItem is one classified unit of content.
//
// MoveRequired is derived from the other fields at construction time and
// cannot be set independently; build items with NewContentItem.
type ContentItem struct {
	Key             string   `json:"key"`
	Value           any      `json:"value"`
	CurrentLocation Location `json:"current_location"`
	OptimalLocation Location `json:"optimal_location"`
	Confidence      float64  `json:"confidence"`
	ContentType     Category `json:"content_type"`

	moveRequired bool
}

// NewContentItem builds an item and derives MoveRequired: the item is
// misplaced and the confidence strictly exceeds threshold.
func NewContentItem(key string, value any, current, optimal Location, confidence float64, ct Category, threshold float64) ContentItem {
	return ContentItem{
		Key:             key,
		Value:           value,
		CurrentLocation: current,
		OptimalLocation: optimal,
		Confidence:      confidence,
		ContentType:     ct,
		moveRequired:    current != optimal && confidence > threshold,
	}
}

// MoveRequired reports whether the item must move to OptimalLocation.
func (c ContentItem) MoveRequired() bool {
	return c.moveRequired
}

// MarshalJSON includes the derived move_required flag.
func (c ContentItem) MarshalJSON() ([]byte, error) {
	type plain ContentItem
	return json.Marshal(struct {
		plain
		MoveRequired bool `json:"move_required"`
	}{plain(c), c.moveRequired})
}

// Analysis is the result of analyzing one document pair.
type Analysis struct {
	StructuredPath          string        `json:"structured_path"`
	NarrativePath           string        `json:"narrative_path"`
	ItemsToMoveToStructured []ContentItem `json:"items_to_move_to_structured"`
	ItemsToMoveToNarrative  []ContentItem `json:"items_to_move_to_narrative"`
	ItemsWellPlaced         []ContentItem `json:"items_well_placed"`
	MissingDocuments        []string      `json:"missing_documents"`
	// Warnings lists degraded-scan diagnostics (malformed documents).
	Warnings []string `json:"warnings,omitempty"`

	penalty float64
}

// TotalItems is the number of items across all three buckets.
func (a *Analysis) TotalItems() int {
	return len(a.ItemsToMoveToStructured) + len(a.ItemsToMoveToNarrative) + len(a.ItemsWellPlaced)
}

// MoveCount is the number of items that need to move.
func (a *Analysis) MoveCount() int {
	return len(a.ItemsToMoveToStructured) + len(a.ItemsToMoveToNarrative)
}

// HasMissing reports whether either document is absent.
func (a *Analysis) HasMissing() bool {
	return len(a.MissingDocuments) > 0
}

// BalanceScore is recomputed from the buckets on every call.
func (a *Analysis) BalanceScore() float64 {
	return ComputeBalanceScore(a.ItemsToMoveToStructured, a.ItemsToMoveToNarrative, a.ItemsWellPlaced, a.penalty)
}

// MarshalJSON includes the derived balance_score.
func (a *Analysis) MarshalJSON() ([]byte, error) {
	type plain Analysis
	return json.Marshal(struct {
		*plain
		BalanceScore float64 `json:"balance_score"`
	}{(*plain)(a), a.BalanceScore()})
}

// String is a one-line summary for logs.
func (a *Analysis) String() string {
	if a.HasMissing() {
		return fmt.Sprintf("missing documents: %v", a.MissingDocuments)
	}
	return fmt.Sprintf("score=%.2f to_structured=%d to_narrative=%d well_placed=%d",
		a.BalanceScore(), len(a.ItemsToMoveToStructured), len(a.ItemsToMoveToNarrative), len(a.ItemsWellPlaced))
}

// ComputeBalanceScore is well_placed_ratio - penalty * move_confidence_ratio,
// clamped to [0,1]. A pair with no items is perfectly balanced.
func ComputeBalanceScore(toStructured, toNarrative, wellPlaced []ContentItem, penalty float64) float64 {
	total := len(toStructured) + len(toNarrative) + len(wellPlaced)
	if total == 0 {
		return 1.0
	}

	var moveConfidence float64
	for _, it := range toStructured {
		moveConfidence += it.Confidence
	}
	for _, it := range toNarrative {
		moveConfidence += it.Confidence
	}

	n := float64(total)
	score := float64(len(wellPlaced))/n - penalty*(moveConfidence/n)
	return clamp01(score)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
