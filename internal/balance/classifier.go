package balance

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/HendryAvila/pairdoc/internal/config"
)

// Structural and lexical signal weights.
const (
	weightKeyKeyword      = 2.0
	weightTextKeyword     = 1.0
	weightMultiKeyMapping = 2.0
	weightSequence        = 1.5
	weightCoreField       = 3.0
	weightQuantitative    = 1.5
	weightPrefixMarker    = 2.5
	weightLongText        = 2.0
	weightModalWords      = 1.5
	weightNarrativeMarker = 3.0
	weightNarrativeRegex  = 1.0

	neutralConfidence = 0.5
)

// coreFields are leaf key names that always belong in the structured store.
var coreFields = map[string]bool{
	"status":   true,
	"priority": true,
	"version":  true,
	"config":   true,
}

var quantitativeWords = []string{"score", "count", "percent", "rate"}

var modalWords = []string{"why", "how", "because", "should", "could", "would"}

// prefixMarkers are key substrings typical of machine-oriented settings.
var prefixMarkers = []string{"ai_", "coding_", "api_"}

// narrativeMarkers are key substrings typical of prose sections.
var narrativeMarkers = []string{"description", "notes", "vision", "story", "concept"}

// narrativePatterns each add weightNarrativeRegex when they match once or more.
var narrativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(user|customer|client)s?\b`),
	regexp.MustCompile(`\b(should|could|would|might|must)\b`),
	regexp.MustCompile(`\b(vision|goals?|purpose|mission)\b`),
}

// Verdict is the classifier's raw scoring, kept for reports and tests.
type Verdict struct {
	StructuredScore float64
	NarrativeScore  float64
	Optimal         Location
	Confidence      float64
	ContentType     Category
	// NarrativeType is the dominant narrative-side category whatever the
	// optimal location; documentation when no narrative keyword hits.
	NarrativeType Category
}

// Classifier scores content against the two documents.
type Classifier struct {
	h     config.Heuristics
	vocab Vocabulary
}

// NewClassifier creates a classifier over the given heuristics and vocabulary.
func NewClassifier(h config.Heuristics, vocab Vocabulary) *Classifier {
	return &Classifier{h: h, vocab: vocab}
}

// Classify returns the placement verdict for one piece of content as a
// ContentItem with MoveRequired derived against the move threshold.
func (c *Classifier) Classify(key string, value any, current Location) ContentItem {
	v := c.Score(key, value)
	return NewContentItem(key, value, current, v.Optimal, v.Confidence, v.ContentType, c.h.MoveThreshold)
}

// Score computes both affinity scores and the resulting verdict.
func (c *Classifier) Score(key string, value any) Verdict {
	text := strings.ToLower(Stringify(value))
	lowerKey := strings.ToLower(key)
	keyTokens := Tokenize(lowerKey)
	textTokens := Tokenize(text)

	structuredScore, structuredHits := c.sideScore(StructuredCategories, keyTokens, textTokens)
	narrativeScore, narrativeHits := c.sideScore(NarrativeCategories, keyTokens, textTokens)

	// Structured-side signals.
	if m, ok := value.(map[string]any); ok && len(m) > 1 {
		structuredScore += weightMultiKeyMapping
	}
	if isSequence(value) {
		structuredScore += weightSequence
	}
	if coreFields[leafKey(lowerKey)] {
		structuredScore += weightCoreField
	}
	if containsAnyToken(textTokens, quantitativeWords) {
		structuredScore += weightQuantitative
	}
	if containsAny(lowerKey, prefixMarkers) {
		structuredScore += weightPrefixMarker
	}

	// Narrative-side signals.
	if s, ok := value.(string); ok && utf8.RuneCountInString(s) > c.h.LongTextThreshold {
		narrativeScore += weightLongText
	}
	if containsAnyToken(textTokens, modalWords) {
		narrativeScore += weightModalWords
	}
	if containsAny(lowerKey, narrativeMarkers) {
		narrativeScore += weightNarrativeMarker
	}
	for _, re := range narrativePatterns {
		if re.MatchString(text) {
			narrativeScore += weightNarrativeRegex
		}
	}

	v := Verdict{
		StructuredScore: structuredScore,
		NarrativeScore:  narrativeScore,
		NarrativeType:   dominantCategory(NarrativeCategories, narrativeHits, CategoryDocumentation),
	}
	if structuredScore > narrativeScore {
		v.Optimal = Structured
		v.ContentType = dominantCategory(StructuredCategories, structuredHits, CategoryTechnical)
	} else {
		v.Optimal = Narrative
		v.ContentType = dominantCategory(NarrativeCategories, narrativeHits, CategoryContext)
	}

	total := structuredScore + narrativeScore
	switch {
	case total == 0:
		v.Confidence = neutralConfidence
	case v.Optimal == Structured:
		v.Confidence = structuredScore / total
	default:
		v.Confidence = narrativeScore / total
	}
	return v
}

// sideScore adds keyword weights for each category of one side and returns
// the per-category hit counts used to pick the content type.
func (c *Classifier) sideScore(cats []Category, keyTokens, textTokens map[string]struct{}) (float64, map[Category]int) {
	var score float64
	hits := make(map[Category]int, len(cats))
	for _, cat := range cats {
		kh := c.vocab.Hits(cat, keyTokens)
		th := c.vocab.Hits(cat, textTokens)
		score += weightKeyKeyword*float64(kh) + weightTextKeyword*float64(th)
		hits[cat] = kh + th
	}
	return score, hits
}

// dominantCategory picks the category with the most hits; ties go to the
// earlier category in cats. With no hits at all, fallback is returned.
func dominantCategory(cats []Category, hits map[Category]int, fallback Category) Category {
	best, bestHits := fallback, 0
	for _, cat := range cats {
		if hits[cat] > bestHits {
			best, bestHits = cat, hits[cat]
		}
	}
	return best
}

// leafKey returns the last segment of a dotted key path.
func leafKey(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return key
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAnyToken(tokens map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}
