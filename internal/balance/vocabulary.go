package balance

import (
	"sort"
	"strings"
	"unicode"
)

// Category is a classification rationale tag.
type Category string

const (
	CategoryTechnical     Category = "technical"
	CategoryTracking      Category = "tracking"
	CategoryAIStructured  Category = "ai-structured"
	CategoryIdeation      Category = "ideation"
	CategoryContext       Category = "context"
	CategoryUserFocused   Category = "user-focused"
	CategoryDocumentation Category = "documentation"
)

// StructuredCategories lists the structured-side categories in tie-break
// precedence order.
var StructuredCategories = []Category{CategoryTechnical, CategoryTracking, CategoryAIStructured}

// NarrativeCategories lists the narrative-side categories in tie-break
// precedence order.
var NarrativeCategories = []Category{CategoryIdeation, CategoryContext, CategoryUserFocused, CategoryDocumentation}

// ParseCategory maps a name to a known Category.
func ParseCategory(name string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range append(append([]Category{}, StructuredCategories...), NarrativeCategories...) {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Side returns the document a category argues for.
func (c Category) Side() Location {
	for _, s := range StructuredCategories {
		if c == s {
			return Structured
		}
	}
	return Narrative
}

// Vocabulary maps each category to its keyword set. It is built once and
// treated as read-only; Extend returns a copy.
type Vocabulary struct {
	words map[Category]map[string]struct{}
}

// NewVocabulary builds a vocabulary from category -> keyword lists.
// Keywords are lowercased.
func NewVocabulary(tables map[Category][]string) Vocabulary {
	v := Vocabulary{words: make(map[Category]map[string]struct{}, len(tables))}
	for cat, list := range tables {
		set := make(map[string]struct{}, len(list))
		for _, w := range list {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				set[w] = struct{}{}
			}
		}
		v.words[cat] = set
	}
	return v
}

// Extend returns a new Vocabulary with extra keywords merged in.
// The receiver is left unchanged.
func (v Vocabulary) Extend(extra map[Category][]string) Vocabulary {
	merged := make(map[Category][]string, len(v.words))
	for cat := range v.words {
		merged[cat] = v.Keywords(cat)
	}
	for cat, list := range extra {
		merged[cat] = append(merged[cat], list...)
	}
	return NewVocabulary(merged)
}

// Keywords returns the sorted keywords of a category.
func (v Vocabulary) Keywords(c Category) []string {
	out := make([]string, 0, len(v.words[c]))
	for w := range v.words[c] {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Hits counts how many distinct keywords of c occur among tokens.
func (v Vocabulary) Hits(c Category, tokens map[string]struct{}) int {
	set := v.words[c]
	// Iterate the smaller set.
	if len(tokens) < len(set) {
		n := 0
		for tok := range tokens {
			if _, ok := set[tok]; ok {
				n++
			}
		}
		return n
	}
	n := 0
	for w := range set {
		if _, ok := tokens[w]; ok {
			n++
		}
	}
	return n
}

// Tokenize splits s into a set of lowercase alphanumeric tokens.
func Tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// DefaultVocabulary returns the built-in keyword tables.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(map[Category][]string{
		CategoryTechnical: {
			"api", "endpoint", "endpoints", "database", "schema", "config", "configuration",
			"version", "dependency", "dependencies", "framework", "library", "libraries",
			"stack", "build", "deploy", "deployment", "test", "tests", "testing", "lint",
			"coding", "standards", "naming", "convention", "conventions", "format",
			"port", "env", "environment", "server", "docker", "language", "runtime",
			"command", "commands", "script", "scripts", "path", "paths", "url",
		},
		CategoryTracking: {
			"status", "priority", "task", "tasks", "todo", "todos", "bug", "bugs",
			"issue", "issues", "milestone", "milestones", "progress", "deadline",
			"sprint", "feature", "features", "done", "blocked", "backlog", "roadmap",
			"metric", "metrics", "changelog", "decision", "decisions", "steps",
			"owner", "assignee", "due", "release", "releases",
		},
		CategoryAIStructured: {
			"ai", "prompt", "prompts", "model", "models", "tokens", "temperature",
			"instruction", "instructions", "rules", "guideline", "guidelines",
			"preference", "preferences", "agent", "agents", "assistant", "llm",
		},
		CategoryIdeation: {
			"idea", "ideas", "brainstorm", "vision", "concept", "concepts", "explore",
			"exploration", "possibility", "possibilities", "future", "inspiration",
			"imagine", "experiment", "experiments", "dream", "strategy",
		},
		CategoryContext: {
			"background", "history", "rationale", "motivation", "context", "reason",
			"reasons", "tradeoff", "tradeoffs", "lesson", "lessons", "learned",
			"origin", "tradition", "philosophy", "why",
		},
		CategoryUserFocused: {
			"user", "users", "customer", "customers", "client", "clients", "persona",
			"personas", "experience", "journey", "feedback", "story", "stories",
			"audience", "stakeholder", "stakeholders", "people",
		},
		CategoryDocumentation: {
			"description", "overview", "guide", "tutorial", "notes", "readme",
			"documentation", "explanation", "summary", "introduction", "walkthrough",
			"narrative", "prose",
		},
	})
}
