package balance

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	bulletLine   = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
	checkboxLine = regexp.MustCompile(`^\s*[-*+]\s+\[[ xX]\]\s+`)
)

// SectionHeading renders a key path as a title-cased heading:
// "coding_standards.naming" -> "Coding Standards Naming".
func SectionHeading(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '.' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// SectionKey is the inverse naming used for narrative sections:
// "Next Steps" -> "next_steps".
func SectionKey(heading string) string {
	return strings.Join(strings.Fields(strings.ToLower(heading)), "_")
}

// ToNarrative renders a structured value as a "## Heading" section.
// Sequences become bullets, mappings become bold-labeled lines, scalars
// are written as-is.
func ToNarrative(key string, v any) string {
	return fmt.Sprintf("## %s\n\n%s\n", SectionHeading(key), RenderBody(v))
}

// emptyListBody is the narrative body of an empty sequence.
const emptyListBody = "[]"

// RenderBody renders a value without a heading.
//
// Sequences round-trip through ToStructured when every element is a
// single-line string without surrounding whitespace. Padded elements come
// back trimmed; an element spanning lines turns the whole body into text.
func RenderBody(v any) string {
	var lines []string
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return emptyListBody
		}
		for _, e := range t {
			lines = append(lines, "- "+Stringify(e))
		}
	case []string:
		if len(t) == 0 {
			return emptyListBody
		}
		for _, e := range t {
			lines = append(lines, "- "+e)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			lines = append(lines, fmt.Sprintf("**%s**: %s", k, Stringify(t[k])))
		}
	default:
		return Stringify(v)
	}
	return strings.Join(lines, "\n")
}

// ToStructured converts a narrative block to a structured value. Uniform
// bullet or numbered lines become a sequence of their text; anything else
// is kept verbatim (trimmed) as one text scalar.
func ToStructured(text string) any {
	if strings.TrimSpace(text) == emptyListBody {
		return []any{}
	}
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return strings.TrimSpace(text)
	}
	if items, ok := uniformList(lines, bulletLine); ok {
		return items
	}
	if items, ok := uniformList(lines, numberedLine); ok {
		return items
	}
	return strings.TrimSpace(text)
}

func uniformList(lines []string, re *regexp.Regexp) ([]any, bool) {
	items := make([]any, 0, len(lines))
	for _, l := range lines {
		m := re.FindStringSubmatch(l)
		if m == nil {
			return nil, false
		}
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items, true
}

// isListLine reports whether a line is a bullet, numbered, or checkbox item.
func isListLine(line string) bool {
	return bulletLine.MatchString(line) || numberedLine.MatchString(line) || checkboxLine.MatchString(line)
}

func nonBlankLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
