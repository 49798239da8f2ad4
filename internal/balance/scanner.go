package balance

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/HendryAvila/pairdoc/internal/config"
)

// StructuredSectionNames are the narrative headings that may hold content
// better kept in the structured store (matched case-insensitively).
var StructuredSectionNames = []string{
	"Features", "Tasks", "Bugs", "Decisions", "Next Steps", "Configuration", "API",
}

var (
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	fenceLine   = regexp.MustCompile("^\\s*(```|~~~)")
)

// Section is one ATX-headed block of a narrative document. Start and End
// are byte offsets covering the heading line through the end of the body.
type Section struct {
	Level   int
	Heading string
	Body    string
	Start   int
	End     int

	bodyOff int
}

// Key is the structured-store key a section maps to.
func (s Section) Key() string {
	return SectionKey(s.Heading)
}

// ExtractSections splits text into heading-delimited sections. A body runs
// until the next heading of any level. Lines inside fenced code blocks are
// never treated as headings. Text before the first heading is not a section.
func ExtractSections(text string) []Section {
	var sections []Section
	var current *Section
	inFence := false
	offset := 0

	for offset < len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text)
		if end >= 0 {
			line = text[offset : offset+end]
			next = offset + end + 1
		} else {
			line = text[offset:]
		}

		if fenceLine.MatchString(line) {
			inFence = !inFence
		} else if !inFence {
			if m := headingLine.FindStringSubmatch(line); m != nil {
				if current != nil {
					current.End = offset
					current.Body = text[current.bodyOff:offset]
					sections = append(sections, *current)
				}
				current = &Section{Level: len(m[1]), Heading: strings.TrimSpace(m[2]), Start: offset, bodyOff: next}
			}
		}
		offset = next
	}

	if current != nil {
		current.End = len(text)
		current.Body = text[current.bodyOff:]
		sections = append(sections, *current)
	}

	for i := range sections {
		sections[i].Body = strings.Trim(sections[i].Body, "\n")
	}
	return sections
}

// FindSection returns the first section whose heading matches name
// case-insensitively.
func FindSection(text, name string) (Section, bool) {
	for _, s := range ExtractSections(text) {
		if strings.EqualFold(s.Heading, name) || s.Key() == SectionKey(name) {
			return s, true
		}
	}
	return Section{}, false
}

// RemoveSection cuts s (heading and body) out of text, collapsing the
// blank lines left behind.
func RemoveSection(text string, s Section) string {
	before := strings.TrimRight(text[:s.Start], "\n")
	after := strings.TrimLeft(text[s.End:], "\n")
	switch {
	case before == "":
		return after
	case after == "":
		return before + "\n"
	default:
		return before + "\n\n" + after
	}
}

// AppendSection appends a rendered section to text with one blank line
// of separation.
func AppendSection(text, section string) string {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return section
	}
	return trimmed + "\n\n" + section
}

// IsStructuredSectionName reports whether heading is one of
// StructuredSectionNames.
func IsStructuredSectionName(heading string) bool {
	for _, n := range StructuredSectionNames {
		if strings.EqualFold(strings.TrimSpace(heading), n) {
			return true
		}
	}
	return false
}

// IsStructured is the structuredness test: more than half of the body's
// non-blank lines must be list items (bullet, numbered, or checkbox).
func IsStructured(body string) bool {
	lines := nonBlankLines(body)
	if len(lines) == 0 {
		return false
	}
	listLines := 0
	for _, l := range lines {
		if isListLine(l) {
			listLines++
		}
	}
	return listLines*2 > len(lines)
}

// Scanner walks both documents and routes every content unit through the
// classifier.
type Scanner struct {
	h          config.Heuristics
	classifier *Classifier
}

// NewScanner creates a Scanner.
func NewScanner(h config.Heuristics, c *Classifier) *Scanner {
	return &Scanner{h: h, classifier: c}
}

// ScanStructured walks the structured store recursively. Leaves are
// classified directly; a nested mapping whose rendered size exceeds
// NestedSizeThreshold is also classified as one aggregate before its
// children are visited. Sequence elements are not descended into.
func (s *Scanner) ScanStructured(doc map[string]any) []ContentItem {
	var items []ContentItem
	s.walk("", doc, &items)
	return items
}

func (s *Scanner) walk(prefix string, m map[string]any, items *[]ContentItem) {
	for _, k := range sortedKeys(m) {
		if prefix == "" && s.h.IsProtected(k) {
			continue
		}
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		v := m[k]
		child, ok := v.(map[string]any)
		if !ok || len(child) == 0 {
			*items = append(*items, s.classifier.Classify(path, v, Structured))
			continue
		}
		if utf8.RuneCountInString(Stringify(child)) > s.h.NestedSizeThreshold {
			*items = append(*items, s.classifier.Classify(path, child, Structured))
		}
		s.walk(path, child, items)
	}
}

// ScanNarrative evaluates the structured-sounding sections of the narrative
// document. A section that fails the structuredness test is recorded as
// well placed whatever its raw verdict, so prose is never pushed into the
// structured store just because its heading sounds technical.
func (s *Scanner) ScanNarrative(text string) []ContentItem {
	var items []ContentItem
	for _, sec := range ExtractSections(text) {
		if !IsStructuredSectionName(sec.Heading) {
			continue
		}
		body := strings.TrimSpace(sec.Body)
		key := sec.Key()

		if IsStructured(body) {
			items = append(items, s.classifier.Classify(key, body, Narrative))
			continue
		}

		v := s.classifier.Score(key, body)
		confidence := v.Confidence
		if v.Optimal != Narrative {
			confidence = 1 - v.Confidence
		}
		items = append(items, NewContentItem(key, body, Narrative, Narrative, confidence, v.NarrativeType, s.h.MoveThreshold))
	}
	return items
}
