package balance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSectionHeading(t *testing.T) {
	tests := map[string]string{
		"next_steps":              "Next Steps",
		"coding_standards.naming": "Coding Standards Naming",
		"API":                     "Api",
		"vision":                  "Vision",
	}
	for in, want := range tests {
		if got := SectionHeading(in); got != want {
			t.Errorf("SectionHeading(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSectionKey(t *testing.T) {
	if got := SectionKey("Next  Steps"); got != "next_steps" {
		t.Errorf("SectionKey = %q, want next_steps", got)
	}
}

func TestToStructured(t *testing.T) {
	tests := []struct {
		name string
		text string
		want any
	}{
		{"bullets", "- Login page\n- Export to CSV\n", []any{"Login page", "Export to CSV"}},
		{"star bullets with blank line", "* one\n\n* two", []any{"one", "two"}},
		{"numbered", "1. first\n2) second", []any{"first", "second"}},
		{"mixed stays text", "- one\nplain line", "- one\nplain line"},
		{"prose", "  Just a sentence.  ", "Just a sentence."},
		{"empty", "\n\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ToStructured(tt.text)); diff != "" {
				t.Errorf("ToStructured mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToNarrative(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{"list", "next_steps", []any{"ship", "test"}, "## Next Steps\n\n- ship\n- test\n"},
		{"map", "coding_standards", map[string]any{"naming": "camel", "indent": "tabs"}, "## Coding Standards\n\n**indent**: tabs\n**naming**: camel\n"},
		{"scalar", "vision", "Be useful.", "## Vision\n\nBe useful.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToNarrative(tt.key, tt.value); got != tt.want {
				t.Errorf("ToNarrative =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestConvert_ListRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		list any
		want any
	}{
		{"plain strings", []any{"alpha", "beta", "gamma"}, []any{"alpha", "beta", "gamma"}},
		{"empty list", []any{}, []any{}},
		{"empty string slice", []string{}, []any{}},
		// Only single-line, trimmed elements round-trip exactly.
		{"padded element is trimmed", []any{"  padded  "}, []any{"padded"}},
		{"multi-line element becomes text", []any{"line1\nline2"}, "- line1\nline2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ToStructured(RenderBody(tt.list))); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToNarrative_EmptyList(t *testing.T) {
	if got := ToNarrative("tasks", []any{}); got != "## Tasks\n\n[]\n" {
		t.Errorf("ToNarrative = %q", got)
	}
}
