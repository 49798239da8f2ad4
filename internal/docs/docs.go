// Package docs handles on-disk I/O for a project's companion documents:
// the structured store (a JSON object) and the narrative document
// (ATX-headed markdown text).
//
// Format detection is explicit: Parse returns a tagged ParseResult instead of
// relying on a failed decode to signal "try the other format".
package docs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/HendryAvila/pairdoc/internal/config"
)

var (
	// ErrNotObject is returned when a JSON document's root is not an object.
	ErrNotObject = errors.New("structured document root is not a JSON object")
	// ErrInvalidText is returned when a document is not valid UTF-8.
	ErrInvalidText = errors.New("document is not valid UTF-8 text")
)

// Kind tags the outcome of Parse.
type Kind int

const (
	KindFailed Kind = iota
	KindStructured
	KindNarrative
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindNarrative:
		return "narrative"
	default:
		return "failed"
	}
}

// ParseResult is Parsed(Structured) | Parsed(Narrative) | ParseFailed.
// Exactly one of Structured / Narrative is meaningful, selected by Kind.
type ParseResult struct {
	Kind       Kind
	Structured map[string]any
	Narrative  string
	Err        error
}

// Parse sniffs data: a JSON object is structured, any other valid UTF-8 text
// is narrative, and invalid UTF-8 fails.
func Parse(data []byte) ParseResult {
	if !utf8.Valid(data) {
		return ParseResult{Kind: KindFailed, Err: ErrInvalidText}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		obj, err := decodeObject(trimmed)
		if err == nil {
			return ParseResult{Kind: KindStructured, Structured: obj}
		}
	}
	return ParseResult{Kind: KindNarrative, Narrative: string(data)}
}

// decodeObject decodes a JSON object, keeping numbers as json.Number so a
// rewrite does not alter their textual form.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decoding JSON: trailing data after top-level value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// Pair locates the two companion documents of one project directory.
type Pair struct {
	Dir        string `json:"dir"`
	Structured string `json:"structured_path"`
	Narrative  string `json:"narrative_path"`
}

// NewPair builds the pair for dir using the configured file names.
func NewPair(dir string, files config.Files) Pair {
	return Pair{
		Dir:        dir,
		Structured: filepath.Join(dir, files.Structured),
		Narrative:  filepath.Join(dir, files.Narrative),
	}
}

// Missing returns the base names of documents that do not exist.
func (p Pair) Missing() []string {
	var missing []string
	for _, path := range []string{p.Structured, p.Narrative} {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, filepath.Base(path))
		}
	}
	return missing
}

// LoadStructured reads and decodes the structured store.
func LoadStructured(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	res := Parse(data)
	switch res.Kind {
	case KindStructured:
		return res.Structured, nil
	case KindFailed:
		return nil, fmt.Errorf("parsing %s: %w", path, res.Err)
	default:
		// Re-decode for the precise reason (syntax error vs. non-object root).
		_, err := decodeObject(bytes.TrimSpace(data))
		if err == nil {
			err = ErrNotObject
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
}

// createTemp is a package-level variable so tests can inject write failures.
var createTemp = func(dir, pattern string) (tempFile, error) {
	return os.CreateTemp(dir, pattern)
}

// tempFile is the subset of *os.File used by writeFile.
type tempFile interface {
	io.Writer
	Close() error
	Name() string
}

// LoadNarrative reads the narrative document as text. Bytes that are not
// valid UTF-8 fail with ErrInvalidText.
func LoadNarrative(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("parsing %s: %w", path, ErrInvalidText)
	}
	return string(data), nil
}

// WriteStructured encodes doc as indented JSON (sorted keys) and writes it.
func WriteStructured(path string, doc map[string]any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling structured document: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// WriteNarrative writes the narrative text.
func WriteNarrative(path, content string) error {
	return writeFile(path, []byte(content))
}

// writeFile replaces path atomically: data goes to a temp file in the same
// directory, which is then renamed over path. The existing mode is kept.
func writeFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := createTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
