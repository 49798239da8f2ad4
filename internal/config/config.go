// Package config holds pairdoc's settings: document file names, the
// rebalancing heuristics, vocabulary extensions, logging, and history storage.
//
// Settings come from a TOML file (default ~/.pairdoc/config.toml). A missing
// file is not an error; every field falls back to Default(). A few values
// can be overridden from the environment for CI and MCP host setups.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DirName is the per-user settings directory under $HOME.
	DirName = ".pairdoc"
	// FileName is the settings file inside DirName.
	FileName = "config.toml"

	// DefaultStructuredFile is the conventional structured store name.
	DefaultStructuredFile = "context.json"
	// DefaultNarrativeFile is the conventional narrative document name.
	DefaultNarrativeFile = "CONTEXT.md"
)

// Files names the two companion documents inside a project directory.
type Files struct {
	Structured string `toml:"structured"`
	Narrative  string `toml:"narrative"`
}

// Heuristics are the tunable constants of the rebalancing engine.
type Heuristics struct {
	// MoveThreshold is the confidence a verdict must strictly exceed
	// before a misplaced item is flagged for moving.
	MoveThreshold float64 `toml:"move_threshold"`
	// ConfidencePenalty weighs the summed move confidence in the balance score.
	ConfidencePenalty float64 `toml:"confidence_penalty"`
	// NestedSizeThreshold is the rendered size (chars) above which a nested
	// mapping is evaluated as one aggregate candidate.
	NestedSizeThreshold int `toml:"nested_size_threshold"`
	// LongTextThreshold is the length (chars) above which a text value
	// counts as a narrative block.
	LongTextThreshold int `toml:"long_text_threshold"`
	// ProtectedKeys are top-level structured keys the scanner never evaluates.
	ProtectedKeys []string `toml:"protected_keys"`
}

// LogConfig controls the slog fanout.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DataDir string `toml:"data_dir"`
}

// Config is the full settings record.
type Config struct {
	Files      Files      `toml:"files"`
	Heuristics Heuristics `toml:"heuristics"`
	// Vocabulary adds keywords per category name (e.g. "technical").
	Vocabulary map[string][]string `toml:"vocabulary"`
	Log        LogConfig           `toml:"log"`
	History    HistoryConfig       `toml:"history"`
}

// DefaultHeuristics returns the reference engine constants.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		MoveThreshold:       0.6,
		ConfidencePenalty:   0.5,
		NestedSizeThreshold: 500,
		LongTextThreshold:   100,
		ProtectedKeys:       []string{"change_log"},
	}
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, DirName)
	return Config{
		Files: Files{
			Structured: DefaultStructuredFile,
			Narrative:  DefaultNarrativeFile,
		},
		Heuristics: DefaultHeuristics(),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		History: HistoryConfig{
			Enabled: true,
			DataDir: dir,
		},
	}
}

// DefaultPath returns ~/.pairdoc/config.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DirName, FileName)
}

// Load reads the TOML file at path on top of Default(), then applies
// environment overrides. An empty path means DefaultPath().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects heuristics the engine cannot work with.
func (c Config) Validate() error {
	h := c.Heuristics
	if h.MoveThreshold <= 0 || h.MoveThreshold > 1 {
		return fmt.Errorf("heuristics.move_threshold must be in (0,1], got %v", h.MoveThreshold)
	}
	if h.ConfidencePenalty <= 0 || h.ConfidencePenalty > 1 {
		return fmt.Errorf("heuristics.confidence_penalty must be in (0,1], got %v", h.ConfidencePenalty)
	}
	if h.NestedSizeThreshold <= 0 {
		return fmt.Errorf("heuristics.nested_size_threshold must be positive, got %d", h.NestedSizeThreshold)
	}
	if h.LongTextThreshold <= 0 {
		return fmt.Errorf("heuristics.long_text_threshold must be positive, got %d", h.LongTextThreshold)
	}
	if strings.TrimSpace(c.Files.Structured) == "" || strings.TrimSpace(c.Files.Narrative) == "" {
		return errors.New("files.structured and files.narrative must both be set")
	}
	if c.Files.Structured == c.Files.Narrative {
		return fmt.Errorf("files.structured and files.narrative must differ, both are %q", c.Files.Structured)
	}
	return nil
}

// IsProtected reports whether key is listed in ProtectedKeys.
func (h Heuristics) IsProtected(key string) bool {
	for _, k := range h.ProtectedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getEnv("PAIRDOC_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("PAIRDOC_LOG_FILE", cfg.Log.File)
	cfg.History.DataDir = getEnv("PAIRDOC_DATA_DIR", cfg.History.DataDir)
	if v := os.Getenv("PAIRDOC_HISTORY"); v != "" {
		cfg.History.Enabled = v != "off" && v != "false" && v != "0"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
