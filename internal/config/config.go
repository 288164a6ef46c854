// Package config loads layered configuration for rankfuse: built-in
// defaults, a project .rankfuse.yaml, then RANKFUSE_* environment
// variables, highest precedence last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/errors"
	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

// Preset names select a predefined fusion weight profile.
const (
	PresetDefault         = "default"
	PresetCodeSearch      = "code_search"
	PresetNaturalLanguage = "natural_language"
)

// Config is the complete rankfuse configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures the BM25 index and persistence.
type IndexConfig struct {
	// Path is where the SQLite index lives, relative to the project root.
	Path string `yaml:"path" json:"path"`

	// K1 is the BM25 term frequency saturation parameter.
	K1 float64 `yaml:"k1" json:"k1"`

	// B is the BM25 length normalization parameter.
	B float64 `yaml:"b" json:"b"`

	// ChunkSize is the number of lines per indexed chunk.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// Include restricts indexing to these glob patterns. Empty means all.
	Include []string `yaml:"include" json:"include"`

	// Exclude skips matching paths during indexing.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SearchConfig configures fusion weights and result limits.
// Precedence: built-in preset < .rankfuse.yaml < RANKFUSE_* env vars.
type SearchConfig struct {
	// Preset selects a base fusion profile: default, code_search, or
	// natural_language. Explicit weights below override the preset.
	Preset string `yaml:"preset" json:"preset"`

	TextWeight   float64 `yaml:"text_weight" json:"text_weight"`
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`
	SymbolWeight float64 `yaml:"symbol_weight" json:"symbol_weight"`
	FuzzyWeight  float64 `yaml:"fuzzy_weight" json:"fuzzy_weight"`

	// RRFConstant is the RRF smoothing parameter k. Default: 60.
	RRFConstant float64 `yaml:"rrf_constant" json:"rrf_constant"`

	// HybridBoost multiplies scores of results found by multiple backends.
	HybridBoost float64 `yaml:"hybrid_boost" json:"hybrid_boost"`

	// MaxResults caps the fused result list.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// CacheSize is the query result LRU capacity. Zero disables caching.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:      ".rankfuse/index.db",
			K1:        bm25.DefaultK1,
			B:         bm25.DefaultB,
			ChunkSize: 40,
			Exclude: []string{
				".git", "node_modules", "vendor", "dist", "build",
				".rankfuse",
			},
		},
		Search: SearchConfig{
			Preset:    PresetDefault,
			CacheSize: 128,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration for a project directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile merges .rankfuse.yaml (or .yml) from dir if present.
// A missing config file is fine; defaults apply.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".rankfuse.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".rankfuse.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Newf(errors.ErrCodeConfigNotFound,
			"failed to read config file %s: %v", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"failed to parse config file %s: %v", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.K1 != 0 {
		c.Index.K1 = other.Index.K1
	}
	if other.Index.B != 0 {
		c.Index.B = other.Index.B
	}
	if other.Index.ChunkSize != 0 {
		c.Index.ChunkSize = other.Index.ChunkSize
	}
	if len(other.Index.Include) > 0 {
		c.Index.Include = other.Index.Include
	}
	if len(other.Index.Exclude) > 0 {
		// Merge with defaults rather than replace.
		c.Index.Exclude = append(c.Index.Exclude, other.Index.Exclude...)
	}

	if other.Search.Preset != "" {
		c.Search.Preset = other.Search.Preset
	}
	if other.Search.TextWeight != 0 {
		c.Search.TextWeight = other.Search.TextWeight
	}
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.SymbolWeight != 0 {
		c.Search.SymbolWeight = other.Search.SymbolWeight
	}
	if other.Search.FuzzyWeight != 0 {
		c.Search.FuzzyWeight = other.Search.FuzzyWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.HybridBoost != 0 {
		c.Search.HybridBoost = other.Search.HybridBoost
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies RANKFUSE_* environment variables, which take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RANKFUSE_PRESET"); v != "" {
		c.Search.Preset = v
	}
	if v := os.Getenv("RANKFUSE_TEXT_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Search.TextWeight = w
		}
	}
	if v := os.Getenv("RANKFUSE_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("RANKFUSE_SYMBOL_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Search.SymbolWeight = w
		}
	}
	if v := os.Getenv("RANKFUSE_FUZZY_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Search.FuzzyWeight = w
		}
	}
	if v := os.Getenv("RANKFUSE_RRF_CONSTANT"); v != "" {
		if k, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("RANKFUSE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("RANKFUSE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Search.Preset {
	case "", PresetDefault, PresetCodeSearch, PresetNaturalLanguage:
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"search.preset must be %q, %q, or %q, got %q",
			PresetDefault, PresetCodeSearch, PresetNaturalLanguage, c.Search.Preset)
	}

	for name, w := range map[string]float64{
		"text_weight":   c.Search.TextWeight,
		"vector_weight": c.Search.VectorWeight,
		"symbol_weight": c.Search.SymbolWeight,
		"fuzzy_weight":  c.Search.FuzzyWeight,
	} {
		if w < 0 {
			return errors.Newf(errors.ErrCodeConfigInvalid,
				"search.%s must be non-negative, got %f", name, w)
		}
	}

	if c.Search.RRFConstant < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"search.rrf_constant must be non-negative, got %f", c.Search.RRFConstant)
	}
	if c.Search.MaxResults < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	if c.Index.K1 < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"index.k1 must be non-negative, got %f", c.Index.K1)
	}
	if c.Index.B < 0 || c.Index.B > 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"index.b must be between 0 and 1, got %f", c.Index.B)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}

// FusionConfig builds the fusion configuration: preset base, then any
// explicit weight or parameter overrides from file and environment.
func (c *Config) FusionConfig() fusion.Config {
	var fc fusion.Config
	switch c.Search.Preset {
	case PresetCodeSearch:
		fc = fusion.CodeSearchConfig()
	case PresetNaturalLanguage:
		fc = fusion.NaturalLanguageConfig()
	default:
		fc = fusion.DefaultConfig()
	}

	if c.Search.TextWeight != 0 {
		fc.TextWeight = c.Search.TextWeight
	}
	if c.Search.VectorWeight != 0 {
		fc.VectorWeight = c.Search.VectorWeight
	}
	if c.Search.SymbolWeight != 0 {
		fc.SymbolWeight = c.Search.SymbolWeight
	}
	if c.Search.FuzzyWeight != 0 {
		fc.FuzzyWeight = c.Search.FuzzyWeight
	}
	if c.Search.RRFConstant != 0 {
		fc.RRFK = c.Search.RRFConstant
	}
	if c.Search.HybridBoost != 0 {
		fc.HybridBoost = c.Search.HybridBoost
	}
	if c.Search.MaxResults != 0 {
		fc.MaxResults = c.Search.MaxResults
	}
	return fc
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"failed to write config file %s: %v", path, err)
	}
	return nil
}

// FindProjectRoot walks upward from startDir looking for a .git directory
// or a .rankfuse.yaml. Falls back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".rankfuse.yaml")) ||
			fileExists(filepath.Join(currentDir, ".rankfuse.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
