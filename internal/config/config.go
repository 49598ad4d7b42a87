// Package config loads amanfind configuration from defaults, the user config
// file, the project .amanfind.yaml and AMANFIND_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete amanfind configuration.
type Config struct {
	Version   int                 `yaml:"version" json:"version"`
	Search    SearchConfig        `yaml:"search" json:"search"`
	Scoring   ScoringConfig       `yaml:"scoring" json:"scoring"`
	Synonyms  map[string][]string `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
	Catalog   CatalogConfig       `yaml:"catalog" json:"catalog"`
	Telemetry TelemetryConfig     `yaml:"telemetry" json:"telemetry"`
	Watch     WatchConfig         `yaml:"watch" json:"watch"`
	LogLevel  string              `yaml:"log_level" json:"log_level"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	// DefaultLimit is the result count when --limit is not given.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit caps any requested limit (0 = no cap).
	MaxLimit int `yaml:"max_limit" json:"max_limit"`

	// Fuzzy enables typo-tolerant matching by default. A pointer so that an
	// explicit false in a file survives merging.
	Fuzzy *bool `yaml:"fuzzy,omitempty" json:"fuzzy,omitempty"`

	// MaxDistance is the edit-distance budget for fuzzy matching.
	MaxDistance int `yaml:"max_distance" json:"max_distance"`

	// SuggestLimit is the number of suggestions returned by `suggest`.
	SuggestLimit int `yaml:"suggest_limit" json:"suggest_limit"`

	// Workers bounds rebuild concurrency (0 = GOMAXPROCS).
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// FuzzyEnabled reports the effective fuzzy setting.
func (s SearchConfig) FuzzyEnabled() bool {
	return s.Fuzzy == nil || *s.Fuzzy
}

// ScoringConfig overrides ranking weights. Zero values keep the built-in
// weight.
type ScoringConfig struct {
	Exact        float64 `yaml:"exact,omitempty" json:"exact,omitempty"`
	Prefix       float64 `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Fuzzy        float64 `yaml:"fuzzy,omitempty" json:"fuzzy,omitempty"`
	Semantic     float64 `yaml:"semantic,omitempty" json:"semantic,omitempty"`
	Filter       float64 `yaml:"filter,omitempty" json:"filter,omitempty"`
	NameExact    float64 `yaml:"name_exact,omitempty" json:"name_exact,omitempty"`
	NamePrefix   float64 `yaml:"name_prefix,omitempty" json:"name_prefix,omitempty"`
	NameContains float64 `yaml:"name_contains,omitempty" json:"name_contains,omitempty"`
	View         float64 `yaml:"view,omitempty" json:"view,omitempty"`
	Download     float64 `yaml:"download,omitempty" json:"download,omitempty"`
	Select       float64 `yaml:"select,omitempty" json:"select,omitempty"`
	RecencyDays  int     `yaml:"recency_days,omitempty" json:"recency_days,omitempty"`
	RecencyPoint float64 `yaml:"recency_per_day,omitempty" json:"recency_per_day,omitempty"`
	PriorQuery   float64 `yaml:"prior_query,omitempty" json:"prior_query,omitempty"`
}

// CatalogConfig locates the SQLite catalog.
type CatalogConfig struct {
	Path string `yaml:"path" json:"path"`
}

// TelemetryConfig configures local query telemetry.
type TelemetryConfig struct {
	// Enabled can be switched off with an explicit false.
	Enabled         *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	HistoryCapacity int   `yaml:"history_capacity" json:"history_capacity"`
	TopTerms        int   `yaml:"top_terms" json:"top_terms"`
}

// IsEnabled reports the effective telemetry setting.
func (t TelemetryConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// WatchConfig configures `amanfind watch`.
type WatchConfig struct {
	Debounce     string `yaml:"debounce" json:"debounce"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// DebounceDuration parses Debounce, falling back to 500ms.
func (w WatchConfig) DebounceDuration() time.Duration {
	return parseDurationOr(w.Debounce, 500*time.Millisecond)
}

// PollDuration parses PollInterval, falling back to 2s.
func (w WatchConfig) PollDuration() time.Duration {
	return parseDurationOr(w.PollInterval, 2*time.Second)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

// ProjectConfigName is the per-directory config file name.
const ProjectConfigName = ".amanfind.yaml"

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
			MaxDistance:  2,
			SuggestLimit: 5,
		},
		Catalog: CatalogConfig{
			Path: DefaultCatalogPath(),
		},
		Telemetry: TelemetryConfig{
			HistoryCapacity: 200,
			TopTerms:        100,
		},
		Watch: WatchConfig{
			Debounce:     "500ms",
			PollInterval: "2s",
		},
		LogLevel: "info",
	}
}

// DefaultDataDir returns ~/.amanfind, or a temp-dir fallback.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanfind")
	}
	return filepath.Join(home, ".amanfind")
}

// DefaultCatalogPath returns the default catalog database path.
func DefaultCatalogPath() string {
	return filepath.Join(DefaultDataDir(), "catalog.db")
}

// GetUserConfigPath returns the user configuration file path:
//   - $XDG_CONFIG_HOME/amanfind/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amanfind/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanfind", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanfind", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanfind", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for dir. Precedence, lowest first:
//  1. Defaults
//  2. User config (~/.config/amanfind/config.yaml)
//  3. Project config (<dir>/.amanfind.yaml or .amanfind.yml)
//  4. Environment variables (AMANFIND_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	for _, name := range []string{ProjectConfigName, ".amanfind.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)

	// Zero is meaningful for these keys, so apply them whenever the file sets them.
	var explicit explicitZeroKeys
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if v := explicit.Search.MaxLimit; v != nil {
		c.Search.MaxLimit = *v
	}
	if v := explicit.Search.MaxDistance; v != nil {
		c.Search.MaxDistance = *v
	}
	return nil
}

// explicitZeroKeys records which settings a file spells out, for keys where
// 0 is a valid value rather than "unset" (max_limit: 0 removes the cap,
// max_distance: 0 means exact matching only).
type explicitZeroKeys struct {
	Search struct {
		MaxLimit    *int `yaml:"max_limit"`
		MaxDistance *int `yaml:"max_distance"`
	} `yaml:"search"`
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	setInt(&c.Search.DefaultLimit, other.Search.DefaultLimit)
	setInt(&c.Search.MaxLimit, other.Search.MaxLimit)
	setInt(&c.Search.MaxDistance, other.Search.MaxDistance)
	setInt(&c.Search.SuggestLimit, other.Search.SuggestLimit)
	setInt(&c.Search.Workers, other.Search.Workers)
	if other.Search.Fuzzy != nil {
		v := *other.Search.Fuzzy
		c.Search.Fuzzy = &v
	}

	s, o := &c.Scoring, other.Scoring
	setFloat(&s.Exact, o.Exact)
	setFloat(&s.Prefix, o.Prefix)
	setFloat(&s.Fuzzy, o.Fuzzy)
	setFloat(&s.Semantic, o.Semantic)
	setFloat(&s.Filter, o.Filter)
	setFloat(&s.NameExact, o.NameExact)
	setFloat(&s.NamePrefix, o.NamePrefix)
	setFloat(&s.NameContains, o.NameContains)
	setFloat(&s.View, o.View)
	setFloat(&s.Download, o.Download)
	setFloat(&s.Select, o.Select)
	setInt(&s.RecencyDays, o.RecencyDays)
	setFloat(&s.RecencyPoint, o.RecencyPoint)
	setFloat(&s.PriorQuery, o.PriorQuery)

	// Synonyms from later files add to earlier ones.
	for k, v := range other.Synonyms {
		if c.Synonyms == nil {
			c.Synonyms = make(map[string][]string)
		}
		c.Synonyms[k] = append(c.Synonyms[k], v...)
	}

	if other.Catalog.Path != "" {
		c.Catalog.Path = expandHome(other.Catalog.Path)
	}

	if other.Telemetry.Enabled != nil {
		v := *other.Telemetry.Enabled
		c.Telemetry.Enabled = &v
	}
	setInt(&c.Telemetry.HistoryCapacity, other.Telemetry.HistoryCapacity)
	setInt(&c.Telemetry.TopTerms, other.Telemetry.TopTerms)

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies AMANFIND_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMANFIND_CATALOG"); v != "" {
		c.Catalog.Path = expandHome(v)
	}
	if v := os.Getenv("AMANFIND_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("AMANFIND_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("AMANFIND_MAX_DISTANCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.MaxDistance = n
		}
	}
	if v := os.Getenv("AMANFIND_FUZZY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.Fuzzy = &b
		}
	}
	if v := os.Getenv("AMANFIND_TELEMETRY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Enabled = &b
		}
	}
	if v := os.Getenv("AMANFIND_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
}

// Validate returns an error describing the first invalid setting.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < 0 {
		return fmt.Errorf("search.max_limit must be non-negative, got %d", c.Search.MaxLimit)
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.MaxDistance < 0 || c.Search.MaxDistance > 4 {
		return fmt.Errorf("search.max_distance must be between 0 and 4, got %d", c.Search.MaxDistance)
	}
	if c.Search.SuggestLimit < 0 {
		return fmt.Errorf("search.suggest_limit must be non-negative, got %d", c.Search.SuggestLimit)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must be non-negative, got %d", c.Search.Workers)
	}
	if c.Scoring.RecencyDays < 0 {
		return fmt.Errorf("scoring.recency_days must be non-negative, got %d", c.Scoring.RecencyDays)
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("catalog.path is required")
	}
	for _, d := range []struct{ name, value string }{
		{"watch.debounce", c.Watch.Debounce},
		{"watch.poll_interval", c.Watch.PollInterval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s must be a duration like 500ms, got %q", d.name, d.value)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
