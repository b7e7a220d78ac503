package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type SourceType = string

var (
	RSS  = SourceType("rss")
	File = SourceType("file")
)

const baseCfgPath = "ainews/config.toml"

//go:embed default.toml
var defaultTOML string

// Validation errors.
var (
	ErrNoSources              = errors.New("at least one source is required")
	ErrNoEnabledSources       = errors.New("at least one source must be enabled")
	ErrNoKeywords             = errors.New("at least one keyword is required")
	ErrSourceMissingName      = errors.New("source name is required")
	ErrSourceMissingURLOrFile = errors.New("either url or file is required")
	ErrUnknownSourceType      = errors.New("unknown source type")
	ErrUnknownFilter          = errors.New("unknown filter")
	ErrInvalidTimeout         = errors.New("fetch.timeout must be positive")
	ErrInvalidDelay           = errors.New("fetch.delay must be non-negative")
	ErrInvalidLimits          = errors.New("limits must be positive")
	ErrMissingOutputPath      = errors.New("output_path is required")
)

type Config struct {
	Sources     []Source          `toml:"sources" yaml:"sources"`
	Keywords    []string          `toml:"keywords" yaml:"keywords"`
	Filters     map[string]Filter `toml:"filters" yaml:"filters"` // Named filters that sources can reference
	Fetch       FetchConfig       `toml:"fetch" yaml:"fetch"`
	Limits      Limits            `toml:"limits" yaml:"limits"`
	OutputPath  string            `toml:"output_path" yaml:"output_path"`
	HistoryPath string            `toml:"history_path" yaml:"history_path"` // Empty disables the run history
}

// Source is one configured feed.
type Source struct {
	Name        string     `toml:"name" yaml:"name"`
	URL         string     `toml:"url" yaml:"url"`
	Category    string     `toml:"category" yaml:"category"`
	T           SourceType `toml:"type" yaml:"type"`       // "rss" (default) or "file"
	File        string     `toml:"file" yaml:"file"`       // Local feed path for "file" sources
	Enabled     *bool      `toml:"enabled" yaml:"enabled"` // Defaults to true if not set
	FilterNames []string   `toml:"filters" yaml:"filters"`
}

// Filter defines extra rules applied to entries that already matched a keyword
type Filter struct {
	MinLength         int      `toml:"min_length" yaml:"min_length"`                 // Minimum character count (0 = no limit)
	MinWords          int      `toml:"min_words" yaml:"min_words"`                   // Minimum word count (0 = no limit)
	ExcludePatterns   []string `toml:"exclude_patterns" yaml:"exclude_patterns"`     // Regex patterns to exclude
	RequireParagraphs bool     `toml:"require_paragraphs" yaml:"require_paragraphs"` // Must have multiple lines/paragraphs
}

type FetchConfig struct {
	Timeout      time.Duration `toml:"timeout" yaml:"timeout"`
	Delay        time.Duration `toml:"delay" yaml:"delay"` // Pause between two sources
	UserAgent    string        `toml:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `toml:"max_body_bytes" yaml:"max_body_bytes"`
}

type Limits struct {
	EntriesPerFeed int `toml:"entries_per_feed" yaml:"entries_per_feed"`
	MaxArticles    int `toml:"max_articles" yaml:"max_articles"`
	SummaryLength  int `toml:"summary_length" yaml:"summary_length"`
}

// IsEnabled returns true if the source is enabled (defaults to true if not explicitly set)
func (s Source) IsEnabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// Type resolves the source type, inferring "file" when only a path is set.
func (s Source) Type() SourceType {
	if s.T != "" {
		return s.T
	}
	if s.File != "" && s.URL == "" {
		return File
	}
	return RSS
}

// Location is the URL or file path the source is read from.
func (s Source) Location() string {
	if s.Type() == File {
		return s.File
	}
	return s.URL
}

// Default returns the embedded configuration.
func Default() Config {
	var conf Config
	if _, err := toml.Decode(defaultTOML, &conf); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %s", err))
	}
	return conf
}

// Read decodes the file at path over the defaults. The format is picked by
// extension: .yaml/.yml are YAML, everything else TOML. Lists given in the
// file replace the default lists instead of being merged element-wise.
func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}

	defaults := conf
	conf.Sources, conf.Keywords = nil, nil
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(dat, &conf)
	default:
		_, err = toml.Decode(string(dat), &conf)
	}
	if err != nil {
		return defaults, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	if conf.Sources == nil {
		conf.Sources = defaults.Sources
	}
	if conf.Keywords == nil {
		conf.Keywords = defaults.Keywords
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := filepath.Dir(cfgPath)
	err = os.MkdirAll(basePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	return nil
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return filepath.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", baseCfgPath)
	}

	return ""
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error

	if len(c.Sources) == 0 {
		errs = append(errs, ErrNoSources)
	}

	enabled := 0
	for i, s := range c.Sources {
		if s.IsEnabled() {
			enabled++
		}
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: %w", i, ErrSourceMissingName))
		}
		switch s.Type() {
		case RSS, File:
		default:
			errs = append(errs, fmt.Errorf("sources[%d] %q: %w: %s", i, s.Name, ErrUnknownSourceType, s.T))
		}
		if s.Location() == "" {
			errs = append(errs, fmt.Errorf("sources[%d] %q: %w", i, s.Name, ErrSourceMissingURLOrFile))
		}
		for _, name := range s.FilterNames {
			if _, ok := c.Filters[name]; !ok {
				errs = append(errs, fmt.Errorf("sources[%d] %q: %w: %s", i, s.Name, ErrUnknownFilter, name))
			}
		}
	}
	if len(c.Sources) > 0 && enabled == 0 {
		errs = append(errs, ErrNoEnabledSources)
	}

	if len(c.Keywords) == 0 {
		errs = append(errs, ErrNoKeywords)
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.Fetch.Delay < 0 {
		errs = append(errs, ErrInvalidDelay)
	}
	if c.Limits.EntriesPerFeed <= 0 || c.Limits.MaxArticles <= 0 || c.Limits.SummaryLength <= 0 {
		errs = append(errs, ErrInvalidLimits)
	}
	if c.OutputPath == "" {
		errs = append(errs, ErrMissingOutputPath)
	}

	return errors.Join(errs...)
}

// SourceTypes lists the distinct types of enabled sources.
func (c Config) SourceTypes() []SourceType {
	seen := make(map[SourceType]bool)
	var types []SourceType
	for _, s := range c.Sources {
		if !s.IsEnabled() || seen[s.Type()] {
			continue
		}
		seen[s.Type()] = true
		types = append(types, s.Type())
	}
	return types
}
