// Package config loads mirrorjump's YAML config file and lets CLI flags
// override it, adapted from the teacher's internal/config: same
// gopkg.in/yaml.v3-backed Config/DefaultConfig/Load/FindConfigFile shape,
// renamed and regrouped around the speed-test engine instead of the sync
// scheduler.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// Config is the top-level configuration file shape.
type Config struct {
	Engine  EngineConfig            `yaml:"engine"`
	Output  OutputConfig            `yaml:"output"`
	Targets map[string]TargetConfig `yaml:"targets"`
}

// EngineConfig mirrors every tunable in spec §6's flag table, in the
// YAML-friendly units a config file author writes (durations as Go
// duration strings, not time.Duration).
type EngineConfig struct {
	Protocols []string `yaml:"protocols"`

	PerMirrorTimeout string  `yaml:"per_mirror_timeout"`
	MinPerMirror     string  `yaml:"min_per_mirror"`
	MaxPerMirror     string  `yaml:"max_per_mirror"`
	MinBytesPerMirror int64  `yaml:"min_bytes_per_mirror"`
	Eps              float64 `yaml:"eps"`
	EpsChecks        int     `yaml:"eps_checks"`

	Concurrency             int `yaml:"concurrency"`
	ConcurrencyForUnlabeled int `yaml:"concurrency_for_unlabeled"`

	MaxJumps                     int    `yaml:"max_jumps"`
	EntryCountry                 string `yaml:"entry_country"`
	CountryNeighborsPerCountry   int    `yaml:"country_neighbors_per_country"`
	CountryTestMirrorsPerCountry int    `yaml:"country_test_mirrors_per_country"`
	TopMirrorsNumberToRetest     int    `yaml:"top_mirrors_number_to_retest"`

	DisableUntestedFallback bool `yaml:"disable_untested_fallback"`
}

// OutputConfig controls where and how ranked results are written.
type OutputConfig struct {
	OutFile         string `yaml:"out_file"`
	Target          string `yaml:"target"`
	CompareFreshness bool  `yaml:"compare_freshness"`
	ReferenceDBDir  string `yaml:"reference_db_dir"`
}

// TargetConfig is the raw per-target YAML block, parsed generically the
// same way ProviderConfig was — a target decides its own shape
// (e.g. a directory-listing target needs a listing URL and test path).
type TargetConfig map[string]interface{}

// DefaultConfig returns a Config with the engine defaults from
// speedtest.DefaultConfig rendered as YAML-friendly duration strings.
func DefaultConfig() *Config {
	d := speedtest.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			Protocols:                    nil,
			PerMirrorTimeout:             d.PerMirrorTimeout.String(),
			MinPerMirror:                 d.MinPerMirror.String(),
			MaxPerMirror:                 d.MaxPerMirror.String(),
			MinBytesPerMirror:            d.MinBytesPerMirror,
			Eps:                          d.Eps,
			EpsChecks:                    d.EpsChecks,
			Concurrency:                  d.Concurrency,
			ConcurrencyForUnlabeled:      d.ConcurrencyForUnlabeled,
			MaxJumps:                     d.MaxJumps,
			EntryCountry:                 d.EntryCountry,
			CountryNeighborsPerCountry:   d.CountryNeighborsPerCountry,
			CountryTestMirrorsPerCountry: d.CountryTestMirrorsPerCountry,
			TopMirrorsNumberToRetest:     d.TopMirrorsNumberToRetest,
		},
		Output: OutputConfig{
			Target: "archlinux",
		},
		Targets: make(map[string]TargetConfig),
	}
}

// Load reads a config file from the given path, starting from the
// defaults so an incomplete file still produces a valid Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations.
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"mirrorjump.yaml",
		"/etc/mirrorjump/mirrorjump.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "mirrorjump", "mirrorjump.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// ToEngineConfig converts the YAML-friendly EngineConfig into the
// speedtest.Config the engine consumes, parsing duration strings and
// falling back to the engine defaults for any left blank.
func (e EngineConfig) ToEngineConfig() (speedtest.Config, error) {
	cfg := speedtest.DefaultConfig()
	cfg.Protocols = e.Protocols

	if e.PerMirrorTimeout != "" {
		d, err := time.ParseDuration(e.PerMirrorTimeout)
		if err != nil {
			return cfg, fmt.Errorf("parsing per_mirror_timeout: %w", err)
		}
		cfg.PerMirrorTimeout = d
	}
	if e.MinPerMirror != "" {
		d, err := time.ParseDuration(e.MinPerMirror)
		if err != nil {
			return cfg, fmt.Errorf("parsing min_per_mirror: %w", err)
		}
		cfg.MinPerMirror = d
	}
	if e.MaxPerMirror != "" {
		d, err := time.ParseDuration(e.MaxPerMirror)
		if err != nil {
			return cfg, fmt.Errorf("parsing max_per_mirror: %w", err)
		}
		cfg.MaxPerMirror = d
	}
	if e.MinBytesPerMirror != 0 {
		cfg.MinBytesPerMirror = e.MinBytesPerMirror
	}
	if e.Eps != 0 {
		cfg.Eps = e.Eps
	}
	if e.EpsChecks != 0 {
		cfg.EpsChecks = e.EpsChecks
	}
	if e.Concurrency != 0 {
		cfg.Concurrency = e.Concurrency
	}
	if e.ConcurrencyForUnlabeled != 0 {
		cfg.ConcurrencyForUnlabeled = e.ConcurrencyForUnlabeled
	}
	if e.MaxJumps != 0 {
		cfg.MaxJumps = e.MaxJumps
	}
	if e.EntryCountry != "" {
		cfg.EntryCountry = e.EntryCountry
	}
	if e.CountryNeighborsPerCountry != 0 {
		cfg.CountryNeighborsPerCountry = e.CountryNeighborsPerCountry
	}
	if e.CountryTestMirrorsPerCountry != 0 {
		cfg.CountryTestMirrorsPerCountry = e.CountryTestMirrorsPerCountry
	}
	if e.TopMirrorsNumberToRetest != 0 {
		cfg.TopMirrorsNumberToRetest = e.TopMirrorsNumberToRetest
	}
	return cfg, nil
}

// ParseTargetConfig unmarshals a target's raw config into a typed struct,
// renamed from the teacher's ParseProviderConfig[T any] but identical in
// mechanism: re-marshal to YAML, then unmarshal into the typed shape.
func ParseTargetConfig[T any](raw TargetConfig) (*T, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshaling target config: %w", err)
	}
	var typed T
	if err := yaml.Unmarshal(data, &typed); err != nil {
		return nil, fmt.Errorf("parsing target config: %w", err)
	}
	return &typed, nil
}
