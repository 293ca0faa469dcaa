package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies that DefaultConfig returns sensible defaults
// drawn from speedtest.DefaultConfig.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		getValue func(*Config) string
		want     string
	}{
		{"per-mirror timeout", func(c *Config) string { return c.Engine.PerMirrorTimeout }, "8s"},
		{"min per mirror", func(c *Config) string { return c.Engine.MinPerMirror }, "300ms"},
		{"max per mirror", func(c *Config) string { return c.Engine.MaxPerMirror }, "1s"},
		{"entry country", func(c *Config) string { return c.Engine.EntryCountry }, "US"},
		{"default target", func(c *Config) string { return c.Output.Target }, "archlinux"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.getValue(cfg)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if cfg.Engine.MaxJumps != 7 {
		t.Errorf("MaxJumps = %d, want 7", cfg.Engine.MaxJumps)
	}
	if cfg.Engine.Concurrency != 16 {
		t.Errorf("Concurrency = %d, want 16", cfg.Engine.Concurrency)
	}
	if cfg.Targets == nil {
		t.Errorf("Targets = nil, want non-nil map")
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("Targets length = %d, want 0", len(cfg.Targets))
	}
}

// TestLoad tests loading a valid config file
func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "mirrorjump.yaml")

	configContent := `
engine:
  per_mirror_timeout: "5s"
  max_jumps: 3
  entry_country: "DE"
  concurrency: 8
output:
  out_file: "/tmp/mirrorlist"
  target: "debian"
  compare_freshness: true
targets:
  archlinux:
    min_completion: 0.9
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Engine.PerMirrorTimeout != "5s" {
		t.Errorf("Engine.PerMirrorTimeout = %q, want %q", cfg.Engine.PerMirrorTimeout, "5s")
	}
	if cfg.Engine.MaxJumps != 3 {
		t.Errorf("Engine.MaxJumps = %d, want 3", cfg.Engine.MaxJumps)
	}
	if cfg.Engine.EntryCountry != "DE" {
		t.Errorf("Engine.EntryCountry = %q, want %q", cfg.Engine.EntryCountry, "DE")
	}
	if cfg.Output.OutFile != "/tmp/mirrorlist" {
		t.Errorf("Output.OutFile = %q, want %q", cfg.Output.OutFile, "/tmp/mirrorlist")
	}
	if cfg.Output.Target != "debian" {
		t.Errorf("Output.Target = %q, want %q", cfg.Output.Target, "debian")
	}
	if !cfg.Output.CompareFreshness {
		t.Errorf("Output.CompareFreshness = false, want true")
	}

	target, ok := cfg.Targets["archlinux"]
	if !ok {
		t.Fatal("archlinux target not found")
	}
	if v, ok := target["min_completion"].(float64); !ok || v != 0.9 {
		t.Errorf("min_completion = %v, want 0.9", target["min_completion"])
	}
}

// TestLoadInvalidYAML tests that Load returns an error for invalid YAML
func TestLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")

	invalidContent := `
engine:
  max_jumps: [unclosed bracket
`

	if err := os.WriteFile(configFile, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configFile)
	if err == nil {
		t.Error("Load() succeeded, want error for invalid YAML")
	}
}

// TestLoadNonexistentFile tests that Load returns an error for missing files
func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("Load() succeeded, want error for nonexistent file")
	}
}

// TestFindConfigFileNotFound tests that FindConfigFile returns error when no config exists
func TestFindConfigFileNotFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	_, err = FindConfigFile()
	if err == nil {
		t.Error("FindConfigFile() succeeded, want error when no config exists")
	}
}

// TestFindConfigFileFound tests that FindConfigFile returns the found config
func TestFindConfigFileFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	configFile := filepath.Join(tempDir, "mirrorjump.yaml")
	if err := os.WriteFile(configFile, []byte("engine:\n  max_jumps: 5\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile() failed: %v", err)
	}
	if found != "mirrorjump.yaml" {
		t.Errorf("FindConfigFile() = %q, want mirrorjump.yaml", found)
	}
}

// TestEngineConfigToEngineConfig tests conversion from the YAML-friendly
// EngineConfig into speedtest.Config, including defaulting of zero fields.
func TestEngineConfigToEngineConfig(t *testing.T) {
	e := EngineConfig{
		PerMirrorTimeout: "2s",
		MaxJumps:         4,
		EntryCountry:     "JP",
	}

	cfg, err := e.ToEngineConfig()
	if err != nil {
		t.Fatalf("ToEngineConfig failed: %v", err)
	}
	if cfg.PerMirrorTimeout.String() != "2s" {
		t.Errorf("PerMirrorTimeout = %s, want 2s", cfg.PerMirrorTimeout)
	}
	if cfg.MaxJumps != 4 {
		t.Errorf("MaxJumps = %d, want 4", cfg.MaxJumps)
	}
	if cfg.EntryCountry != "JP" {
		t.Errorf("EntryCountry = %q, want JP", cfg.EntryCountry)
	}
	// Untouched fields fall back to the engine defaults.
	if cfg.Concurrency != 16 {
		t.Errorf("Concurrency = %d, want default 16", cfg.Concurrency)
	}
}

func TestEngineConfigToEngineConfigInvalidDuration(t *testing.T) {
	e := EngineConfig{PerMirrorTimeout: "not-a-duration"}
	if _, err := e.ToEngineConfig(); err == nil {
		t.Error("expected an error for an invalid duration string")
	}
}

// TestParseTargetConfig tests generic unmarshaling of a raw target config.
func TestParseTargetConfig(t *testing.T) {
	type sampleTargetConfig struct {
		ListingURL string `yaml:"listing_url"`
		TestPath   string `yaml:"test_path"`
	}

	raw := TargetConfig{
		"listing_url": "https://mirrors.example.com/",
		"test_path":   "/repodata/repomd.xml",
	}

	typed, err := ParseTargetConfig[sampleTargetConfig](raw)
	if err != nil {
		t.Fatalf("ParseTargetConfig failed: %v", err)
	}
	if typed.ListingURL != "https://mirrors.example.com/" {
		t.Errorf("ListingURL = %q", typed.ListingURL)
	}
	if typed.TestPath != "/repodata/repomd.xml" {
		t.Errorf("TestPath = %q", typed.TestPath)
	}
}

func TestParseTargetConfigDefaults(t *testing.T) {
	type sampleTargetConfig struct {
		ListingURL string `yaml:"listing_url"`
	}

	typed, err := ParseTargetConfig[sampleTargetConfig](TargetConfig{})
	if err != nil {
		t.Fatalf("ParseTargetConfig failed: %v", err)
	}
	if typed.ListingURL != "" {
		t.Errorf("ListingURL = %q, want empty", typed.ListingURL)
	}
}
