package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"separateclumps/pkg/cutting"
	"separateclumps/pkg/perimeter"
	"separateclumps/pkg/separation"
)

// TestDefaultConfigMatchesParams verifies the file defaults map onto the
// library defaults
func TestDefaultConfigMatchesParams(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration should be valid: %v", err)
	}

	got, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	want := separation.DefaultParams()
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

// TestLoadConfigMissingFile returns defaults when the file does not exist
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cutting.Passes != 2 || cfg.Selection.MaxSolidity != 0.92 {
		t.Errorf("Expected default values, got %+v", cfg)
	}
}

// TestLoadConfigPartialFile checks that keys missing from the file keep their defaults
func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("cutting:\n  passes: 4\n  lineMode: watershed\nselection:\n  maxSolidity: 0.95\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cutting.Passes != 4 || cfg.Selection.MaxSolidity != 0.95 {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.Perimeter.WindowSize != 9 || cfg.Cutting.MinCutArea != 20 {
		t.Errorf("Missing keys should keep defaults: %+v", cfg)
	}

	params, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	if params.LineMode != cutting.LineWatershed {
		t.Errorf("Expected watershed line mode, got %v", params.LineMode)
	}
}

// TestSaveAndLoadConfig round-trips a modified configuration through a file
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Perimeter.CurvatureMethod = perimeter.CircleFit.String()
	cfg.Cutting.Weights.Angle = 2.5

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Perimeter.CurvatureMethod != "circle-fit" || loaded.Cutting.Weights.Angle != 2.5 {
		t.Errorf("Saved values not restored: %+v", loaded)
	}
}

// TestCreateDefaultConfigFile checks that the written file loads as the defaults
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *loaded != *DefaultConfig() {
		t.Errorf("Expected defaults, got %+v", loaded)
	}
}

// TestLoadConfigInvalidYAML reports parse errors
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("cutting: [passes"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected a parse error")
	}
}

// TestResolveFlags verifies that non-zero flags override file values
func TestResolveFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Processing.Workers = 0
	cfg.Resolve(Flags{Passes: 3, LineMode: "watershed", DebugDir: "debug"})

	if cfg.Cutting.Passes != 3 || cfg.Cutting.LineMode != "watershed" || cfg.Output.DebugDir != "debug" {
		t.Errorf("Flags not applied: %+v", cfg)
	}
	if cfg.Processing.Workers <= 0 {
		t.Errorf("Workers should fall back to the CPU count")
	}
	if cfg.Output.LogFormat != "text" {
		t.Errorf("Empty flags must not override the file, got log format %q", cfg.Output.LogFormat)
	}

	params, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	if !params.Debug {
		t.Errorf("A debug directory should enable debug collection")
	}
}

// TestValidate checks that invalid values wrap ErrInvalidConfiguration
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"line mode", func(c *Config) { c.Cutting.LineMode = "zigzag" }},
		{"curvature", func(c *Config) { c.Perimeter.CurvatureMethod = "spline" }},
		{"areas", func(c *Config) { c.Selection.MinArea = c.Selection.MaxArea }},
		{"window", func(c *Config) { c.Perimeter.WindowSize = 4 }},
		{"figure format", func(c *Config) { c.Output.FigureFormat = "gif" }},
		{"log format", func(c *Config) { c.Output.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(cfg)
		if err := cfg.Validate(); !errors.Is(err, separation.ErrInvalidConfiguration) {
			t.Errorf("%s: expected ErrInvalidConfiguration, got %v", tt.name, err)
		}
	}
}
