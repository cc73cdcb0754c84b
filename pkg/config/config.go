// Package config provides configuration loading and management for separateclumps.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"separateclumps/pkg/cutting"
	"separateclumps/pkg/features"
	"separateclumps/pkg/perimeter"
	"separateclumps/pkg/separation"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Clump selection thresholds
	Selection struct {
		// MaxSolidity: objects at or above it are never cut
		MaxSolidity float64 `yaml:"maxSolidity"`

		// MinFormFactor: objects at or below it are never cut
		MinFormFactor float64 `yaml:"minFormFactor"`

		// MinArea and MaxArea bound the area of clump candidates (exclusive)
		MinArea int `yaml:"minArea"`
		MaxArea int `yaml:"maxArea"`
	} `yaml:"selection"`

	// Mask smoothing parameters
	Smoothing struct {
		// FilterSize is the radius of the opening disk
		FilterSize int `yaml:"filterSize"`
	} `yaml:"smoothing"`

	// Perimeter analysis parameters
	Perimeter struct {
		// WindowSize is the curvature window in boundary points (odd)
		WindowSize int `yaml:"windowSize"`

		// CurvatureMethod is "turning" or "circle-fit"
		CurvatureMethod string `yaml:"curvatureMethod"`

		// FlatTolerance is the curvature magnitude treated as zero
		FlatTolerance float64 `yaml:"flatTolerance"`
	} `yaml:"perimeter"`

	// Cut generation and selection parameters
	Cutting struct {
		// Passes is the number of cutting passes
		Passes int `yaml:"passes"`

		MaxConcaveRadius    float64 `yaml:"maxConcaveRadius"`
		MinConcaveAngle     float64 `yaml:"minConcaveAngle"`
		MinCutArea          int     `yaml:"minCutArea"`
		MaxRegionsPerObject int     `yaml:"maxRegionsPerObject"`

		// MaxCutsPerObject limits cuts per object and pass (0 = no limit)
		MaxCutsPerObject int `yaml:"maxCutsPerObject"`

		// LineMode is "straight" or "watershed"
		LineMode string `yaml:"lineMode"`

		// DilateCuts thickens cut lines by one pixel
		DilateCuts bool `yaml:"dilateCuts"`

		// Weights of the cost features
		Weights struct {
			Length    float64 `yaml:"length"`
			Intensity float64 `yaml:"intensity"`
			Angle     float64 `yaml:"angle"`
			Fragment  float64 `yaml:"fragment"`
		} `yaml:"weights"`
	} `yaml:"cutting"`

	// Processing parameters
	Processing struct {
		// Workers is the number of goroutines processing objects
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// DebugDir receives debug figures when set
		DebugDir string `yaml:"debugDir"`

		// FigureFormat is "png" or "webp"
		FigureFormat string `yaml:"figureFormat"`

		// LogLevel is a logrus level name
		LogLevel string `yaml:"logLevel"`

		// LogFormat is "text" or "json"
		LogFormat string `yaml:"logFormat"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default selection thresholds
	cfg.Selection.MaxSolidity = 0.92
	cfg.Selection.MinFormFactor = 0.07
	cfg.Selection.MinArea = 50
	cfg.Selection.MaxArea = 5000

	cfg.Smoothing.FilterSize = 1

	// Set default perimeter parameters
	cfg.Perimeter.WindowSize = 9
	cfg.Perimeter.CurvatureMethod = perimeter.Turning.String()
	cfg.Perimeter.FlatTolerance = perimeter.DefaultFlatTolerance

	// Set default cutting parameters
	cfg.Cutting.Passes = 2
	cfg.Cutting.MaxConcaveRadius = 20
	cfg.Cutting.MinConcaveAngle = 20
	cfg.Cutting.MinCutArea = 20
	cfg.Cutting.MaxRegionsPerObject = cutting.DefaultMaxRegionsPerObject
	cfg.Cutting.MaxCutsPerObject = 1
	cfg.Cutting.LineMode = cutting.LineStraight.String()
	w := cutting.DefaultWeights()
	cfg.Cutting.Weights.Length = w.Length
	cfg.Cutting.Weights.Intensity = w.Intensity
	cfg.Cutting.Weights.Angle = w.Angle
	cfg.Cutting.Weights.Fragment = w.Fragment

	cfg.Processing.Workers = runtime.NumCPU() // Use all available cores by default

	// Set default output parameters
	cfg.Output.FigureFormat = "png"
	cfg.Output.LogLevel = "info"
	cfg.Output.LogFormat = "text"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults, so missing keys keep their default
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Flags holds CLI flag values that override config file settings.
// Zero values leave the file setting alone.
type Flags struct {
	Passes       int
	Workers      int
	LineMode     string
	DebugDir     string
	FigureFormat string
	LogLevel     string
	LogFormat    string
}

// Resolve applies CLI flags on top of the loaded configuration
func (c *Config) Resolve(flags Flags) {
	if flags.Passes > 0 {
		c.Cutting.Passes = flags.Passes
	}
	if flags.Workers > 0 {
		c.Processing.Workers = flags.Workers
	}
	if flags.LineMode != "" {
		c.Cutting.LineMode = flags.LineMode
	}
	if flags.DebugDir != "" {
		c.Output.DebugDir = flags.DebugDir
	}
	if flags.FigureFormat != "" {
		c.Output.FigureFormat = flags.FigureFormat
	}
	if flags.LogLevel != "" {
		c.Output.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		c.Output.LogFormat = flags.LogFormat
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = runtime.NumCPU()
	}
}

// Params converts the configuration into separation parameters.
// Debug collection is switched on when a debug directory is configured.
func (c *Config) Params() (separation.Params, error) {
	method, err := perimeter.ParseMethod(c.Perimeter.CurvatureMethod)
	if err != nil {
		return separation.Params{}, fmt.Errorf("%w: %v", separation.ErrInvalidConfiguration, err)
	}
	mode, err := cutting.ParseLineMode(c.Cutting.LineMode)
	if err != nil {
		return separation.Params{}, fmt.Errorf("%w: %v", separation.ErrInvalidConfiguration, err)
	}

	return separation.Params{
		Passes: c.Cutting.Passes,
		Thresholds: features.Thresholds{
			MaxSolidity:   c.Selection.MaxSolidity,
			MinFormFactor: c.Selection.MinFormFactor,
			MinArea:       c.Selection.MinArea,
			MaxArea:       c.Selection.MaxArea,
		},
		FilterSize:          c.Smoothing.FilterSize,
		WindowSize:          c.Perimeter.WindowSize,
		CurvatureMethod:     method,
		FlatTolerance:       c.Perimeter.FlatTolerance,
		MaxConcaveRadius:    c.Cutting.MaxConcaveRadius,
		MinConcaveAngle:     c.Cutting.MinConcaveAngle,
		MinCutArea:          c.Cutting.MinCutArea,
		MaxRegionsPerObject: c.Cutting.MaxRegionsPerObject,
		MaxCutsPerObject:    c.Cutting.MaxCutsPerObject,
		LineMode:            mode,
		DilateCuts:          c.Cutting.DilateCuts,
		Weights: cutting.Weights{
			Length:    c.Cutting.Weights.Length,
			Intensity: c.Cutting.Weights.Intensity,
			Angle:     c.Cutting.Weights.Angle,
			Fragment:  c.Cutting.Weights.Fragment,
		},
		Workers: c.Processing.Workers,
		Debug:   c.Output.DebugDir != "",
	}, nil
}

// Validate checks the configuration for contradictory or out-of-range
// values. Errors wrap separation.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	params, err := c.Params()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	switch c.Output.FigureFormat {
	case "", "png", "webp":
	default:
		return fmt.Errorf("%w: unknown figure format %q", separation.ErrInvalidConfiguration, c.Output.FigureFormat)
	}
	switch c.Output.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", separation.ErrInvalidConfiguration, c.Output.LogFormat)
	}
	return nil
}
