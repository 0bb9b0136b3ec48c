package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Analysis AnalysisConfig `json:"analysis"`
	Sampler  SamplerConfig  `json:"sampler"`
	Peaks    PeaksConfig    `json:"peaks"`
	Palette  PaletteConfig  `json:"palette"`
	Output   OutputConfig   `json:"output"`
}

// AnalysisConfig holds configuration for the histogram pipeline
type AnalysisConfig struct {
	Bins     int     `json:"bins"`
	Sigma    float64 `json:"sigma"`
	MaxPeaks int     `json:"max_peaks"`
	Workers  int     `json:"workers"`
}

// SamplerConfig holds configuration for image loading
type SamplerConfig struct {
	MaxDimension     int      `json:"max_dimension"`
	MinImageSize     int      `json:"min_image_size"`
	HTTPTimeoutSecs  int      `json:"http_timeout_secs"`
	SupportedFormats []string `json:"supported_formats"`
}

// PeaksConfig holds configuration for cluster fusion and filtering
type PeaksConfig struct {
	MaxHueGap      float64 `json:"max_hue_gap"`
	MaxDeltaE      float64 `json:"max_delta_e"`
	MinWeightRatio float64 `json:"min_weight_ratio"`
}

// PaletteConfig holds configuration for palette extraction
type PaletteConfig struct {
	Method          string `json:"method"`
	Size            int    `json:"size"`
	MaxSamples      int    `json:"max_samples"`
	CandidateFactor int    `json:"candidate_factor"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format       string `json:"format"`
	OutputDir    string `json:"output_dir"`
	SwatchFormat string `json:"swatch_format"`
	SwatchTile   int    `json:"swatch_tile"`
	Quality      int    `json:"quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Bins:     360,
			Sigma:    5,
			MaxPeaks: 5,
			Workers:  0,
		},
		Sampler: SamplerConfig{
			MaxDimension:     256,
			MinImageSize:     1,
			HTTPTimeoutSecs:  30,
			SupportedFormats: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp"},
		},
		Peaks: PeaksConfig{
			MaxHueGap:      30,
			MaxDeltaE:      10,
			MinWeightRatio: 0.01,
		},
		Palette: PaletteConfig{
			Method:          "dominant",
			Size:            5,
			MaxSamples:      12000,
			CandidateFactor: 4,
		},
		Output: OutputConfig{
			Format:       "json",
			OutputDir:    "./output",
			SwatchFormat: "png",
			SwatchTile:   64,
			Quality:      90,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Analysis.Bins < 1 {
		return fmt.Errorf("analysis.bins must be positive")
	}

	if c.Analysis.Sigma < 0 {
		return fmt.Errorf("analysis.sigma must not be negative")
	}

	if c.Analysis.MaxPeaks < 1 {
		return fmt.Errorf("analysis.max_peaks must be positive")
	}

	if c.Sampler.MaxDimension < 0 {
		return fmt.Errorf("sampler.max_dimension must not be negative")
	}

	if len(c.Sampler.SupportedFormats) == 0 {
		return fmt.Errorf("sampler.supported_formats cannot be empty")
	}

	if c.Peaks.MaxHueGap < 0 || c.Peaks.MaxHueGap > 180 {
		return fmt.Errorf("peaks.max_hue_gap must be between 0 and 180")
	}

	if c.Peaks.MinWeightRatio < 0 || c.Peaks.MinWeightRatio > 1 {
		return fmt.Errorf("peaks.min_weight_ratio must be between 0 and 1")
	}

	switch c.Palette.Method {
	case "histogram", "kmeans", "dominant":
	default:
		return fmt.Errorf("palette.method must be histogram, kmeans, or dominant, got %q", c.Palette.Method)
	}

	if c.Palette.Size < 1 {
		return fmt.Errorf("palette.size must be positive")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "hue-analyzer", "config.json")
}
