package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Display  DisplayConfig  `toml:"display"`
}

// AnalysisConfig maps analysis-related settings.
type AnalysisConfig struct {
	ResultsDir *string  `toml:"results-dir"`
	Threshold  *float64 `toml:"threshold"`
	Strategy   *string  `toml:"strategy"`
	DBPath     *string  `toml:"db-path"`
}

// DisplayConfig maps display overrides keyed by algorithm label.
type DisplayConfig struct {
	Colors map[string]string `toml:"colors"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
