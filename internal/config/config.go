// Package config loads global stalker settings from ~/.stalker/config.yaml.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GlobalConfig holds global stalker settings. Command-line flags override
// everything here.
type GlobalConfig struct {
	Log   LogConfig   `yaml:"log"`
	Debug DebugConfig `yaml:"debug"`
}

// LogConfig holds default diagnostic-output settings.
type LogConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// DebugConfig holds debug-file logging settings.
type DebugConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// DefaultGlobalConfig returns the default global configuration.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Debug: DebugConfig{
			RetentionDays: 7,
		},
	}
}

// LoadGlobal reads ~/.stalker/config.yaml and applies environment overrides.
// A missing or malformed file yields the defaults.
func LoadGlobal() (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	configPath := filepath.Join(GlobalConfigDir(), "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		_ = yaml.Unmarshal(data, cfg) // Ignore unmarshal errors, use defaults
	}

	// Apply environment overrides
	if dir := os.Getenv("STALKER_DEBUG_DIR"); dir != "" {
		cfg.Debug.Dir = dir
	}
	if v := os.Getenv("STALKER_VERBOSE"); v != "" {
		if verbose, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Verbose = verbose
		}
	}

	return cfg, nil
}

// GlobalConfigDir returns the path to ~/.stalker.
func GlobalConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".stalker")
	}
	return filepath.Join(homeDir, ".stalker")
}
