package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.recsvd.yaml",               // Project-specific config (highest priority)
	"~/.config/recsvd/config.yaml", // User config
	"/etc/recsvd/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.recsvd.yaml
// 4. ~/.config/recsvd/config.yaml
// 5. /etc/recsvd/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// strict_input is a plain bool, so its presence has to be detected on the raw document
	var raw struct {
		Recommender map[string]interface{} `yaml:"recommender"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	_, strictSet := raw.Recommender["strict_input"]

	mergeConfigs(config, &fileConfig, strictSet)

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Logging Config
		"RECSVD_LOGGING_LEVEL":          func(v string) error { config.Logging.Level = v; return nil },
		"RECSVD_LOGGING_FORMAT":         func(v string) error { config.Logging.Format = v; return nil },
		"RECSVD_LOGGING_FILE_MAIN":      func(v string) error { config.Logging.FileMain = v; return nil },
		"RECSVD_LOGGING_FILE_PREDICTOR": func(v string) error { config.Logging.FilePredictor = v; return nil },

		// Recommender Config
		"RECSVD_RECOMMENDER_TOP_N":        func(v string) error { return parseInt(v, &config.Recommender.TopN) },
		"RECSVD_RECOMMENDER_STRICT_INPUT": func(v string) error { return parseBool(v, &config.Recommender.StrictInput) },

		// Data Config
		"RECSVD_DATA_INTERACTIONS_PATH": func(v string) error { config.Data.InteractionsPath = v; return nil },
		"RECSVD_DATA_PRODUCTS":          func(v string) error { config.Data.Products = v; return nil },

		// Model Config
		"RECSVD_MODEL_PATH":          func(v string) error { config.Model.Path = v; return nil },
		"RECSVD_MODEL_ALGORITHM":     func(v string) error { config.Model.Algorithm = v; return nil },
		"RECSVD_MODEL_N_COMPONENTS":  func(v string) error { return parseInt(v, &config.Model.NComponents) },
		"RECSVD_MODEL_N_ITER":        func(v string) error { return parseInt(v, &config.Model.NIter) },
		"RECSVD_MODEL_N_OVERSAMPLES": func(v string) error { return parseInt(v, &config.Model.NOversamples) },
		"RECSVD_MODEL_RANDOM_STATE":  func(v string) error { return parseInt64(v, &config.Model.RandomState) },

		// Output Config
		"RECSVD_OUTPUT_DIR":            func(v string) error { config.Output.Dir = v; return nil },
		"RECSVD_OUTPUT_DEFAULT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"RECSVD_OUTPUT_COLOR_MODE":     func(v string) error { config.Output.ColorMode = v; return nil },

		// Metrics Config
		"RECSVD_METRICS_TEXTFILE": func(v string) error { config.Metrics.Textfile = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config
// Only non-zero values from source overwrite destination
func mergeConfigs(dst, src *Config, strictSet bool) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeLoggingConfig(&dst.Logging, &src.Logging)
	mergeRecommenderConfig(&dst.Recommender, &src.Recommender, strictSet)
	mergeDataConfig(&dst.Data, &src.Data)
	mergeModelConfig(&dst.Model, &src.Model)
	mergeOutputConfig(&dst.Output, &src.Output)
	if src.Metrics.Textfile != "" {
		dst.Metrics.Textfile = src.Metrics.Textfile
	}
}

func mergeLoggingConfig(dst, src *LoggingConfig) {
	if src.Level != "" {
		dst.Level = src.Level
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.FileMain != "" {
		dst.FileMain = src.FileMain
	}
	if src.FilePredictor != "" {
		dst.FilePredictor = src.FilePredictor
	}
}

func mergeRecommenderConfig(dst, src *RecommenderConfig, strictSet bool) {
	if src.TopN != 0 {
		dst.TopN = src.TopN
	}
	if strictSet {
		dst.StrictInput = src.StrictInput
	}
}

func mergeDataConfig(dst, src *DataConfig) {
	if src.InteractionsPath != "" {
		dst.InteractionsPath = src.InteractionsPath
	}
	if src.Products != "" {
		dst.Products = src.Products
	}
}

func mergeModelConfig(dst, src *ModelConfig) {
	if src.Path != "" {
		dst.Path = src.Path
	}
	if src.Algorithm != "" {
		dst.Algorithm = src.Algorithm
	}
	if src.NComponents != 0 {
		dst.NComponents = src.NComponents
	}
	if src.NIter != 0 {
		dst.NIter = src.NIter
	}
	if src.NOversamples != 0 {
		dst.NOversamples = src.NOversamples
	}
	if src.RandomState != 0 {
		dst.RandomState = src.RandomState
	}
}

func mergeOutputConfig(dst, src *OutputConfig) {
	if src.Dir != "" {
		dst.Dir = src.Dir
	}
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseInt64(s string, dst *int64) error {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
