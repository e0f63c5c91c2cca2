package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete application configuration
type Config struct {
	Version     string            `yaml:"version" json:"version"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Recommender RecommenderConfig `yaml:"recommender" json:"recommender"`
	Data        DataConfig        `yaml:"data" json:"data"`
	Model       ModelConfig       `yaml:"model" json:"model"`
	Output      OutputConfig      `yaml:"output" json:"output"`
	Metrics     MetricsConfig     `yaml:"metrics" json:"metrics"`
}

// LoggingConfig configures log level, format and log files
type LoggingConfig struct {
	Level         string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format        string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
	FileMain      string `yaml:"file_main" json:"file_main"`           // pipeline and CLI log file
	FilePredictor string `yaml:"file_predictor" json:"file_predictor"` // predictor log file
}

// RecommenderConfig configures ranking behavior
type RecommenderConfig struct {
	TopN        int  `yaml:"top_n" json:"top_n" validate:"gte=1"`
	StrictInput bool `yaml:"strict_input" json:"strict_input"` // reject non-binary interaction vectors
}

// DataConfig locates the input files
type DataConfig struct {
	InteractionsPath string `yaml:"interactions_path" json:"interactions_path" validate:"required"`
	Products         string `yaml:"products" json:"products" validate:"required"`
}

// ModelConfig locates the model artifact and holds training parameters
type ModelConfig struct {
	Path         string `yaml:"path" json:"path" validate:"required"`
	Algorithm    string `yaml:"algorithm" json:"algorithm" validate:"omitempty,oneof=randomized exact"`
	NComponents  int    `yaml:"n_components" json:"n_components" validate:"gte=1"`
	NIter        int    `yaml:"n_iter" json:"n_iter" validate:"gte=0"`
	NOversamples int    `yaml:"n_oversamples" json:"n_oversamples" validate:"gte=0"`
	RandomState  int64  `yaml:"random_state" json:"random_state"`
}

// OutputConfig configures output formatting and record files
type OutputConfig struct {
	Dir           string `yaml:"dir" json:"dir" validate:"required"`  // directory for JSON records
	DefaultFormat string `yaml:"default_format" json:"default_format"` // text|json|markdown|csv
	ColorMode     string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
}

// MetricsConfig configures Prometheus textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"` // empty disables export
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "console",
			FileMain:      "logs/main.log",
			FilePredictor: "logs/predictor.log",
		},
		Recommender: RecommenderConfig{
			TopN:        5,
			StrictInput: false,
		},
		Data: DataConfig{
			InteractionsPath: "data/processed/users_matriz_items.csv",
			Products:         "data/processed/productos.json",
		},
		Model: ModelConfig{
			Path:         "models/svd_model.gob.gz",
			Algorithm:    "randomized",
			NComponents:  443,
			NIter:        7,
			NOversamples: 13,
			RandomState:  42,
		},
		Output: OutputConfig{
			Dir:           "recomendaciones",
			DefaultFormat: "text",
			ColorMode:     "auto",
		},
		Metrics: MetricsConfig{
			Textfile: "",
		},
	}
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidationError(err)
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}

// describeValidationError turns validator output into messages keyed by yaml path
func describeValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", yamlPath(fe.Namespace()), describeTag(fe)))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid value %v (must be one of: %s)", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// yamlPath maps "Config.Recommender.TopN" to "recommender.top_n"
func yamlPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	if alias, ok := fieldAliases[s]; ok {
		return alias
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fieldAliases covers names where the yaml key does not follow plain snake case
var fieldAliases = map[string]string{
	"TopN":         "top_n",
	"NComponents":  "n_components",
	"NIter":        "n_iter",
	"NOversamples": "n_oversamples",
}
