// Package config loads the pipeline configuration.
//
// A config file is YAML. ${VAR} references are replaced with environment
// values before parsing, then CHURN_* variables override individual keys:
// CHURN_DATA_PATH sets data.path, CHURN_MODEL_TYPE sets model.type, and so
// on. Keys missing from the file keep the values from Default. The result
// is validated before it is returned.
//
// Viper lowercases keys, so model parameter names are lowercase too
// ("n_estimators", "c").
package config

import (
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
	"github.com/Dawood-ML/uv-project-management/pkg/source"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CHURN"

// Config is the full pipeline configuration.
type Config struct {
	Data          DataConfig            `yaml:"data" mapstructure:"data"`
	Model         ModelConfig           `yaml:"model" mapstructure:"model"`
	Economics     evaluation.Economics  `yaml:"economics" mapstructure:"economics"`
	Experiment    evaluation.Thresholds `yaml:"experiment" mapstructure:"experiment"`
	Logging       logger.Config         `yaml:"logging" mapstructure:"logging"`
	Observability observability.Config  `yaml:"observability" mapstructure:"observability"`
	Registry      runstore.Config       `yaml:"registry" mapstructure:"registry"`
	Source        source.Config         `yaml:"source" mapstructure:"source"`
}

// DataConfig describes the training data and how to split it.
type DataConfig struct {
	// Path is a local path or an s3:// or gs:// URL.
	Path          string  `yaml:"path" mapstructure:"path" validate:"required"`
	Target        string  `yaml:"target" mapstructure:"target" validate:"required"`
	PositiveLabel string  `yaml:"positive_label" mapstructure:"positive_label"`
	TestSize      float64 `yaml:"test_size" mapstructure:"test_size" validate:"gt=0,lt=1"`
	Seed          int64   `yaml:"seed" mapstructure:"seed"`
	// IDColumns are dropped before fitting.
	IDColumns []string `yaml:"id_columns" mapstructure:"id_columns"`
	// Categorical forces columns to be read as text.
	Categorical []string `yaml:"categorical" mapstructure:"categorical"`
}

// ModelConfig selects the classifier and where its bundle is stored.
type ModelConfig struct {
	Type   string             `yaml:"type" mapstructure:"type" validate:"required"`
	Params map[string]float64 `yaml:"params,omitempty" mapstructure:"params"`
	// Path's extension picks the bundle compression, e.g. ".json.zst".
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:      "data/churn.csv",
			Target:    "Churn",
			TestSize:  0.2,
			Seed:      42,
			IDColumns: []string{"CustomerID"},
		},
		Model: ModelConfig{
			Type: "random_forest",
			Path: "models/churn_model.json.zst",
		},
		Economics:  evaluation.DefaultEconomics(),
		Experiment: evaluation.DefaultThresholds(),
		Logging: logger.Config{
			Level:    "info",
			Encoding: "console",
		},
		Observability: observability.DefaultConfig(),
		Registry:      runstore.Config{Driver: "none"},
	}
}
