package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the YAML file at path. An empty path loads Default with
// environment overrides applied.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NotFound("config file not found", path)
			}
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file").
				WithDetail("path", path)
		}
		content = []byte(substituteEnvVars(string(data)))
	}
	return parse(content)
}

// Parse decodes YAML content the same way Load does.
func Parse(content []byte) (*Config, error) {
	return parse([]byte(substituteEnvVars(string(content))))
}

func parse(content []byte) (*Config, error) {
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode defaults")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to load defaults")
	}
	if len(bytes.TrimSpace(content)) > 0 {
		if err := v.MergeConfig(bytes.NewReader(content)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config")
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode config")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its field constraints. The error's "fields"
// detail lists every failing key.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.TrimPrefix(fe.Namespace(), "Config.")+" ("+fe.Tag()+")")
	}
	return errors.Configuration("invalid configuration").WithDetail("fields", fields)
}

// Save writes cfg as YAML, creating or truncating path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").
			WithDetail("path", path)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables become empty strings.
func substituteEnvVars(content string) string {
	// Substituted values are not rescanned, so a value containing "${" is
	// kept as is.
	for pos := 0; ; {
		start := strings.Index(content[pos:], "${")
		if start == -1 {
			break
		}
		start += pos
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		value := os.Getenv(content[start+2 : end])
		content = content[:start] + value + content[end+1:]
		pos = start + len(value)
	}
	return content
}
