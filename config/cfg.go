package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rupor-github/gencfg"
	yaml "gopkg.in/yaml.v3"

	"resemble/common"
	"resemble/sample"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// Fidelity is kept as written and accepts both YAML numbers and strings,
	// so 25, "25" and "25%" are all valid.
	Fidelity string

	GradientConfig struct {
		Fidelity  Fidelity         `yaml:"fidelity"`
		Generator common.Generator `yaml:"generator"`
		Algorithm common.Algorithm `yaml:"algorithm"`
		Selectors []string         `yaml:"selectors" validate:"dive,required"`
	}

	ImagesConfig struct {
		Root      string        `yaml:"root"`
		Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
		MaxSize   int64         `yaml:"max_size" validate:"gte=0"`
		UserAgent string        `yaml:"user_agent"`
		AuthToken SecretString  `yaml:"auth_token"`
	}

	ProcessingConfig struct {
		Workers    int      `yaml:"workers" validate:"gte=0"`
		Extensions []string `yaml:"extensions" validate:"min=1,dive,required,startswith=."`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Gradient   GradientConfig   `yaml:"gradient"`
		Images     ImagesConfig     `yaml:"images"`
		Processing ProcessingConfig `yaml:"processing"`
		Logging    LoggingConfig    `yaml:"logging"`
		Reporting  ReporterConfig   `yaml:"reporting"`
	}
)

// UnmarshalYAML accepts any scalar.
func (f *Fidelity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: fidelity must be a number or a string", node.Line)
	}
	*f = Fidelity(node.Value)
	return nil
}

func (f Fidelity) String() string {
	return string(f)
}

// checkFidelity makes sure configured default fidelity is usable, so
// zero or malformed value is rejected at load time rather than on the first
// image.
func checkFidelity(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if _, err := sample.ParseFidelity(cfg.Gradient.Fidelity.String()); err != nil {
		sl.ReportError(cfg.Gradient.Fidelity, "Fidelity", "fidelity", "fidelity", err.Error())
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkFidelity)); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

// Dump returns configuration as YAML, secrets are never shown.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
