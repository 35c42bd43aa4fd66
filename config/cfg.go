package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

type (
	ViewportConfig struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	}

	ExtractConfig struct {
		Viewports     []ViewportConfig `yaml:"viewports"`
		ForceInclude  []string         `yaml:"force_include"`
		UserAgent     string           `yaml:"user_agent"`
		SettleDelayMS int              `yaml:"settle_delay_ms"`
		Static        bool             `yaml:"static"`
	}

	OutputConfig struct {
		Indent   string `yaml:"indent"`
		Compress bool   `yaml:"compress"`
	}

	Config struct {
		Version int           `yaml:"version"`
		Extract ExtractConfig `yaml:"extract"`
		Output  OutputConfig  `yaml:"output"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// unmarshalConfig decodes YAML over cfg. We want only fields we defined,
// so unknown keys are rejected.
func unmarshalConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfiguration returns the default configuration with values from
// fname (if any) layered on top.
func LoadConfiguration(fname string) (*Config, error) {
	cfg := &Config{}
	if err := unmarshalConfig(defaultConfig, cfg); err != nil {
		return nil, fmt.Errorf("unable to read default configuration: %w", err)
	}
	if len(fname) > 0 {
		data, err := os.ReadFile(fname)
		if err != nil {
			return nil, fmt.Errorf("unable to read configuration file '%s': %w", fname, err)
		}
		if err := unmarshalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse configuration file '%s': %w", fname, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d", cfg.Version)
	}
	for i, vp := range cfg.Extract.Viewports {
		if vp.Width <= 0 || vp.Height <= 0 {
			return fmt.Errorf("viewport %d has non-positive dimensions %dx%d", i, vp.Width, vp.Height)
		}
	}
	if cfg.Extract.SettleDelayMS < 0 {
		return fmt.Errorf("settle_delay_ms must not be negative")
	}
	return nil
}

// Prepare returns the default embedded configuration.
func Prepare() ([]byte, error) {
	return defaultConfig, nil
}

// Dump serializes the actual configuration.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize configuration: %w", err)
	}
	return data, nil
}
