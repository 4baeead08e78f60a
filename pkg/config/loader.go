package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "200ms" or "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// fileConfig mirrors Config with YAML-friendly field types.
type fileConfig struct {
	Retry       fileRetry         `yaml:"retry"`
	SessionWait fileRetry         `yaml:"session_wait"`
	Artifacts   fileArtifacts     `yaml:"artifacts"`
	Variables   map[string]string `yaml:"variables"`
	Culture     string            `yaml:"culture"`
	Overrides   []fileOverride    `yaml:"overrides"`
}

type fileRetry struct {
	Timeout  Duration `yaml:"timeout"`
	Interval Duration `yaml:"interval"`
}

type fileArtifacts struct {
	RootTemplate string `yaml:"root_template"`
}

type fileOverride struct {
	Match       string            `yaml:"match"`
	Retry       *fileRetry        `yaml:"retry"`
	SessionWait *fileRetry        `yaml:"session_wait"`
	Variables   map[string]string `yaml:"variables"`
	Culture     string            `yaml:"culture"`
}

// Load reads a YAML configuration file and returns it layered over the
// defaults. A missing file is not an error: the defaults are returned,
// so a project without a config file still runs.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes layered over the defaults.
func Parse(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg := Config{
		Retry:       Retry{Timeout: fc.Retry.Timeout.Std(), Interval: fc.Retry.Interval.Std()},
		SessionWait: Retry{Timeout: fc.SessionWait.Timeout.Std(), Interval: fc.SessionWait.Interval.Std()},
		Artifacts:   Artifacts{RootTemplate: fc.Artifacts.RootTemplate},
		Variables:   fc.Variables,
		Culture:     fc.Culture,
	}
	for _, fo := range fc.Overrides {
		o := Override{
			Match:     fo.Match,
			Variables: fo.Variables,
			Culture:   fo.Culture,
		}
		if fo.Retry != nil {
			o.Retry = &Retry{Timeout: fo.Retry.Timeout.Std(), Interval: fo.Retry.Interval.Std()}
		}
		if fo.SessionWait != nil {
			o.SessionWait = &Retry{Timeout: fo.SessionWait.Timeout.Std(), Interval: fo.SessionWait.Interval.Std()}
		}
		m, err := o.matcher()
		if err != nil {
			return Config{}, err
		}
		o.compiled = m
		cfg.Overrides = append(cfg.Overrides, o)
	}

	// Layer over the defaults so unset file fields inherit them.
	cfg = Inherit(Default(), cfg)
	if cfg.Variables == nil {
		cfg.Variables = map[string]string{}
	}
	return cfg, nil
}
