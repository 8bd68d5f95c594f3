// Package config loads the lapcast YAML configuration.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pitwall-labs/lapcast/internal/openf1"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

// Event selects a race weekend by season and round number.
type Event struct {
	Year  int `yaml:"year"`
	Round int `yaml:"round"`
}

// Model holds the regressor hyperparameters.
type Model struct {
	Kind         string  `yaml:"kind"`
	NEstimators  int     `yaml:"n_estimators"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxDepth     int     `yaml:"max_depth"`
	Subsample    float64 `yaml:"subsample"`
	TestSize     float64 `yaml:"test_size"`
	Seed         int     `yaml:"seed"`
}

// OpenF1 configures the data source.
type OpenF1 struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Cache configures the on-disk response cache.
type Cache struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Log configures logging on stderr.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Report configures the output artefacts.
type Report struct {
	PlotPath string `yaml:"plot_path"`
}

// Config is the full configuration file.
type Config struct {
	Train  Event  `yaml:"train"`
	Target Event  `yaml:"target"`
	Model  Model  `yaml:"model"`
	OpenF1 OpenF1 `yaml:"openf1"`
	Cache  Cache  `yaml:"cache"`
	Log    Log    `yaml:"log"`
	Report Report `yaml:"report"`
}

// Default returns the configuration used when no file is present: train on
// the 2024 Australian Grand Prix, evaluate on the 2025 one.
func Default() *Config {
	return &Config{
		Train:  Event{Year: 2024, Round: 3},
		Target: Event{Year: 2025, Round: 3},
		Model: Model{
			Kind:         "gradient_boosting",
			NEstimators:  100,
			LearningRate: 0.1,
			MaxDepth:     3,
			Subsample:    1.0,
			TestSize:     0.2,
			Seed:         39,
		},
		OpenF1: OpenF1{BaseURL: openf1.DefaultBaseURL},
		Cache:  Cache{Path: "cache/openf1.db"},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Read decodes YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Read(r io.Reader) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg := Default()
	if len(bytes.TrimSpace(content)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "decode config")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	events := []struct {
		name string
		ev   Event
	}{{"train", c.Train}, {"target", c.Target}}
	for _, e := range events {
		if e.ev.Year < 1 {
			return errors.NewValidationError(e.name+".year", "must be positive", e.ev.Year)
		}
		if e.ev.Round < 1 {
			return errors.NewValidationError(e.name+".round", "must be at least 1", e.ev.Round)
		}
	}

	m := c.Model
	switch {
	case m.Kind != "gradient_boosting" && m.Kind != "linear":
		return errors.NewValidationError("model.kind", "must be gradient_boosting or linear", m.Kind)
	case m.NEstimators < 1:
		return errors.NewValidationError("model.n_estimators", "must be at least 1", m.NEstimators)
	case m.LearningRate <= 0:
		return errors.NewValidationError("model.learning_rate", "must be positive", m.LearningRate)
	case m.MaxDepth == 0 || m.MaxDepth < -1:
		return errors.NewValidationError("model.max_depth", "must be positive, or -1 for unlimited", m.MaxDepth)
	case m.Subsample <= 0 || m.Subsample > 1:
		return errors.NewValidationError("model.subsample", "must be in (0, 1]", m.Subsample)
	case m.TestSize <= 0 || m.TestSize >= 1:
		return errors.NewValidationError("model.test_size", "must be in (0, 1)", m.TestSize)
	}

	if c.OpenF1.Timeout < 0 {
		return errors.NewValidationError("openf1.timeout", "must not be negative", c.OpenF1.Timeout)
	}
	if !c.Cache.Disabled && c.Cache.Path == "" {
		return errors.NewValidationError("cache.path", "required unless the cache is disabled", c.Cache.Path)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}
	return nil
}
