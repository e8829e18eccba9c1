package meta

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"chronometer/internal/log"
)

const (
	// ClockMonotonic selects the real-time clock with monotonic readings.
	ClockMonotonic = "monotonic"
	// ClockWall selects the real-time clock with monotonic readings stripped.
	ClockWall = "wall"
)

// ApplicationConfig is a top-level block for application-level meta configuration.
type ApplicationConfig struct {
	SentryDSN string `yaml:"sentry_dsn"`
	// Verbosity is used when no verbosity flag is passed on the command line.
	Verbosity *log.Level `yaml:"verbosity"`
}

// MetricsConfig is a top-level block for metrics configuration.
type MetricsConfig struct {
	Statsd *struct {
		Address    string  `yaml:"addr"`
		SampleRate float32 `yaml:"sample_rate"`
	} `yaml:"statsd"`
}

// TimerConfig is a top-level block for timer configuration.
type TimerConfig struct {
	// Clock names the time source: one of ClockMonotonic or ClockWall.
	Clock string `yaml:"clock"`
	// Name identifies the timer in emitted metrics.
	Name string `yaml:"name"`
}

// Config describes all application configuration options.
type Config struct {
	Application *ApplicationConfig `yaml:"application"`
	Metrics     *MetricsConfig     `yaml:"metrics"`
	Timer       *TimerConfig       `yaml:"timer"`
}

// DefaultConfig returns the configuration used when no config file is supplied: a monotonic
// timer named "default", with metrics and error reporting disabled.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// ParseConfig parses a Config struct instance from a file specified as a path on disk. An empty
// path yields DefaultConfig.
func ParseConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: error reading config")
	}

	return parseConfig(data)
}

// parseConfig parses and validates raw YAML configuration.
func parseConfig(data []byte) (*Config, error) {
	var cfg *Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: error parsing config")
	}

	// An empty document decodes to nil.
	if cfg == nil {
		cfg = &Config{}
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills in omitted optional blocks and values.
func (c *Config) applyDefaults() {
	if c.Application == nil {
		c.Application = &ApplicationConfig{}
	}

	if c.Timer == nil {
		c.Timer = &TimerConfig{}
	}

	if c.Timer.Clock == "" {
		c.Timer.Clock = ClockMonotonic
	}

	if c.Timer.Name == "" {
		c.Timer.Name = "default"
	}
}

// validate the contents of the configuration. Returns an error if validation failed; nil otherwise.
func (c *Config) validate() error {
	/* Metrics */

	// Users can omit the metrics block entirely to disable metrics reporting.
	if c.Metrics != nil && c.Metrics.Statsd != nil {
		if c.Metrics.Statsd.Address == "" {
			return errors.New("config: missing metrics statsd address")
		}

		if c.Metrics.Statsd.SampleRate < 0 || c.Metrics.Statsd.SampleRate > 1 {
			return errors.New("config: statsd sample rate must be in range [0.0, 1.0]")
		}
	}

	/* Timer */

	switch c.Timer.Clock {
	case ClockMonotonic, ClockWall:
	default:
		return errors.Errorf("config: unknown timer clock: clock=%s", c.Timer.Clock)
	}

	return nil
}
