package insights

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Trend classifies a metric's change between windows
type Trend string

const (
	TrendSurge Trend = "surge"
	TrendUp    Trend = "up"
	TrendFlat  Trend = "flat"
	TrendDown  Trend = "down"
	TrendDrop  Trend = "drop"
	TrendNew   Trend = "new"
)

// Severity tells the dashboard how to color an insight
type Severity string

const (
	SeverityPositive Severity = "positive"
	SeverityNeutral  Severity = "neutral"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityPositive, SeverityNeutral, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Kind decides how a metric's current value is formatted
type Kind string

const (
	KindMoney Kind = "money"
	KindCount Kind = "count"
)

// Band is one threshold row; Min nil means "everything below the previous band"
type Band struct {
	Min      *float64 `yaml:"min"`
	Trend    Trend    `yaml:"trend"`
	Severity Severity `yaml:"severity"`
	Message  string   `yaml:"message"`
}

// MetricConfig holds the label, value kind and ordered bands for one metric
type MetricConfig struct {
	Label string `yaml:"label"`
	Kind  Kind   `yaml:"kind"`
	Bands []Band `yaml:"bands"`
}

// Config is the whole threshold table
type Config struct {
	NewMessage string                      `yaml:"new_message"`
	Metrics    map[MetricKey]*MetricConfig `yaml:"metrics"`
}

// DefaultConfig returns the embedded threshold table
func DefaultConfig() *Config {
	cfg, err := ParseConfig(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("insights: embedded config invalid: %v", err))
	}
	return cfg
}

// LoadConfig reads a YAML threshold table from disk. An empty path returns the default.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read insights config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a threshold table
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse insights config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every known metric has well-ordered bands ending in a catch-all
func (c *Config) Validate() error {
	var errs []error

	if c.NewMessage == "" {
		errs = append(errs, errors.New("new_message is required"))
	}
	for key := range c.Metrics {
		if !key.valid() {
			errs = append(errs, fmt.Errorf("unknown metric %q", key))
		}
	}
	for _, key := range AllMetrics {
		m, ok := c.Metrics[key]
		if !ok || m == nil {
			errs = append(errs, fmt.Errorf("metric %s: missing", key))
			continue
		}
		if m.Label == "" {
			errs = append(errs, fmt.Errorf("metric %s: label is required", key))
		}
		if m.Kind != KindMoney && m.Kind != KindCount {
			errs = append(errs, fmt.Errorf("metric %s: kind must be money or count", key))
		}
		if len(m.Bands) == 0 {
			errs = append(errs, fmt.Errorf("metric %s: at least one band is required", key))
			continue
		}
		for i, b := range m.Bands {
			last := i == len(m.Bands)-1
			switch {
			case last && b.Min != nil:
				errs = append(errs, fmt.Errorf("metric %s: last band must not set min", key))
			case !last && b.Min == nil:
				errs = append(errs, fmt.Errorf("metric %s: band %d must set min", key, i))
			case !last && i > 0 && m.Bands[i-1].Min != nil && *b.Min >= *m.Bands[i-1].Min:
				errs = append(errs, fmt.Errorf("metric %s: band %d min must be below band %d", key, i, i-1))
			}
			if b.Trend == "" {
				errs = append(errs, fmt.Errorf("metric %s: band %d trend is required", key, i))
			}
			if !b.Severity.valid() {
				errs = append(errs, fmt.Errorf("metric %s: band %d severity %q is invalid", key, i, b.Severity))
			}
			if b.Message == "" {
				errs = append(errs, fmt.Errorf("metric %s: band %d message is required", key, i))
			}
		}
	}

	return errors.Join(errs...)
}

// band returns the first band whose min is at or below delta
func (m *MetricConfig) band(delta float64) Band {
	for _, b := range m.Bands {
		if b.Min == nil || delta >= *b.Min {
			return b
		}
	}
	return m.Bands[len(m.Bands)-1]
}
