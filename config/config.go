// Package config loads and checks the daemon configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink names
const (
	SinkHomeAssistant = "homeassistant"
	SinkHemtjanst     = "hemtjanst"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	// Interval between poll cycles of a bus
	Interval time.Duration `yaml:"interval"`
	// MaxAttempts per poll, 0 retries until a valid frame arrives
	MaxAttempts int `yaml:"max_attempts"`
	// PublishConcurrency bounds concurrent sensor updates per reading
	PublishConcurrency int `yaml:"publish_concurrency"`

	Sink          string              `yaml:"sink"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Hemtjanst     HemtjanstConfig     `yaml:"hemtjanst"`
	Metrics       MetricsConfig       `yaml:"metrics"`

	Buses    []BusConfig     `yaml:"buses"`
	Combined *CombinedConfig `yaml:"combined"`
}

type HomeAssistantConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type HemtjanstConfig struct {
	TopicPrefix string `yaml:"topic_prefix"`
}

type MetricsConfig struct {
	// Listen address for /metrics, disabled when empty
	Listen string `yaml:"listen"`
}

// BusConfig is one serial device and the controllers wired to it.
type BusConfig struct {
	Device      string             `yaml:"device"`
	Baud        int                `yaml:"baud"`
	ReadTimeout time.Duration      `yaml:"read_timeout"`
	Controllers []ControllerConfig `yaml:"controllers"`
}

type ControllerConfig struct {
	// Name prefixes every published sensor of the controller
	Name    string `yaml:"name"`
	Address uint8  `yaml:"address"`
}

// CombinedConfig pairs two controllers for the combined sensors. Voltage
// for combined power is taken from A.
type CombinedConfig struct {
	Name string `yaml:"name"`
	A    string `yaml:"a"`
	B    string `yaml:"b"`
}

// Load reads a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults fills unset values. It must be called before Validate.
func Defaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	if cfg.PublishConcurrency == 0 {
		cfg.PublishConcurrency = 8
	}
	if cfg.Sink == "" {
		cfg.Sink = SinkHomeAssistant
	}
	if cfg.HomeAssistant.Timeout == 0 {
		cfg.HomeAssistant.Timeout = 5 * time.Second
	}
	if cfg.Hemtjanst.TopicPrefix == "" {
		cfg.Hemtjanst.TopicPrefix = "solar"
	}
	for i := range cfg.Buses {
		b := &cfg.Buses[i]
		if b.Baud == 0 {
			b.Baud = 9600
		}
		if b.ReadTimeout == 0 {
			b.ReadTimeout = time.Second
		}
	}
	if cfg.Combined != nil && cfg.Combined.Name == "" {
		cfg.Combined.Name = "mppt_charger_combined"
	}
}

// ParseControllers parses a comma separated list of name=address pairs,
// e.g. "mppt_charger_a=1,mppt_charger_b=2". Addresses accept 0x prefixes.
func ParseControllers(s string) ([]ControllerConfig, error) {
	var out []ControllerConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, addr, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("config: controller %q: want name=address", part)
		}
		v, err := strconv.ParseUint(addr, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("config: controller %q: %w", part, err)
		}
		out = append(out, ControllerConfig{Name: name, Address: uint8(v)})
	}
	return out, nil
}
