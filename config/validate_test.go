package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// valid returns a config that passes Validate
func valid() *Config {
	cfg := &Config{
		Sink:          SinkHomeAssistant,
		HomeAssistant: HomeAssistantConfig{URL: "http://ha:8123"},
		Buses: []BusConfig{
			{
				Device: "/dev/ttyUSB0",
				Controllers: []ControllerConfig{
					{Name: "a", Address: 1},
					{Name: "b", Address: 2},
				},
			},
		},
		Combined: &CombinedConfig{A: "a", B: "b"},
	}
	Defaults(cfg)
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(valid()))
}

func TestValidate_ControllersAcrossBuses(t *testing.T) {
	cfg := valid()
	cfg.Buses = append(cfg.Buses, BusConfig{
		Device:      "/dev/ttyUSB1",
		Baud:        9600,
		Controllers: []ControllerConfig{{Name: "c", Address: 1}},
	})
	// Same address on a different bus is fine
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]func(*Config){
		"nil sink url":      func(c *Config) { c.HomeAssistant.URL = "" },
		"unknown sink":      func(c *Config) { c.Sink = "stdout" },
		"bad level":         func(c *Config) { c.LogLevel = "loud" },
		"zero interval":     func(c *Config) { c.Interval = 0 },
		"negative attempts": func(c *Config) { c.MaxAttempts = -1 },
		"no buses":          func(c *Config) { c.Buses = nil },
		"no device":         func(c *Config) { c.Buses[0].Device = "" },
		"no controllers":    func(c *Config) { c.Buses[0].Controllers = nil },
		"duplicate address": func(c *Config) { c.Buses[0].Controllers[1].Address = 1 },
		"duplicate name":    func(c *Config) { c.Buses[0].Controllers[1].Name = "a" },
		"bad name":          func(c *Config) { c.Buses[0].Controllers[0].Name = "Charger A" },
		"combined same":     func(c *Config) { c.Combined.B = "a" },
		"combined unknown":  func(c *Config) { c.Combined.B = "z" },
		"combined clash":    func(c *Config) { c.Combined.Name = "a" },
		"duplicate device": func(c *Config) {
			c.Buses = append(c.Buses, BusConfig{
				Device:      c.Buses[0].Device,
				Baud:        9600,
				Controllers: []ControllerConfig{{Name: "c", Address: 3}},
			})
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_HemtjanstNeedsNoURL(t *testing.T) {
	cfg := valid()
	cfg.Sink = SinkHemtjanst
	cfg.HomeAssistant.URL = ""
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}
