package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/blackandwhitetux/solafans-rs485/logger"
)

// Names end up in entity ids and MQTT topics
var validName = regexp.MustCompile(`^[a-z0-9_]+$`)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("config: unknown log_level %q", cfg.LogLevel)
	}
	if cfg.Interval <= 0 {
		return errors.New("config: interval must be > 0")
	}
	if cfg.MaxAttempts < 0 {
		return errors.New("config: max_attempts must be >= 0")
	}

	switch cfg.Sink {
	case SinkHomeAssistant:
		if cfg.HomeAssistant.URL == "" {
			return errors.New("config: homeassistant.url is required for the homeassistant sink")
		}
	case SinkHemtjanst:
	default:
		return fmt.Errorf("config: unknown sink %q", cfg.Sink)
	}

	if len(cfg.Buses) == 0 {
		return errors.New("config: at least one bus required")
	}

	names := map[string]bool{}
	devices := map[string]bool{}
	for _, b := range cfg.Buses {
		if b.Device == "" {
			return errors.New("config: bus device required")
		}
		if devices[b.Device] {
			return fmt.Errorf("config: device %s listed twice, put its controllers on one bus", b.Device)
		}
		devices[b.Device] = true

		if b.Baud <= 0 {
			return fmt.Errorf("config: bus %s: baud must be > 0", b.Device)
		}
		if len(b.Controllers) == 0 {
			return fmt.Errorf("config: bus %s: at least one controller required", b.Device)
		}

		addrs := map[uint8]string{}
		for _, c := range b.Controllers {
			if !validName.MatchString(c.Name) {
				return fmt.Errorf("config: bus %s: controller name %q must match %s", b.Device, c.Name, validName)
			}
			if names[c.Name] {
				return fmt.Errorf("config: controller name %q used twice", c.Name)
			}
			names[c.Name] = true

			if prev, ok := addrs[c.Address]; ok {
				return fmt.Errorf(
					"config: bus %s: address %d used by %q and %q",
					b.Device, c.Address, prev, c.Name,
				)
			}
			addrs[c.Address] = c.Name
		}
	}

	if c := cfg.Combined; c != nil {
		if !validName.MatchString(c.Name) {
			return fmt.Errorf("config: combined name %q must match %s", c.Name, validName)
		}
		if names[c.Name] {
			return fmt.Errorf("config: combined name %q clashes with a controller", c.Name)
		}
		if c.A == c.B {
			return errors.New("config: combined a and b must be different controllers")
		}
		for _, n := range []string{c.A, c.B} {
			if !names[n] {
				return fmt.Errorf("config: combined references unknown controller %q", n)
			}
		}
	}
	return nil
}
