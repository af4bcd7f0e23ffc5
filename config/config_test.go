package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
interval: 2s
max_attempts: 5
sink: homeassistant
homeassistant:
  url: http://192.168.1.245:8123
  token: secret
buses:
  - device: /dev/ttyUSB0
    controllers:
      - {name: mppt_charger_a, address: 1}
      - {name: mppt_charger_b, address: 2}
combined:
  a: mppt_charger_a
  b: mppt_charger_b
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	Defaults(cfg)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 8, cfg.PublishConcurrency)
	assert.Equal(t, "secret", cfg.HomeAssistant.Token)
	assert.Equal(t, 5*time.Second, cfg.HomeAssistant.Timeout)

	require.Len(t, cfg.Buses, 1)
	b := cfg.Buses[0]
	assert.Equal(t, 9600, b.Baud)
	assert.Equal(t, time.Second, b.ReadTimeout)
	assert.Equal(t, []ControllerConfig{
		{Name: "mppt_charger_a", Address: 1},
		{Name: "mppt_charger_b", Address: 2},
	}, b.Controllers)

	require.NotNil(t, cfg.Combined)
	assert.Equal(t, "mppt_charger_combined", cfg.Combined.Name)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("interval: [1"))
	assert.Error(t, err)

	_, err = Parse([]byte("interval: soon"))
	assert.Error(t, err)
}

func TestParseControllers(t *testing.T) {
	cs, err := ParseControllers("a=1, b=0x02,")
	require.NoError(t, err)
	assert.Equal(t, []ControllerConfig{{Name: "a", Address: 1}, {Name: "b", Address: 2}}, cs)

	for _, in := range []string{"a", "=1", "a=256", "a=x"} {
		_, err := ParseControllers(in)
		assert.Error(t, err, in)
	}
}
