package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lib.hemtjan.st/device"
)

type fakeHemtjanst struct {
	infos   []*device.Info
	updates map[string]string
	err     error
}

func (f *fakeHemtjanst) newDevice(info *device.Info) (UpdateFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.infos = append(f.infos, info)
	return func(feature, value string) error {
		f.updates[info.Topic+"/"+feature] = value
		return nil
	}, nil
}

func TestHemtjanstPublish(t *testing.T) {
	f := &fakeHemtjanst{updates: map[string]string{}}
	h := NewHemtjanst("solar", f.newDevice, map[string][]string{
		"mppt_charger_a": {"battery_voltage", "operating_status_fan"},
	})

	ctx := context.Background()
	require.NoError(t, h.Publish(ctx, Sensor{Device: "mppt_charger_a", Key: "battery_voltage", Value: Number(decimal.New(1336, -2))}))
	require.NoError(t, h.Publish(ctx, Sensor{Device: "mppt_charger_a", Key: "operating_status_fan", Value: true}))

	// Device announced once
	require.Len(t, f.infos, 1)
	info := f.infos[0]
	assert.Equal(t, "solar/mppt_charger_a", info.Topic)
	assert.Equal(t, "Mppt Charger A", info.Name)
	assert.Len(t, info.Features, 2)
	assert.Contains(t, info.Features, "battery_voltage")

	assert.Equal(t, map[string]string{
		"solar/mppt_charger_a/battery_voltage":      "13.36",
		"solar/mppt_charger_a/operating_status_fan": "true",
	}, f.updates)
}

func TestHemtjanstUnknownDevice(t *testing.T) {
	f := &fakeHemtjanst{updates: map[string]string{}}
	h := NewHemtjanst("solar", f.newDevice, nil)
	assert.Error(t, h.Publish(context.Background(), Sensor{Device: "x", Key: "k"}))
}

func TestHemtjanstDeviceError(t *testing.T) {
	f := &fakeHemtjanst{err: errors.New("mqtt down")}
	h := NewHemtjanst("solar", f.newDevice, map[string][]string{"a": {"k"}})
	err := h.Publish(context.Background(), Sensor{Device: "a", Key: "k"})
	assert.ErrorIs(t, err, f.err)
}

func TestHemtjanstUpdatesRunConcurrently(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := NewHemtjanst("solar", func(info *device.Info) (UpdateFunc, error) {
		return func(feature, value string) error {
			if feature == "slow" {
				close(entered)
				<-release
			}
			return nil
		}, nil
	}, map[string][]string{"a": {"slow", "fast"}})

	ctx := context.Background()
	slow := make(chan error, 1)
	go func() { slow <- h.Publish(ctx, Sensor{Device: "a", Key: "slow"}) }()
	<-entered

	fast := make(chan error, 1)
	go func() { fast <- h.Publish(ctx, Sensor{Device: "a", Key: "fast"}) }()
	select {
	case err := <-fast:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("update blocked behind a running update")
	}

	close(release)
	assert.NoError(t, <-slow)
}
