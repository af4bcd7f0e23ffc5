package publish

import (
	"context"
	"fmt"
	"sync"

	"lib.hemtjan.st/device"
	"lib.hemtjan.st/feature"
)

// UpdateFunc sets feature of a hemtjanst device to value.
type UpdateFunc func(feature, value string) error

// DeviceFactory announces a hemtjanst device and returns a way to update
// its features.
type DeviceFactory func(info *device.Info) (UpdateFunc, error)

// Hemtjanst publishes sensors as features of hemtjanst devices, one
// device per sensor Device. Devices are announced on first use with every
// feature they will ever report, since hemtjanst needs the full list up
// front.
type Hemtjanst struct {
	topicPrefix string
	newDevice   DeviceFactory
	features    map[string][]string

	mu      sync.Mutex
	devices map[string]UpdateFunc
}

// NewHemtjanst creates a sink for the given devices, keyed by device name
// with the list of feature keys each of them carries.
func NewHemtjanst(topicPrefix string, newDevice DeviceFactory, features map[string][]string) *Hemtjanst {
	return &Hemtjanst{
		topicPrefix: topicPrefix,
		newDevice:   newDevice,
		features:    features,
		devices:     map[string]UpdateFunc{},
	}
}

func (h *Hemtjanst) Publish(_ context.Context, s Sensor) error {
	h.mu.Lock()
	update, err := h.device(s.Device)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if err := update(s.Key, s.String()); err != nil {
		return fmt.Errorf("publish: %s/%s: %w", s.Device, s.Key, err)
	}
	return nil
}

// device must be called with h.mu held.
func (h *Hemtjanst) device(name string) (UpdateFunc, error) {
	if d, ok := h.devices[name]; ok {
		return d, nil
	}
	keys, ok := h.features[name]
	if !ok {
		return nil, fmt.Errorf("publish: unknown hemtjanst device %q", name)
	}

	info := &device.Info{
		Topic:        h.topicPrefix + "/" + name,
		Name:         friendlyName(name),
		Manufacturer: "Solafans",
		Model:        "MPPT charge controller",
		Type:         "solarController",
		Features:     map[string]*feature.Info{},
	}
	for _, k := range keys {
		info.Features[k] = &feature.Info{}
	}

	d, err := h.newDevice(info)
	if err != nil {
		return nil, fmt.Errorf("publish: creating hemtjanst device %s: %w", name, err)
	}
	h.devices[name] = d
	return d, nil
}
