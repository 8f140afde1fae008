package audio

import (
	"fmt"
)

// Gateway resolves input devices by name on a Host.
type Gateway struct {
	host Host
}

// NewGateway wraps host.
func NewGateway(host Host) *Gateway {
	return &Gateway{host: host}
}

// Resolve returns the device called name. An empty name or "default"
// selects the host's default input device; anything else must match a
// device name exactly.
func (g *Gateway) Resolve(name string) (Device, error) {
	if name == "" || name == DefaultDevice {
		dev, err := g.host.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w: %w", ErrDeviceNotFound, err)
		}
		if dev == nil {
			return nil, fmt.Errorf("default input device: %w", ErrDeviceNotFound)
		}
		return dev, nil
	}

	devices, err := g.host.InputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// QueryFormat returns dev's native format. It is never adjusted: whatever
// the device reports is what gets recorded.
func (g *Gateway) QueryFormat(dev Device) (StreamFormat, error) {
	f, err := dev.Format()
	if err != nil {
		return StreamFormat{}, fmt.Errorf("failed to query format of %q: %w", dev.Name(), err)
	}
	if err := f.Validate(); err != nil {
		return StreamFormat{}, fmt.Errorf("device %q: %w", dev.Name(), err)
	}
	return f, nil
}

// ListDevices returns every input device, flagging the default one.
func (g *Gateway) ListDevices() ([]AudioDevice, error) {
	devices, err := g.host.InputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var defaultName string
	if d, err := g.host.DefaultInputDevice(); err == nil && d != nil {
		defaultName = d.Name()
	}

	result := make([]AudioDevice, 0, len(devices))
	for _, d := range devices {
		result = append(result, AudioDevice{
			ID:      d.Name(),
			Name:    d.Name(),
			Default: d.Name() == defaultName,
		})
	}
	return result, nil
}
