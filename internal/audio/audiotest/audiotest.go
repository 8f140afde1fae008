// Package audiotest provides an in-memory audio.Host for tests. Buffers are
// delivered by calling the Deliver helpers, standing in for the platform's
// real-time callback.
package audiotest

import (
	"errors"
	"sync"

	"github.com/petems/voicegpt/internal/audio"
)

// ErrNotStarted is returned by Deliver helpers when the stream is not running.
var ErrNotStarted = errors.New("stream not started")

// Host is a fake audio.Host.
type Host struct {
	Default    *Device
	Devices    []*Device
	DefaultErr error
	ListErr    error
	Closed     bool
}

func (h *Host) DefaultInputDevice() (audio.Device, error) {
	if h.DefaultErr != nil {
		return nil, h.DefaultErr
	}
	if h.Default == nil {
		return nil, nil
	}
	return h.Default, nil
}

func (h *Host) InputDevices() ([]audio.Device, error) {
	if h.ListErr != nil {
		return nil, h.ListErr
	}
	out := make([]audio.Device, 0, len(h.Devices))
	for _, d := range h.Devices {
		out = append(out, d)
	}
	return out, nil
}

func (h *Host) Close() error {
	h.Closed = true
	return nil
}

// Device is a fake input device. Each Open replaces the previous stream.
type Device struct {
	DeviceName   string
	NativeFormat audio.StreamFormat
	FormatErr    error
	OpenErr      error
	StartErr     error

	mu     sync.Mutex
	sink   audio.Sink
	stream *Stream
	opens  int
}

// NewDevice returns a device reporting format.
func NewDevice(name string, format audio.StreamFormat) *Device {
	return &Device{DeviceName: name, NativeFormat: format}
}

func (d *Device) Name() string { return d.DeviceName }

func (d *Device) Format() (audio.StreamFormat, error) {
	if d.FormatErr != nil {
		return audio.StreamFormat{}, d.FormatErr
	}
	return d.NativeFormat, nil
}

func (d *Device) Open(format audio.StreamFormat, sink audio.Sink) (audio.Stream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
	d.stream = &Stream{startErr: d.StartErr}
	d.opens++
	return d.stream, nil
}

// Opens returns how many streams have been opened on d.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Stream returns the most recently opened stream, or nil.
func (d *Device) Stream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

func (d *Device) running() (audio.Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil || !d.stream.Running() {
		return nil, ErrNotStarted
	}
	return d.sink, nil
}

// DeliverInt16 hands in to the sink as one callback invocation.
func (d *Device) DeliverInt16(in []int16) error {
	sink, err := d.running()
	if err != nil {
		return err
	}
	sink.WriteInt16(in)
	return nil
}

// DeliverInt8 hands in to the sink as one callback invocation.
func (d *Device) DeliverInt8(in []int8) error {
	sink, err := d.running()
	if err != nil {
		return err
	}
	sink.WriteInt8(in)
	return nil
}

// DeliverInt32 hands in to the sink as one callback invocation.
func (d *Device) DeliverInt32(in []int32) error {
	sink, err := d.running()
	if err != nil {
		return err
	}
	sink.WriteInt32(in)
	return nil
}

// DeliverFloat32 hands in to the sink as one callback invocation.
func (d *Device) DeliverFloat32(in []float32) error {
	sink, err := d.running()
	if err != nil {
		return err
	}
	sink.WriteFloat32(in)
	return nil
}

// Sink returns the sink registered by the last Open, even after the stream
// stopped. Tests use it to simulate a callback racing Stop.
func (d *Device) Sink() audio.Sink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sink
}

// Stream is a fake audio.Stream.
type Stream struct {
	mu       sync.Mutex
	startErr error
	started  bool
	stopped  bool
	closed   bool
}

func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Running reports whether the stream was started and not yet stopped.
func (s *Stream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped && !s.closed
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
