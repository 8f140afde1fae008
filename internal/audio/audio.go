// Package audio describes input devices and the format they capture in.
// Platform hosts (see the portaudio subpackage) implement Host, Device and
// Stream; Gateway resolves devices by name on top of any Host.
package audio

import (
	"errors"
	"fmt"

	"github.com/petems/voicegpt/internal/sample"
)

// DefaultDevice selects the host's default input device.
const DefaultDevice = "default"

// ErrDeviceNotFound is returned when no input device matches a name.
var ErrDeviceNotFound = errors.New("audio device not found")

// Encoding is the numeric representation of captured samples.
type Encoding int

const (
	Integer Encoding = iota
	Float
)

func (e Encoding) String() string {
	if e == Float {
		return "float"
	}
	return "int"
}

// StreamFormat is the native capture format of a device. It is fixed for
// the lifetime of a recording.
type StreamFormat struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	Encoding      Encoding
}

// FormatOf builds the StreamFormat for a channel count, rate and sample kind.
func FormatOf(channels uint16, sampleRate uint32, kind sample.Kind) StreamFormat {
	f := StreamFormat{
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: uint16(kind.Bits()),
	}
	if kind.IsFloat() {
		f.Encoding = Float
	}
	return f
}

// Kind returns the sample representation matching f, or 0 if f is not one
// of the supported combinations.
func (f StreamFormat) Kind() sample.Kind {
	if f.Encoding == Float {
		if f.BitsPerSample == 32 {
			return sample.Float32
		}
		return 0
	}
	switch f.BitsPerSample {
	case 8:
		return sample.Int8
	case 16:
		return sample.Int16
	case 32:
		return sample.Int32
	}
	return 0
}

// Validate checks that f describes something we can capture and store.
func (f StreamFormat) Validate() error {
	if f.Channels == 0 {
		return fmt.Errorf("invalid channel count 0")
	}
	if f.SampleRate == 0 {
		return fmt.Errorf("invalid sample rate 0")
	}
	if f.Kind() == 0 {
		return fmt.Errorf("unsupported sample format: %d-bit %s", f.BitsPerSample, f.Encoding)
	}
	return nil
}

// BlockAlign is the size in bytes of one interleaved frame.
func (f StreamFormat) BlockAlign() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

func (f StreamFormat) String() string {
	return fmt.Sprintf("%dch %dHz %d-bit %s", f.Channels, f.SampleRate, f.BitsPerSample, f.Encoding)
}

// Sink receives interleaved sample buffers from a stream's real-time
// callback. Implementations must not block: the buffer is only valid for
// the duration of the call.
type Sink interface {
	WriteInt8(in []int8)
	WriteInt16(in []int16)
	WriteInt32(in []int32)
	WriteFloat32(in []float32)
}

// Stream is an opened capture stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Device is an input device known to a Host.
type Device interface {
	Name() string
	// Format reports the device's native capture format.
	Format() (StreamFormat, error)
	// Open prepares a stream delivering buffers in format to sink. The
	// stream does not deliver anything until Start.
	Open(format StreamFormat, sink Sink) (Stream, error)
}

// Host enumerates input devices of a platform audio subsystem.
type Host interface {
	DefaultInputDevice() (Device, error)
	InputDevices() ([]Device, error)
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}
