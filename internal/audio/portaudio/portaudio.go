// Package portaudio implements audio.Host on top of PortAudio.
package portaudio

import (
	"fmt"

	pa "github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/voicegpt/internal/audio"
	"github.com/petems/voicegpt/internal/config"
	"github.com/petems/voicegpt/internal/sample"
)

var defaultKinds = []sample.Kind{sample.Int16, sample.Float32, sample.Int32, sample.Int8}

type host struct {
	kinds           []sample.Kind
	maxChannels     int
	framesPerBuffer int
	log             zerolog.Logger
}

// New initializes PortAudio and returns a host over its input devices.
// Close must be called to release PortAudio.
func New(cfg config.AudioConfig, log zerolog.Logger) (audio.Host, error) {
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = defaultKinds
	}

	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = pa.FramesPerBufferUnspecified
	}

	return &host{
		kinds:           kinds,
		maxChannels:     cfg.MaxChannels,
		framesPerBuffer: framesPerBuffer,
		log:             log,
	}, nil
}

func (h *host) DefaultInputDevice() (audio.Device, error) {
	info, err := pa.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to get default input device: %w", err)
	}
	return &device{info: info, host: h}, nil
}

func (h *host) InputDevices() ([]audio.Device, error) {
	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	result := make([]audio.Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, &device{info: d, host: h})
		}
	}
	return result, nil
}

func (h *host) Close() error {
	return pa.Terminate()
}

type device struct {
	info *pa.DeviceInfo
	host *host
}

func (d *device) Name() string {
	return d.info.Name
}

// Format reports the device's default sample rate, its input channels
// (capped by max_channels) and the first sample representation from the
// configured preference list that the device accepts.
func (d *device) Format() (audio.StreamFormat, error) {
	channels := clampChannels(d.info.MaxInputChannels, d.host.maxChannels)
	if channels == 0 {
		return audio.StreamFormat{}, fmt.Errorf("device %q has no input channels", d.info.Name)
	}

	rate := uint32(d.info.DefaultSampleRate)
	for _, kind := range d.host.kinds {
		f := audio.FormatOf(uint16(channels), rate, kind)
		cb, err := callbackFor(kind, discard{})
		if err != nil {
			return audio.StreamFormat{}, err
		}
		if err := pa.IsFormatSupported(d.params(f), cb); err != nil {
			d.host.log.Debug().Err(err).Str("device", d.info.Name).Str("format", f.String()).Msg("Format rejected")
			continue
		}
		return f, nil
	}
	return audio.StreamFormat{}, fmt.Errorf("device %q accepts none of the sample formats %v", d.info.Name, d.host.kinds)
}

// Open creates an input-only stream whose callback forwards every buffer
// to sink. PortAudio invokes the callback on its real-time thread.
func (d *device) Open(format audio.StreamFormat, sink audio.Sink) (audio.Stream, error) {
	cb, err := callbackFor(format.Kind(), sink)
	if err != nil {
		return nil, err
	}

	stream, err := pa.OpenStream(d.params(format), cb)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

func (d *device) params(f audio.StreamFormat) pa.StreamParameters {
	return pa.StreamParameters{
		Input: pa.StreamDeviceParameters{
			Device:   d.info,
			Channels: int(f.Channels),
			Latency:  d.info.DefaultLowInputLatency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: d.host.framesPerBuffer,
	}
}

func clampChannels(available, max int) int {
	if available < 0 {
		return 0
	}
	if max > 0 && available > max {
		return max
	}
	return available
}

// callbackFor returns a PortAudio input callback of the buffer type
// matching kind.
func callbackFor(kind sample.Kind, sink audio.Sink) (interface{}, error) {
	switch kind {
	case sample.Int8:
		return func(in []int8) { sink.WriteInt8(in) }, nil
	case sample.Int16:
		return func(in []int16) { sink.WriteInt16(in) }, nil
	case sample.Int32:
		return func(in []int32) { sink.WriteInt32(in) }, nil
	case sample.Float32:
		return func(in []float32) { sink.WriteFloat32(in) }, nil
	}
	return nil, fmt.Errorf("unsupported sample format %v", kind)
}

// discard is the sink used when probing formats.
type discard struct{}

func (discard) WriteInt8([]int8)       {}
func (discard) WriteInt16([]int16)     {}
func (discard) WriteInt32([]int32)     {}
func (discard) WriteFloat32([]float32) {}
