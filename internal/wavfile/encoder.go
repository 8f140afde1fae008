// Package wavfile writes captured audio to a RIFF/WAVE file. The header is
// written provisionally on Create and patched with the final sizes on
// Finalize, so a file is only complete once Finalize returns nil.
//
// An Encoder is not safe for concurrent use; callers sharing one between
// goroutines must serialize access.
package wavfile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/petems/voicegpt/internal/audio"
	"github.com/petems/voicegpt/internal/sample"
)

// WAVE format tags.
const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

const defaultFlushFrames = 4096

// maxDataBytes is the largest data chunk whose size, and the RIFF size
// derived from it, still fits the header's 32-bit fields.
const maxDataBytes = math.MaxUint32 - 36

var (
	// ErrFinalized is returned by Finalize when the encoder is already closed.
	ErrFinalized = errors.New("encoder already finalized")
	// ErrPoisoned is returned by Finalize when an earlier write failed and
	// the file can no longer be trusted.
	ErrPoisoned = errors.New("encoder poisoned by write failure")
	// ErrUnsupportedFormat is returned by Create for formats WAV cannot hold.
	ErrUnsupportedFormat = errors.New("unsupported stream format")
)

// State is the lifecycle state of an Encoder.
type State int

const (
	Open State = iota
	Finalized
	Poisoned
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Finalized:
		return "finalized"
	case Poisoned:
		return "poisoned"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger used to report the first write failure.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Encoder) {
		e.log = log
	}
}

// WithFlushFrames sets how many frames are buffered before they are
// written to the file.
func WithFlushFrames(n int) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.flushFrames = n
		}
	}
}

// Encoder streams samples of a fixed StreamFormat into a WAV file.
type Encoder struct {
	path   string
	format audio.StreamFormat
	kind   sample.Kind
	file   *os.File
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	log    zerolog.Logger
	state  State

	flushFrames int
	pending     []int
	frames      int64 // frames handed to the file
	dropped     int64 // samples lost to write failures, misuse, a full file or a partial last frame
	writeErr    error
	maxData     int64
	full        bool
}

// Create truncates (or creates) the file at path, creating parent
// directories as needed, and writes a provisional header for format.
func Create(path string, format audio.StreamFormat, opts ...Option) (*Encoder, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	e := &Encoder{
		path:        path,
		format:      format,
		kind:        format.Kind(),
		log:         zerolog.Nop(),
		flushFrames: defaultFlushFrames,
		maxData:     maxDataBytes,
	}
	for _, opt := range opts {
		opt(e)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	tag := formatPCM
	if format.Encoding == audio.Float {
		tag = formatIEEEFloat
	}
	e.file = f
	e.enc = wav.NewEncoder(f, int(format.SampleRate), int(format.BitsPerSample), int(format.Channels), tag)
	e.buf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(format.Channels),
			SampleRate:  int(format.SampleRate),
		},
		SourceBitDepth: int(format.BitsPerSample),
	}
	e.pending = make([]int, 0, e.flushFrames*int(format.Channels))

	// An empty write emits the RIFF, fmt and data chunk headers.
	if err := e.enc.Write(e.buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	return e, nil
}

// Path returns the output file path.
func (e *Encoder) Path() string { return e.path }

// Format returns the format the encoder was created with.
func (e *Encoder) Format() audio.StreamFormat { return e.format }

// State returns the lifecycle state.
func (e *Encoder) State() State { return e.state }

// Frames returns the number of whole frames written to the file so far.
// After a successful Finalize this is the frame count in the header.
func (e *Encoder) Frames() int64 { return e.frames }

// Dropped returns the number of samples that were accepted by a write call
// but did not reach the file.
func (e *Encoder) Dropped() int64 { return e.dropped }

// WriteSample appends one sample to an integer-encoded file. v is a
// two's-complement value at the file's bit depth and is saturated to it.
// Failures are counted, never returned.
func (e *Encoder) WriteSample(v int32) {
	if e.state != Open || e.kind.IsFloat() {
		e.dropped++
		return
	}
	switch e.kind {
	case sample.Int8:
		// 8-bit WAV data is unsigned with a 128 offset.
		e.push(int(clamp(v, math.MinInt8, math.MaxInt8)) + 128)
	case sample.Int16:
		e.push(int(clamp(v, math.MinInt16, math.MaxInt16)))
	default:
		e.push(int(v))
	}
}

// WriteFloat appends one sample to a float-encoded file. Failures are
// counted, never returned.
func (e *Encoder) WriteFloat(v float32) {
	if e.state != Open || !e.kind.IsFloat() {
		e.dropped++
		return
	}
	// The go-audio encoder writes 32-bit data as little-endian int32, which
	// is the IEEE-754 bit pattern when we hand it the raw bits.
	e.push(int(int32(math.Float32bits(v))))
}

func (e *Encoder) push(v int) {
	e.pending = append(e.pending, v)
	if len(e.pending) == cap(e.pending) {
		e.flush()
	}
}

// flush writes every whole frame in pending. Frames that would grow the
// data chunk past what the header can describe are dropped.
func (e *Encoder) flush() {
	channels := int(e.format.Channels)
	whole := len(e.pending) - len(e.pending)%channels
	if whole == 0 {
		return
	}

	n := whole
	if room := e.roomFrames() * int64(channels); int64(n) > room {
		n = int(room)
		e.dropped += int64(whole - n)
		if !e.full {
			e.full = true
			e.log.Warn().Str("path", e.path).Int64("frames", e.frames).
				Msg("WAV size limit reached, dropping samples")
		}
	}

	if n > 0 {
		e.buf.Data = e.pending[:n]
		if err := e.enc.Write(e.buf); err != nil {
			e.fail(err, n)
		} else {
			e.frames += int64(n / channels)
		}
	}

	rest := copy(e.pending, e.pending[whole:])
	e.pending = e.pending[:rest]
}

// roomFrames returns how many more frames fit in the data chunk.
func (e *Encoder) roomFrames() int64 {
	align := int64(e.format.BlockAlign())
	room := (e.maxData - e.frames*align) / align
	return max(room, 0)
}

func (e *Encoder) fail(err error, samples int) {
	e.dropped += int64(samples)
	if e.writeErr == nil {
		e.writeErr = err
		e.log.Error().Err(err).Str("path", e.path).Msg("Audio write failed, dropping samples")
	}
	e.state = Poisoned
}

// Finalize flushes buffered frames, patches the header sizes and closes
// the file. The go-audio encoder syncs the file when patching. A trailing partial frame is dropped. Finalize may only
// succeed once; later calls return ErrFinalized.
func (e *Encoder) Finalize() error {
	switch e.state {
	case Finalized:
		return ErrFinalized
	case Poisoned:
		if e.file == nil {
			return ErrFinalized
		}
		// Release the file; the sizes in it cannot be trusted.
		e.file.Close()
		e.file = nil
		return fmt.Errorf("%w: %w", ErrPoisoned, e.writeErr)
	}

	e.flush()
	if partial := len(e.pending); partial > 0 {
		e.dropped += int64(partial)
		e.pending = e.pending[:0]
	}
	if e.state == Poisoned {
		e.file.Close()
		e.file = nil
		return fmt.Errorf("%w: %w", ErrPoisoned, e.writeErr)
	}

	e.state = Finalized
	if err := e.enc.Close(); err != nil {
		e.file.Close()
		e.file = nil
		return fmt.Errorf("failed to finalize header of %s: %w", e.path, err)
	}
	if err := e.file.Close(); err != nil {
		e.file = nil
		return fmt.Errorf("failed to close %s: %w", e.path, err)
	}
	e.file = nil
	return nil
}

// Abort closes the file without finalizing it and removes it.
func (e *Encoder) Abort() error {
	if e.file == nil {
		return nil
	}
	e.state = Finalized
	e.file.Close()
	e.file = nil
	if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", e.path, err)
	}
	return nil
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
