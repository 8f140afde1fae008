// Package recorder captures one input device to a WAV file at a time.
//
// A Session is driven from a control goroutine (Start/Stop) while the
// platform delivers sample buffers on its own real-time thread. The two
// share the encoder through a mutex: the callback only ever TryLocks it
// and drops the buffer on contention, Stop takes it with a blocking Lock.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/petems/voicegpt/internal/audio"
	"github.com/petems/voicegpt/internal/sample"
	"github.com/petems/voicegpt/internal/wavfile"
)

// State is the state of a Session.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Stats counts what happened to the samples delivered during a recording.
type Stats struct {
	// SamplesAccepted were handed to the encoder.
	SamplesAccepted uint64
	// BuffersDropped and SamplesDropped were discarded because Stop held
	// the encoder when the callback ran.
	BuffersDropped uint64
	SamplesDropped uint64
	// LateSamples arrived after the encoder was finalized.
	LateSamples uint64
	// WriteFailures were accepted but never reached the file.
	WriteFailures int64
}

// Result describes a finished recording.
type Result struct {
	ID       uuid.UUID
	Path     string
	Device   string
	Format   audio.StreamFormat
	Frames   int64
	Duration time.Duration
	Stats    Stats
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithFlushFrames sets how many frames the encoder buffers between writes.
func WithFlushFrames(n int) Option {
	return func(s *Session) {
		s.flushFrames = n
	}
}

// Session records from one device at a time into a fixed output path.
type Session struct {
	gateway     *audio.Gateway
	log         zerolog.Logger
	flushFrames int

	mu     sync.Mutex
	path   string
	state  State
	active *recording
	last   Stats
}

// New creates an idle session writing to path.
func New(gateway *audio.Gateway, path string, opts ...Option) *Session {
	s := &Session{
		gateway: gateway,
		path:    path,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens deviceName ("" or "default" for the default input) in its
// native format and begins writing to the output path. On any error the
// session stays Idle.
func (s *Session) Start(deviceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Recording {
		return fmt.Errorf("%w: %s from %q", ErrAlreadyRecording, s.active.format, s.active.device)
	}

	dev, err := s.gateway.Resolve(deviceName)
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	format, err := s.gateway.QueryFormat(dev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	encOpts := []wavfile.Option{wavfile.WithLogger(s.log)}
	if s.flushFrames > 0 {
		encOpts = append(encOpts, wavfile.WithFlushFrames(s.flushFrames))
	}
	enc, err := wavfile.Create(s.path, format, encOpts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncoderCreate, err)
	}

	rec := &recording{
		id:      newID(),
		device:  dev.Name(),
		format:  format,
		kind:    format.Kind(),
		started: time.Now(),
		enc:     enc,
	}

	stream, err := dev.Open(format, rec)
	if err != nil {
		s.abort(enc)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		if cerr := stream.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close stream")
		}
		s.abort(enc)
		return fmt.Errorf("%w: failed to start audio stream: %w", ErrDeviceUnavailable, err)
	}
	rec.stream = stream

	s.active = rec
	s.state = Recording

	s.log.Info().
		Str("session", rec.id.String()).
		Str("device", rec.device).
		Str("format", format.String()).
		Str("path", s.path).
		Msg("Recording started")
	return nil
}

func (s *Session) abort(enc *wavfile.Encoder) {
	if err := enc.Abort(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to remove incomplete recording")
	}
}

// Stop halts the stream, then finalizes the file. The stream is released
// and the session returns to Idle even when finalizing fails; that failure
// is reported as ErrFinalize.
func (s *Session) Stop() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Recording {
		return Result{}, ErrNotRecording
	}

	rec := s.active
	s.active = nil
	s.state = Idle

	// No new callbacks after this; one already running either finishes its
	// write or loses the TryLock race below.
	if err := rec.stream.Stop(); err != nil {
		s.log.Warn().Err(err).Str("session", rec.id.String()).Msg("Failed to stop stream")
	}
	if err := rec.stream.Close(); err != nil {
		s.log.Warn().Err(err).Str("session", rec.id.String()).Msg("Failed to close stream")
	}

	rec.mu.Lock()
	enc := rec.enc
	rec.enc = nil
	rec.mu.Unlock()

	ferr := enc.Finalize()

	res := Result{
		ID:       rec.id,
		Path:     enc.Path(),
		Device:   rec.device,
		Format:   rec.format,
		Frames:   enc.Frames(),
		Duration: time.Since(rec.started),
		Stats:    rec.stats(),
	}
	res.Stats.WriteFailures = enc.Dropped()
	s.last = res.Stats

	var event *zerolog.Event
	if ferr != nil {
		event = s.log.Error().Err(ferr)
	} else {
		event = s.log.Info()
	}
	event.
		Str("session", rec.id.String()).
		Str("path", res.Path).
		Int64("frames", res.Frames).
		Uint64("dropped_buffers", res.Stats.BuffersDropped).
		Uint64("dropped_samples", res.Stats.SamplesDropped).
		Uint64("late_samples", res.Stats.LateSamples).
		Int64("write_failures", res.Stats.WriteFailures).
		Dur("duration", res.Duration).
		Msg("Recording stopped")

	if ferr != nil {
		return res, fmt.Errorf("%w: %w", ErrFinalize, ferr)
	}
	return res, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRecording reports whether a recording is active.
func (s *Session) IsRecording() bool {
	return s.State() == Recording
}

// OutputPath returns the file recordings are written to. The file is only
// complete after Stop has returned without error.
func (s *Session) OutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// SetOutputPath changes where the next recording goes.
func (s *Session) SetOutputPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Recording {
		return fmt.Errorf("%w: cannot change output path", ErrAlreadyRecording)
	}
	s.path = path
	return nil
}

// Stats returns the counters of the active recording, or of the last one
// when idle. WriteFailures is only known once a recording has stopped.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return s.active.stats()
	}
	return s.last
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// recording is the state shared with the real-time callback. It is the
// audio.Sink handed to the device.
type recording struct {
	id      uuid.UUID
	device  string
	format  audio.StreamFormat
	kind    sample.Kind
	stream  audio.Stream
	started time.Time

	mu  sync.Mutex
	enc *wavfile.Encoder // nil once Stop has taken it

	accepted       atomic.Uint64
	buffersDropped atomic.Uint64
	samplesDropped atomic.Uint64
	late           atomic.Uint64
}

func (r *recording) WriteInt8(in []int8)       { deliver(r, in) }
func (r *recording) WriteInt16(in []int16)     { deliver(r, in) }
func (r *recording) WriteInt32(in []int32)     { deliver(r, in) }
func (r *recording) WriteFloat32(in []float32) { deliver(r, in) }

func (r *recording) stats() Stats {
	return Stats{
		SamplesAccepted: r.accepted.Load(),
		BuffersDropped:  r.buffersDropped.Load(),
		SamplesDropped:  r.samplesDropped.Load(),
		LateSamples:     r.late.Load(),
	}
}

// deliver runs on the real-time thread. It must not block, log or fail.
func deliver[T sample.Sample](r *recording, in []T) {
	if len(in) == 0 {
		return
	}
	if !r.mu.TryLock() {
		r.buffersDropped.Inc()
		r.samplesDropped.Add(uint64(len(in)))
		return
	}
	defer r.mu.Unlock()

	if r.enc == nil {
		r.late.Add(uint64(len(in)))
		return
	}

	switch r.kind {
	case sample.Int8:
		for _, v := range in {
			r.enc.WriteSample(int32(sample.Convert[int8](v)))
		}
	case sample.Int16:
		for _, v := range in {
			r.enc.WriteSample(int32(sample.Convert[int16](v)))
		}
	case sample.Int32:
		for _, v := range in {
			r.enc.WriteSample(sample.Convert[int32](v))
		}
	case sample.Float32:
		for _, v := range in {
			r.enc.WriteFloat(sample.Convert[float32](v))
		}
	}
	r.accepted.Add(uint64(len(in)))
}
