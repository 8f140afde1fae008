package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/voicegpt/internal/audio"
	"github.com/petems/voicegpt/internal/config"
	"github.com/petems/voicegpt/internal/inject"
	"github.com/petems/voicegpt/internal/recorder"
)

// ErrNoTranscriber is returned by Ask and StopAndTranscribe when the app
// was built without an OpenAI client.
var ErrNoTranscriber = errors.New("transcription not configured")

// StatusUpdater is an interface for updating status (e.g., a terminal line)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetProcessing()
	SetError()
}

// Recorder is the capture session the app drives.
type Recorder interface {
	Start(device string) error
	Stop() (recorder.Result, error)
	IsRecording() bool
	OutputPath() string
	SetOutputPath(path string) error
}

// Transcriber turns recordings into text and answers prompts.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// DeviceLister enumerates input devices.
type DeviceLister interface {
	ListDevices() ([]audio.AudioDevice, error)
}

type Config struct {
	Recorder      Recorder
	Devices       DeviceLister
	Transcriber   Transcriber     // Optional - can be nil
	Injector      inject.Injector // Optional - can be nil
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// Transcript is what a finished recording turned into.
type Transcript struct {
	Recording recorder.Result
	Text      string
	Copied    bool
}

type App struct {
	rec     Recorder
	devices DeviceLister
	stt     Transcriber
	inj     inject.Injector
	cfg     *config.Config
	log     zerolog.Logger
	status  StatusUpdater

	mu sync.Mutex
}

func New(cfg Config) *App {
	return &App{
		rec:     cfg.Recorder,
		devices: cfg.Devices,
		stt:     cfg.Transcriber,
		inj:     cfg.Injector,
		cfg:     cfg.Config,
		log:     cfg.Logger,
		status:  cfg.StatusUpdater,
	}
}

// StartRecording starts capturing from the configured device.
func (a *App) StartRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked()
}

func (a *App) startLocked() error {
	if err := a.rec.Start(a.cfg.Audio.DeviceID); err != nil {
		a.log.Error().Err(err).Str("device", a.cfg.Audio.DeviceID).Msg("Failed to start recording")
		a.setError()
		return err
	}
	a.setRecording()
	return nil
}

// StopRecording stops capturing and finalizes the file without
// transcribing it.
func (a *App) StopRecording() (recorder.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := a.rec.Stop()
	if err != nil {
		if !errors.Is(err, recorder.ErrNotRecording) {
			a.setError()
		}
		return res, err
	}
	a.setIdle()
	return res, nil
}

// StopAndTranscribe stops the recording, transcribes the file and, when
// configured, copies the text to the clipboard. A failed copy is logged
// and reported through Transcript.Copied only.
func (a *App) StopAndTranscribe(ctx context.Context) (Transcript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopAndTranscribeLocked(ctx)
}

func (a *App) stopAndTranscribeLocked(ctx context.Context) (Transcript, error) {
	res, err := a.rec.Stop()
	if err != nil {
		if !errors.Is(err, recorder.ErrNotRecording) {
			a.setError()
		}
		return Transcript{Recording: res}, err
	}
	out := Transcript{Recording: res}

	if a.stt == nil {
		a.setIdle()
		return out, ErrNoTranscriber
	}

	a.setProcessing()
	text, err := a.stt.Transcribe(ctx, res.Path)
	if err != nil {
		a.log.Error().Err(err).Str("path", res.Path).Msg("Transcription failed")
		a.setError()
		return out, err
	}
	out.Text = applyFilters(text)
	a.log.Info().Str("session", res.ID.String()).Int("chars", len(out.Text)).Msg("Transcribed")

	if a.cfg.Inject.CopyToClipboard && a.inj != nil {
		copyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.inj.Copy(copyCtx, out.Text); err != nil {
			a.log.Warn().Err(err).Msg("Failed to copy transcript")
		} else {
			out.Copied = true
		}
	}

	a.setIdle()
	return out, nil
}

// Toggle starts a recording when idle and otherwise stops and transcribes
// it. The returned Transcript is only set on the stopping call.
func (a *App) Toggle(ctx context.Context) (Transcript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.rec.IsRecording() {
		return Transcript{}, a.startLocked()
	}
	return a.stopAndTranscribeLocked(ctx)
}

// Ask sends prompt to the completion model.
func (a *App) Ask(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	if a.stt == nil {
		return "", ErrNoTranscriber
	}

	a.log.Debug().Str("prompt", prompt).Msg("Asking")
	answer, err := a.stt.Complete(ctx, prompt)
	if err != nil {
		a.log.Error().Err(err).Msg("Completion failed")
		return "", err
	}
	return answer, nil
}

func applyFilters(text string) string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return text
	}

	// Auto-capitalize first letter
	if text[0] >= 'a' && text[0] <= 'z' {
		text = string(text[0]-32) + text[1:]
	}
	return text
}

// Shutdown finalizes an active recording so the file on disk is valid.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.rec.IsRecording() {
		return nil
	}
	res, err := a.rec.Stop()
	if err != nil {
		return err
	}
	a.log.Info().Str("path", res.Path).Msg("Recording finalized on shutdown")
	a.setIdle()
	return nil
}

func (a *App) SetDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec.IsRecording() {
		return fmt.Errorf("cannot change device while recording: %w", recorder.ErrAlreadyRecording)
	}

	a.cfg.Audio.DeviceID = id
	return a.cfg.Save()
}

func (a *App) SetOutputPath(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.rec.SetOutputPath(path); err != nil {
		return err
	}
	a.cfg.Output.Path = path
	return a.cfg.Save()
}

func (a *App) IsRecording() bool {
	return a.rec.IsRecording()
}

func (a *App) OutputPath() string {
	return a.rec.OutputPath()
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	if a.devices == nil {
		return nil, errors.New("no audio host")
	}
	return a.devices.ListDevices()
}

func (a *App) setIdle() {
	if a.status != nil {
		a.status.SetIdle()
	}
}

func (a *App) setRecording() {
	if a.status != nil {
		a.status.SetRecording()
	}
}

func (a *App) setProcessing() {
	if a.status != nil {
		a.status.SetProcessing()
	}
}

func (a *App) setError() {
	if a.status != nil {
		a.status.SetError()
	}
}
