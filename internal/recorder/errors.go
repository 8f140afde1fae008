package recorder

import (
	"errors"

	"github.com/petems/voicegpt/internal/audio"
)

var (
	// ErrDeviceNotFound indicates the requested input device does not exist.
	ErrDeviceNotFound = audio.ErrDeviceNotFound

	// ErrDeviceUnavailable indicates the platform refused to open or start
	// the capture stream (device busy, disconnected, unsupported format).
	ErrDeviceUnavailable = errors.New("audio device busy or unavailable")

	// ErrEncoderCreate indicates the output file could not be created.
	ErrEncoderCreate = errors.New("failed to create output file")

	// ErrFinalize indicates the recording could not be completed on disk.
	// The session is idle again when this is returned.
	ErrFinalize = errors.New("failed to finalize recording")

	// ErrAlreadyRecording is returned by Start while a recording is active.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNotRecording is returned by Stop when no recording is active.
	ErrNotRecording = errors.New("not recording")
)
