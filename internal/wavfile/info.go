package wavfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/petems/voicegpt/internal/audio"
)

// ErrInvalidFile is returned by ReadInfo for files that are not WAV.
var ErrInvalidFile = errors.New("not a valid wav file")

// Info describes a finished WAV file.
type Info struct {
	Format   audio.StreamFormat
	Frames   int64
	Duration time.Duration
}

// ReadInfo reads the header of the WAV file at path.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
	}

	format := audio.StreamFormat{
		Channels:      dec.NumChans,
		SampleRate:    dec.SampleRate,
		BitsPerSample: dec.BitDepth,
	}
	if dec.WavAudioFormat == formatIEEEFloat {
		format.Encoding = audio.Float
	}

	info := Info{Format: format}
	if align := format.BlockAlign(); align > 0 {
		info.Frames = int64(dec.PCMSize) / int64(align)
	}
	if format.SampleRate > 0 {
		info.Duration = time.Duration(info.Frames) * time.Second / time.Duration(format.SampleRate)
	}
	return info, nil
}
