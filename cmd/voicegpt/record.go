package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petems/voicegpt/internal/app"
	"github.com/petems/voicegpt/internal/audio"
	"github.com/petems/voicegpt/internal/audio/portaudio"
	"github.com/petems/voicegpt/internal/inject"
	"github.com/petems/voicegpt/internal/permissions"
	"github.com/petems/voicegpt/internal/recorder"
	"github.com/petems/voicegpt/internal/transcribe"
)

var (
	recordDevice     string
	recordOutput     string
	recordDuration   time.Duration
	recordTranscribe bool
	recordCopy       bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the input device to a WAV file",
	Long: `Record from the configured (or --device) input device until Ctrl+C or
--duration elapses. The file is written in the device's native channel count,
sample rate and sample format.

With --transcribe the finished file is sent to OpenAI and the text printed;
--copy also puts it on the clipboard.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("device") {
			cfg.Audio.DeviceID = recordDevice
		}
		if recordOutput != "" {
			cfg.Output.Path = recordOutput
		}
		if recordCopy {
			cfg.Inject.CopyToClipboard = true
			recordTranscribe = true
		}

		// macOS requires explicit microphone approval before capture works
		if err := permissions.EnsureMicrophone(); err != nil {
			return err
		}

		var client app.Transcriber
		if recordTranscribe {
			c, err := transcribe.New(cfg.OpenAI)
			if err != nil {
				return err
			}
			client = c
		}

		host, err := portaudio.New(cfg.Audio, log)
		if err != nil {
			return err
		}
		defer host.Close()

		gateway := audio.NewGateway(host)
		application := app.New(app.Config{
			Recorder:      recorder.New(gateway, cfg.Output.Path, recorder.WithLogger(log)),
			Devices:       gateway,
			Transcriber:   client,
			Injector:      inject.New(),
			Config:        cfg,
			Logger:        log,
			StatusUpdater: consoleStatus{out: os.Stderr},
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := application.StartRecording(); err != nil {
			return err
		}

		var timeout <-chan time.Time
		if recordDuration > 0 {
			timeout = time.After(recordDuration)
		}
		select {
		case <-ctx.Done():
		case <-timeout:
		}
		stop()

		if !recordTranscribe {
			res, err := application.StopRecording()
			if err != nil {
				return err
			}
			printRecording(cmd, res)
			return nil
		}

		tctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		out, err := application.StopAndTranscribe(tctx)
		if err != nil {
			if !errors.Is(err, recorder.ErrFinalize) && out.Recording.Path != "" {
				printRecording(cmd, out.Recording)
			}
			return err
		}
		printRecording(cmd, out.Recording)
		fmt.Fprintln(cmd.OutOrStdout(), out.Text)
		if out.Copied {
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
		}
		return nil
	},
}

func printRecording(cmd *cobra.Command, res recorder.Result) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s, %d frames, %s)\n",
		res.Path, res.Format, res.Frames, res.Duration.Round(time.Millisecond))
	if dropped := res.Stats.SamplesDropped + res.Stats.LateSamples + uint64(res.Stats.WriteFailures); dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d samples were dropped\n", dropped)
	}
}

func init() {
	recordCmd.Flags().StringVarP(&recordDevice, "device", "d", "", `input device name ("default" for the system default)`)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output WAV file (overrides config)")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long (default: until Ctrl+C)")
	recordCmd.Flags().BoolVarP(&recordTranscribe, "transcribe", "t", false, "transcribe the recording with OpenAI")
	recordCmd.Flags().BoolVarP(&recordCopy, "copy", "c", false, "copy the transcript to the clipboard (implies --transcribe)")
}
