package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petems/voicegpt/internal/transcribe"
	"github.com/petems/voicegpt/internal/wavfile"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe FILE...",
	Short: "Transcribe existing recordings",
	Long: `Send one or more audio files to OpenAI speech-to-text. Files are sent
concurrently and the transcripts printed in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := transcribe.New(cfg.OpenAI)
		if err != nil {
			return err
		}

		for _, path := range args {
			if info, err := wavfile.ReadInfo(path); err == nil {
				log.Debug().Str("path", path).Str("format", info.Format.String()).
					Dur("duration", info.Duration).Msg("Transcribing")
			}
		}

		texts, err := client.TranscribeAll(cmd.Context(), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, text := range texts {
			if len(args) > 1 {
				fmt.Fprintf(out, "== %s\n", filepath.Base(args[i]))
			}
			fmt.Fprintln(out, text)
		}
		return nil
	},
}
