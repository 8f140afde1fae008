package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petems/voicegpt/internal/app"
	"github.com/petems/voicegpt/internal/transcribe"
)

var askCmd = &cobra.Command{
	Use:   "ask PROMPT...",
	Short: "Ask the completion model a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := transcribe.New(cfg.OpenAI)
		if err != nil {
			return err
		}

		application := app.New(app.Config{
			Transcriber: client,
			Config:      cfg,
			Logger:      log,
		})
		answer, err := application.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}
