package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/voicegpt/internal/config"
	"github.com/petems/voicegpt/internal/logging"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "voicegpt",
	Short: "Record your voice, transcribe it and ask questions about it",
	Long: `voicegpt records the selected input device to a WAV file in the
device's native format, sends the recording to OpenAI speech-to-text and can
forward the transcript to a chat model.

The OpenAI API key is read from OPENAI_API_KEY (a .env file in the working
directory is honoured).`,
	Version:       fmt.Sprintf("%s (%s)", Version, Commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		log = logging.NewWithLevel(level)
		log.Debug().Str("config", cfg.Path()).Msg("Config loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
}
