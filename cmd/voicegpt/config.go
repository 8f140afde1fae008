package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults, the config file and environment
overrides are applied. With --init the result is written to the config file.
The API key is never printed or saved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInit {
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", cfg.Path())
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", cfg.Path())
		fmt.Fprintln(out, string(data))

		key := "not set"
		if cfg.OpenAI.APIKey != "" {
			key = "set"
		}
		fmt.Fprintf(out, "# OPENAI_API_KEY: %s\n", key)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write the effective configuration to the config file")
}
