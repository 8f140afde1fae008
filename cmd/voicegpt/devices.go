package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petems/voicegpt/internal/audio"
	"github.com/petems/voicegpt/internal/audio/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices and their native formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := portaudio.New(cfg.Audio, log)
		if err != nil {
			return err
		}
		defer host.Close()

		gateway := audio.NewGateway(host)
		devices, err := gateway.ListDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No input devices found.")
			return nil
		}

		out := cmd.OutOrStdout()
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			format := "unknown format"
			if dev, err := gateway.Resolve(d.Name); err == nil {
				if f, err := gateway.QueryFormat(dev); err == nil {
					format = f.String()
				} else {
					log.Debug().Err(err).Str("device", d.Name).Msg("No usable format")
				}
			}
			fmt.Fprintf(out, "%s %s\t%s\n", marker, d.Name, format)
		}
		return nil
	},
}
