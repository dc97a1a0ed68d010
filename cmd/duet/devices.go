package main

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
)

// devicesCmd lists input/output devices in the "<index>: <name>" form
// config.json expects, grounded on original_source/main.py's
// _get_audio_devices.
func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio input and output devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
			if err != nil {
				return fmt.Errorf("duet: init audio context: %w", err)
			}
			defer mctx.Uninit()

			inputs, outputs, err := audio.ListDevices(mctx)
			if err != nil {
				return err
			}

			fmt.Println("Inputs:")
			for _, d := range inputs {
				fmt.Println("  " + d.String())
			}
			fmt.Println("Outputs:")
			for _, d := range outputs {
				fmt.Println("  " + d.String())
			}
			return nil
		},
	}
}
