package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voxcapture/internal/wav"
)

var infoCmd = &cobra.Command{
	Use:   "info <file.wav>",
	Short: "Show the PCM layout of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := wav.ReadInfo(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("=== WAV INFO ===\n")
		fmt.Printf("path: %s\n", info.Path)
		fmt.Printf("format: %d (%s)\n", info.Format, formatName(info.Format))
		fmt.Printf("channels: %d\n", info.Channels)
		fmt.Printf("bit_depth: %d\n", info.BitDepth)
		fmt.Printf("sample_rate: %d\n", info.SampleRate)
		fmt.Printf("samples: %d\n", info.Samples)
		fmt.Printf("duration: %s\n", info.Duration)
		return nil
	},
}

func formatName(format int) string {
	switch format {
	case 1:
		return "PCM"
	case 3:
		return "IEEE float"
	default:
		return "other"
	}
}
