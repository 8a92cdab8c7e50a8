package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voxcapture/internal/play"
	"github.com/audiolibrelab/voxcapture/internal/service"
)

var playCmd = &cobra.Command{
	Use:   "play [file.wav]",
	Short: "Play a recording",
	Long: `Play a WAV file with the first of aplay, ffplay, mpv or vlc found on PATH.
Without an argument the newest recording in the output directory is played.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			recordings, err := service.ListRecordings(cfg.Output.Directory, cfg.Output.Prefix)
			if err != nil {
				return err
			}
			if len(recordings) == 0 {
				return fmt.Errorf("no recordings found in %s", cfg.Output.Directory)
			}
			path = recordings[0].Path
		}

		if err := play.New().Play(cmd.Context(), path); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		return nil
	},
}
