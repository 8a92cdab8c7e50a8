package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voxcapture/internal/audio"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio sources",
	Long:  `List the capture devices reported by the audio backend. Recording always uses the default one.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := audio.NewBackend(cfg)
		defer backend.Close()

		sources, err := backend.ListSources()
		if err != nil {
			return fmt.Errorf("failed to get %s sources: %w", backend.GetType(), err)
		}

		fmt.Printf("Audio sources (%s, %s backend)\n", runtime.GOOS, backend.GetType())
		fmt.Printf("═══════════════════════════════════════\n\n")
		if len(sources) == 0 {
			fmt.Println("  no capture devices found")
		}
		for i, source := range sources {
			fmt.Printf("  %d. %s\n", i+1, source)
		}

		available := make([]string, 0)
		for _, b := range audio.GetAvailableBackends() {
			available = append(available, string(b))
		}
		fmt.Printf("\nSelectable backends (audio.backend): auto, %s\n", strings.Join(available, ", "))
		return nil
	},
}
