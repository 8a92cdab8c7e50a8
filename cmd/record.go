package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voxcapture/internal/audio"
	"github.com/audiolibrelab/voxcapture/internal/events"
	"github.com/audiolibrelab/voxcapture/internal/play"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the default input device",
	Long: `Record from the default system input device until Enter is pressed.
The input level is drawn on stderr while recording. On stop the take is written
as a mono 16-bit WAV file and its path printed on stdout. Ctrl+C discards the take.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		playAfter, _ := cmd.Flags().GetBool("play")

		hub := events.NewHub(cfg.Server.EventQueue)
		defer hub.Close()

		svc := newService(hub)
		defer svc.Close()

		levels, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		if err := svc.StartRecording(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		// Handle interruption
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		enter := make(chan struct{})
		go func() {
			bufio.NewReader(os.Stdin).ReadString('\n')
			close(enter)
		}()

		_, session := svc.GetRecordingStatus()
		if session != nil {
			slog.Info("Recording - press Enter to stop, Ctrl+C to cancel",
				"device", session.Device, "rate", session.SampleRate, "channels", session.Channels)
		}

		meter := newLevelMeter(os.Stderr)
		for {
			select {
			case ev, ok := <-levels:
				if !ok {
					return nil
				}
				if level, isLevel := ev.Payload.(audio.Level); isLevel {
					meter.render(level)
				}

			case <-enter:
				meter.clear()
				path, err := svc.StopRecording()
				if err != nil {
					return fmt.Errorf("failed to stop recording: %w", err)
				}
				fmt.Println(path)

				if playAfter {
					return play.New().Play(ctx, path)
				}
				return nil

			case <-ctx.Done():
				meter.clear()
				if err := svc.CancelRecording(); err != nil {
					return fmt.Errorf("failed to cancel recording: %w", err)
				}
				slog.Info("Recording discarded")
				return nil
			}
		}
	},
}

func init() {
	recordCmd.Flags().Bool("play", false, "play the recording after it is saved")
}
