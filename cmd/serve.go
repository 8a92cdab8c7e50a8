package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/audiolibrelab/voxcapture/internal/events"
	"github.com/audiolibrelab/voxcapture/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start the voxcapture web server to control recording via HTTP.
Level and recording events are streamed as JSON over a WebSocket at /ws.

Sending SIGUSR1 to the process acts as the global record hotkey: it
announces start-recording to connected clients and starts capture.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = cfg.Server.Port
		}

		hub := events.NewHub(cfg.Server.EventQueue)
		svc := newService(hub)
		defer svc.Close()

		srv := server.New(svc, hub, port)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(srv.Start)

		g.Go(func() error {
			<-ctx.Done()
			hub.Close()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			return watchHotkey(ctx, svc)
		})

		slog.Info("voxcapture web server starting", "port", port, "output", cfg.Output.Directory)

		if err := g.Wait(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port for the web server (default from config, 8080)")
}
