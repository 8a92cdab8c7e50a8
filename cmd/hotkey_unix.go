//go:build !windows

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/voxcapture/internal/service"
)

// watchHotkey treats SIGUSR1 as the global record hotkey until ctx is done
func watchHotkey(ctx context.Context, svc service.Service) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	slog.Info("Record hotkey armed", "signal", "SIGUSR1", "pid", os.Getpid())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigs:
			slog.Debug("Record hotkey pressed")
			if err := svc.TriggerHotkey(); err != nil {
				slog.Error("Hotkey failed to start recording", "error", err)
			}
		}
	}
}
