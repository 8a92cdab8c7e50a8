//go:build windows

package cmd

import (
	"context"
	"log/slog"

	"github.com/audiolibrelab/voxcapture/internal/service"
)

// watchHotkey is a no-op without SIGUSR1; use POST /api/hotkey instead
func watchHotkey(ctx context.Context, _ service.Service) error {
	slog.Debug("Signal hotkey not available on this platform, use POST /api/hotkey")
	<-ctx.Done()
	return nil
}
