package cmd

import (
	"github.com/audiolibrelab/voxcapture/internal/audio"
	"github.com/audiolibrelab/voxcapture/internal/events"
	"github.com/audiolibrelab/voxcapture/internal/service"
	"github.com/audiolibrelab/voxcapture/internal/settings"
	"github.com/audiolibrelab/voxcapture/internal/wav"
)

// newService wires the single capture session for this process
func newService(emitter events.Emitter) *service.VoxCaptureService {
	backend := audio.NewBackend(cfg)
	writer := wav.NewWriter(cfg.Output.Directory, cfg.Output.Prefix, cfg.Audio.FallbackSampleRate)
	session := audio.NewSession(backend, writer, emitter)
	store := settings.NewStore(cfg.Settings.File)

	return service.New(cfg, session, backend, store, emitter)
}
