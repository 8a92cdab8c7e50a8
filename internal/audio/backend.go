package audio

import (
	"strings"

	"github.com/audiolibrelab/voxcapture/internal/config"
)

// BackendType represents the type of audio backend
type BackendType string

const (
	BackendTypeMalgo BackendType = "malgo"
	BackendTypeAuto  BackendType = "auto"
)

// StreamConfig is the native configuration a device captures with
type StreamConfig struct {
	SampleRate uint32
	Channels   int
	Format     SampleFormat
}

// DataFunc receives one raw hardware batch of interleaved little-endian samples.
// It runs on the device's real-time thread and must not block.
type DataFunc func(data []byte)

// ErrorFunc receives runtime errors reported by a running stream
type ErrorFunc func(err error)

// Stream is a built input stream. Close stops capture and releases the device.
type Stream interface {
	Start() error
	Close() error
}

// Device is a capture device exposed by a backend
type Device interface {
	Name() string
	DefaultInputConfig() (StreamConfig, error)
	BuildInputStream(cfg StreamConfig, onData DataFunc, onError ErrorFunc) (Stream, error)
}

// Backend defines the interface for audio backend implementations
type Backend interface {
	// DefaultInputDevice returns the system default capture device
	DefaultInputDevice() (Device, error)

	// List available audio sources
	ListSources() ([]string, error)

	// Get the backend type
	GetType() BackendType

	Close() error
}

// NewBackend creates the audio backend selected by configuration
func NewBackend(cfg *config.Config) Backend {
	switch determineBackend(cfg) {
	case BackendTypeMalgo:
		return NewMalgoBackend(cfg.Audio.FallbackSampleRate)
	default:
		// Default to malgo as the only available backend
		return NewMalgoBackend(cfg.Audio.FallbackSampleRate)
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	if cfg.Audio.Backend != "" {
		switch strings.ToLower(cfg.Audio.Backend) {
		case "malgo":
			return BackendTypeMalgo
		case "auto":
			return BackendTypeMalgo // Only malgo is available now
		}
	}

	return BackendTypeMalgo
}

// GetAvailableBackends returns list of available backends on current system
func GetAvailableBackends() []BackendType {
	return []BackendType{BackendTypeMalgo}
}
