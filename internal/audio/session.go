package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/voxcapture/internal/events"
)

// Session implements the Recorder interface on top of a capture Backend.
// Only one stream exists at a time; Start, Stop and Cancel are serialized by
// mutex while the device callback only touches the buffer.
type Session struct {
	backend Backend
	encoder Encoder
	emitter events.Emitter
	buffer  *Buffer

	mutex      sync.Mutex
	stream     Stream
	sampleRate uint32
	channels   int
	session    *SessionInfo
}

// NewSession creates an idle capture session
func NewSession(backend Backend, encoder Encoder, emitter events.Emitter) *Session {
	if emitter == nil {
		emitter = events.Discard
	}

	return &Session{
		backend: backend,
		encoder: encoder,
		emitter: emitter,
		buffer:  NewBuffer(),
	}
}

// Start opens the default input device and begins buffering. Calling Start
// while already recording is a no-op.
func (s *Session) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stream != nil {
		slog.Debug("Capture already running", "session", s.session.ID)
		return nil
	}

	device, err := s.backend.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	cfg, err := device.DefaultInputConfig()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfig, device.Name(), err)
	}

	process, err := NewProcessor(cfg.Format)
	if err != nil {
		return err
	}

	s.buffer.Clear()

	stream, err := device.BuildInputStream(cfg, s.dataCallback(process, cfg.Channels), s.errorCallback(device.Name()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStream, err)
	}

	if err := stream.Start(); err != nil {
		if closeErr := stream.Close(); closeErr != nil {
			slog.Warn("Failed to release stream after start failure", "error", closeErr)
		}
		return fmt.Errorf("%w: %w", ErrStream, err)
	}

	s.stream = stream
	s.sampleRate = cfg.SampleRate
	s.channels = cfg.Channels
	s.session = &SessionInfo{
		ID:         uuid.NewString(),
		StartTime:  time.Now(),
		Device:     device.Name(),
		Format:     cfg.Format,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}

	slog.Info("Capture started",
		"session", s.session.ID,
		"device", s.session.Device,
		"format", cfg.Format,
		"rate", cfg.SampleRate,
		"channels", cfg.Channels)
	return nil
}

// Stop ends capture and writes the buffered samples through the encoder.
// Encoding happens after the lock is released.
func (s *Session) Stop() (string, error) {
	rec, info, err := s.finish()
	if err != nil {
		return "", err
	}

	path, err := s.encoder.Encode(rec)
	if err != nil {
		slog.Error("Failed to save recording", "session", info.ID, "samples", len(rec.Samples), "error", err)
		return "", err
	}

	slog.Info("Recording saved",
		"session", info.ID,
		"path", path,
		"samples", len(rec.Samples),
		"duration", rec.Duration())

	s.emit(events.RecordingStopped, map[string]any{
		"id":       info.ID,
		"path":     path,
		"samples":  len(rec.Samples),
		"duration": rec.Duration().Seconds(),
	})
	return path, nil
}

func (s *Session) finish() (Recording, *SessionInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stream == nil {
		return Recording{}, nil, ErrNotRecording
	}

	s.releaseStream()

	rec := Recording{
		Samples:    s.buffer.Drain(),
		SampleRate: s.sampleRate,
	}
	info := s.session
	s.session = nil
	return rec, info, nil
}

// Cancel discards the recording in progress. It always succeeds.
func (s *Session) Cancel() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stream == nil {
		s.buffer.Clear()
		return nil
	}

	id := s.session.ID
	s.releaseStream()
	s.buffer.Clear()
	s.session = nil

	slog.Info("Capture canceled", "session", id)
	s.emit(events.RecordingCanceled, map[string]any{"id": id})
	return nil
}

// GetStatus returns the current status and a copy of the session info
func (s *Session) GetStatus() (Status, *SessionInfo) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stream == nil {
		return StatusIdle, nil
	}

	info := *s.session
	info.Samples = s.buffer.Len()
	return StatusRecording, &info
}

// releaseStream must be called with the mutex held
func (s *Session) releaseStream() {
	if err := s.stream.Close(); err != nil {
		slog.Warn("Failed to release input stream", "error", err)
	}
	s.stream = nil
}

func (s *Session) dataCallback(process Processor, channels int) DataFunc {
	buffer := s.buffer
	return func(data []byte) {
		mono, level, ok := process(data, channels)
		if !ok {
			return
		}
		buffer.Append(mono)
		s.emit(events.AudioLevel, level)
	}
}

func (s *Session) errorCallback(device string) ErrorFunc {
	return func(err error) {
		slog.Error("Input stream error", "device", device, "error", err)
	}
}

// emit drops delivery failures; a missing listener never affects capture
func (s *Session) emit(name string, payload any) {
	_ = s.emitter.Emit(name, payload)
}
