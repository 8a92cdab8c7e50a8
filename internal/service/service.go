package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/voxcapture/internal/audio"
	"github.com/audiolibrelab/voxcapture/internal/config"
	"github.com/audiolibrelab/voxcapture/internal/events"
	"github.com/audiolibrelab/voxcapture/internal/settings"
	"github.com/audiolibrelab/voxcapture/internal/wav"
)

// ErrInvalidRecordingName is returned for names that do not denote a WAV file in the output directory
var ErrInvalidRecordingName = errors.New("invalid recording name")

// Service represents the core voxcapture command interface
type Service interface {
	// Recording operations
	StartRecording() error
	StopRecording() (string, error)
	CancelRecording() error
	GetRecordingStatus() (audio.Status, *audio.SessionInfo)
	TriggerHotkey() error

	// Saved location
	GetSavedLocation() (*settings.LocationSettings, error)
	SetSavedLocation(loc settings.LocationSettings) error

	// Recordings on disk
	ListRecordings() ([]RecordingFile, error)
	RecordingPath(name string) (string, error)

	// Information operations
	ListSources() ([]string, error)
	GetConfig() *config.Config
	GetLastError() string

	Close() error
}

// RecordingFile describes a finished recording in the output directory
type RecordingFile struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	SizeHuman    string    `json:"size_human"`
	ModTime      time.Time `json:"mod_time"`
	ModTimeHuman string    `json:"mod_time_human"`
	SampleRate   int       `json:"sample_rate,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	StreamURL    string    `json:"stream_url"`
}

// VoxCaptureService is the main service implementation
type VoxCaptureService struct {
	cfg      *config.Config
	recorder audio.Recorder
	backend  audio.Backend
	store    *settings.Store
	emitter  events.Emitter

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates the service around the single recorder built at startup
func New(cfg *config.Config, recorder audio.Recorder, backend audio.Backend, store *settings.Store, emitter events.Emitter) *VoxCaptureService {
	if emitter == nil {
		emitter = events.Discard
	}

	return &VoxCaptureService{
		cfg:      cfg,
		recorder: recorder,
		backend:  backend,
		store:    store,
		emitter:  emitter,
	}
}

// StartRecording begins capture from the default input device
func (s *VoxCaptureService) StartRecording() error {
	slog.Debug("Service.StartRecording called")
	s.clearLastError()
	if err := s.recorder.Start(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return err
	}
	return nil
}

// StopRecording ends capture and returns the path of the saved WAV file
func (s *VoxCaptureService) StopRecording() (string, error) {
	path, err := s.recorder.Stop()
	if err != nil {
		if !errors.Is(err, audio.ErrNotRecording) {
			s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		}
		return "", err
	}
	s.clearLastError()
	return path, nil
}

// CancelRecording discards the recording in progress
func (s *VoxCaptureService) CancelRecording() error {
	return s.recorder.Cancel()
}

// GetRecordingStatus returns the current recording status and session info
func (s *VoxCaptureService) GetRecordingStatus() (audio.Status, *audio.SessionInfo) {
	return s.recorder.GetStatus()
}

// TriggerHotkey notifies listeners that the record hotkey fired, then starts
// capture. Delivery of the notification is best effort.
func (s *VoxCaptureService) TriggerHotkey() error {
	if err := s.emitter.Emit(events.StartRecording, nil); err != nil {
		slog.Debug("Hotkey notification not delivered", "error", err)
	}
	return s.StartRecording()
}

// GetSavedLocation returns the saved location, or nil if none was saved
func (s *VoxCaptureService) GetSavedLocation() (*settings.LocationSettings, error) {
	loc, err := s.store.Load()
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to load location: %v", err))
		return nil, err
	}
	return loc, nil
}

// SetSavedLocation replaces the saved location
func (s *VoxCaptureService) SetSavedLocation(loc settings.LocationSettings) error {
	if err := s.store.Save(loc); err != nil {
		s.setLastError(fmt.Sprintf("Failed to save location: %v", err))
		return err
	}
	slog.Info("Location saved", "location", loc.Location)
	return nil
}

// ListRecordings returns the WAV files written with the configured prefix, newest first
func (s *VoxCaptureService) ListRecordings() ([]RecordingFile, error) {
	return ListRecordings(s.cfg.Output.Directory, s.cfg.Output.Prefix)
}

// ListRecordings scans dir for <prefix>_*.wav files, newest first
func ListRecordings(dir, prefix string) ([]RecordingFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RecordingFile{}, nil
		}
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	recordings := []RecordingFile{}
	for _, file := range files {
		if file.IsDir() || !isRecordingName(file.Name(), prefix) {
			continue
		}

		fi, err := file.Info()
		if err != nil {
			slog.Warn("Failed to get file info", "file", file.Name(), "error", err)
			continue
		}

		rec := RecordingFile{
			Name:         file.Name(),
			Path:         filepath.Join(dir, file.Name()),
			Size:         fi.Size(),
			SizeHuman:    formatBytes(fi.Size()),
			ModTime:      fi.ModTime(),
			ModTimeHuman: fi.ModTime().Format("2006-01-02 15:04:05"),
			StreamURL:    fmt.Sprintf("/api/recordings/%s", file.Name()),
		}

		if info, err := wav.ReadInfo(rec.Path); err == nil {
			rec.SampleRate = info.SampleRate
			rec.Duration = info.Duration.Seconds()
		} else {
			slog.Debug("Skipping WAV header", "file", file.Name(), "error", err)
		}

		recordings = append(recordings, rec)
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].ModTime.After(recordings[j].ModTime)
	})

	return recordings, nil
}

// RecordingPath resolves a recording file name inside the output directory
func (s *VoxCaptureService) RecordingPath(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || !isRecordingName(name, s.cfg.Output.Prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecordingName, name)
	}

	path := filepath.Join(s.cfg.Output.Directory, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("recording %s: %w", name, err)
	}
	return path, nil
}

func isRecordingName(name, prefix string) bool {
	return strings.HasPrefix(name, prefix+"_") && strings.EqualFold(filepath.Ext(name), ".wav")
}

// ListSources returns the capture devices reported by the backend
func (s *VoxCaptureService) ListSources() ([]string, error) {
	return s.backend.ListSources()
}

// GetConfig returns the current configuration
func (s *VoxCaptureService) GetConfig() *config.Config {
	return s.cfg
}

// Close discards any recording in progress and releases the audio backend
func (s *VoxCaptureService) Close() error {
	if err := s.recorder.Cancel(); err != nil {
		slog.Warn("Failed to cancel recording on shutdown", "error", err)
	}
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// GetLastError returns the last error message (thread-safe)
func (s *VoxCaptureService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *VoxCaptureService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// clearLastError clears the last error message (thread-safe)
func (s *VoxCaptureService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
