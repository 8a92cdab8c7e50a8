package audio

import (
	"time"
)

// Status represents the current state of the recorder
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRecording Status = "RECORDING"
)

// SessionInfo contains information about the current recording session
type SessionInfo struct {
	ID         string       `json:"id"`
	StartTime  time.Time    `json:"start_time"`
	Device     string       `json:"device"`
	Format     SampleFormat `json:"format"`
	SampleRate uint32       `json:"sample_rate"`
	Channels   int          `json:"channels"`
	Samples    int          `json:"samples"`
}

// Recording is a finished capture: mono 16-bit samples at the device rate
type Recording struct {
	Samples    []int16
	SampleRate uint32
}

// Duration returns the playback length of the recording
func (r Recording) Duration() time.Duration {
	if r.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// Encoder persists a finished recording and returns where it was written
type Encoder interface {
	Encode(rec Recording) (string, error)
}

// Recorder defines the interface that all audio recorders must implement
type Recorder interface {
	Start() error
	Stop() (string, error)
	Cancel() error

	// Status and information
	GetStatus() (Status, *SessionInfo)
}
