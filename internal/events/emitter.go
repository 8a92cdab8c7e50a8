package events

// Event names delivered to the UI layer
const (
	AudioLevel        = "audio-level"
	StartRecording    = "start-recording"
	RecordingStopped  = "recording-stopped"
	RecordingCanceled = "recording-canceled"
)

// Event is a named notification with an optional JSON payload
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Emitter delivers fire-and-forget notifications. Implementations must not
// block: Emit is called from the audio device thread.
type Emitter interface {
	Emit(name string, payload any) error
}

// EmitterFunc adapts a function to the Emitter interface
type EmitterFunc func(name string, payload any) error

// Emit calls f(name, payload)
func (f EmitterFunc) Emit(name string, payload any) error {
	return f(name, payload)
}

// Discard drops every event
var Discard Emitter = EmitterFunc(func(string, any) error { return nil })
