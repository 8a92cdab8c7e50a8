package audio

import "errors"

// Error kinds returned by the capture session. Callers match them with errors.Is;
// the wrapped cause carries the device-level detail.
var (
	ErrDeviceUnavailable = errors.New("no input device available")
	ErrConfig            = errors.New("failed to query default input config")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrStream            = errors.New("failed to start input stream")
	ErrNotRecording      = errors.New("no recording in progress")
)
