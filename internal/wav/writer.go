package wav

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/audiolibrelab/voxcapture/internal/audio"
)

const (
	DefaultPrefix = "recording"

	bitDepth    = 16
	numChannels = 1
	pcmFormat   = 1

	maxNameAttempts = 100
)

// ErrEncode is returned when a recording cannot be written. The partial file is removed.
var ErrEncode = errors.New("failed to encode recording")

// Writer encodes recordings as mono 16-bit PCM WAV files named
// <prefix>_<unix-millis>.wav in Dir. It implements audio.Encoder.
type Writer struct {
	Dir          string
	Prefix       string
	FallbackRate uint32
	Now          func() time.Time
}

// NewWriter creates a writer for the given output directory
func NewWriter(dir, prefix string, fallbackRate uint32) *Writer {
	return &Writer{
		Dir:          dir,
		Prefix:       prefix,
		FallbackRate: fallbackRate,
		Now:          time.Now,
	}
}

// Encode writes the recording and returns the path of the new file
func (w *Writer) Encode(rec audio.Recording) (string, error) {
	rate := rec.SampleRate
	if rate == 0 {
		rate = w.fallbackRate()
		slog.Warn("Recording has no sample rate, using fallback", "rate", rate)
	}

	f, path, err := w.create()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if err := encode(f, rec.Samples, int(rate)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %s: %w", ErrEncode, path, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %s: %w", ErrEncode, path, err)
	}

	slog.Debug("WAV file written", "path", path, "samples", len(rec.Samples), "rate", rate)
	return path, nil
}

func encode(f *os.File, samples []int16, rate int) error {
	enc := gowav.NewEncoder(f, rate, bitDepth, numChannels, pcmFormat)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	// Write even when empty so the header and data chunk exist
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChannels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}

	// Close patches the RIFF and data chunk sizes now that the length is known
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize header: %w", err)
	}
	return nil
}

// create opens a new file that did not exist before. A second stop within
// the same millisecond gets a numeric suffix instead of overwriting.
func (w *Writer) create() (*os.File, string, error) {
	dir := w.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix := w.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	stamp := now().UnixMilli()

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := fmt.Sprintf("%s_%d.wav", prefix, stamp)
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d_%d.wav", prefix, stamp, attempt)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
	}

	return nil, "", fmt.Errorf("no free file name for %s_%d.wav in %s", prefix, stamp, dir)
}

func (w *Writer) fallbackRate() uint32 {
	if w.FallbackRate == 0 {
		return audio.DefaultFallbackSampleRate
	}
	return w.FallbackRate
}
