package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/voxcapture/internal/audio"
)

// header is the canonical 44-byte PCM WAV header
type header struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func readHeader(t *testing.T, path string) header {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var h header
	require.NoError(t, binary.Read(f, binary.LittleEndian, &h))
	return h
}

func fixedNow() time.Time {
	return time.UnixMilli(1700000000123)
}

func newTestWriter(t *testing.T) *Writer {
	w := NewWriter(t.TempDir(), "take", 0)
	w.Now = fixedNow
	return w
}

func TestEncodeWritesMonoPCM(t *testing.T) {
	w := newTestWriter(t)
	samples := []int16{0, 1000, -1000, 32767, -32767}

	path, err := w.Encode(audio.Recording{Samples: samples, SampleRate: 48000})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir, "take_1700000000123.wav"), path)

	h := readHeader(t, path)
	assert.Equal(t, "RIFF", string(h.RIFF[:]))
	assert.Equal(t, "WAVE", string(h.WAVE[:]))
	assert.Equal(t, "data", string(h.Data[:]))
	assert.Equal(t, uint16(1), h.AudioFormat)
	assert.Equal(t, uint16(1), h.NumChannels)
	assert.Equal(t, uint32(48000), h.SampleRate)
	assert.Equal(t, uint16(16), h.BitsPerSample)
	assert.Equal(t, uint32(2*len(samples)), h.DataSize)
	assert.Equal(t, uint32(36+2*len(samples)), h.FileSize)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 44+2*len(samples))
	for i, s := range samples {
		assert.Equal(t, s, int16(binary.LittleEndian.Uint16(raw[44+2*i:])), "sample %d", i)
	}
}

func TestEncodeEmptyRecording(t *testing.T) {
	w := newTestWriter(t)

	path, err := w.Encode(audio.Recording{SampleRate: 16000})
	require.NoError(t, err)

	h := readHeader(t, path)
	assert.Equal(t, uint32(0), h.DataSize)
	assert.Equal(t, uint32(36), h.FileSize)
	assert.Equal(t, uint32(16000), h.SampleRate)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(44), stat.Size())
}

func TestEncodeFallbackRate(t *testing.T) {
	w := newTestWriter(t)

	path, err := w.Encode(audio.Recording{Samples: []int16{1}})
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), readHeader(t, path).SampleRate)

	w.FallbackRate = 22050
	path, err = w.Encode(audio.Recording{Samples: []int16{1}})
	require.NoError(t, err)
	assert.Equal(t, uint32(22050), readHeader(t, path).SampleRate)
}

func TestEncodeNameCollision(t *testing.T) {
	w := newTestWriter(t)
	rec := audio.Recording{Samples: []int16{1, 2}, SampleRate: 8000}

	first, err := w.Encode(rec)
	require.NoError(t, err)
	second, err := w.Encode(rec)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(w.Dir, "take_1700000000123_1.wav"), second)
}

func TestEncodeDefaultsPrefix(t *testing.T) {
	w := NewWriter(t.TempDir(), "", 0)
	w.Now = fixedNow

	path, err := w.Encode(audio.Recording{SampleRate: 8000})
	require.NoError(t, err)
	assert.Equal(t, "recording_1700000000123.wav", filepath.Base(path))
}

func TestEncodeCreatesDirectory(t *testing.T) {
	w := newTestWriter(t)
	w.Dir = filepath.Join(w.Dir, "nested", "out")

	path, err := w.Encode(audio.Recording{SampleRate: 8000})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestEncodeUnwritableDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	w := NewWriter(filepath.Join(blocker, "out"), "take", 0)
	_, err := w.Encode(audio.Recording{SampleRate: 8000})
	assert.ErrorIs(t, err, ErrEncode)
}

func TestReadInfoRoundTrip(t *testing.T) {
	w := newTestWriter(t)
	samples := make([]int16, 4800)
	for i := range samples {
		samples[i] = int16(i % 100)
	}

	path, err := w.Encode(audio.Recording{Samples: samples, SampleRate: 48000})
	require.NoError(t, err)

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 1, info.Format)
	assert.Equal(t, 4800, info.Samples)
	assert.Equal(t, 100*time.Millisecond, info.Duration)
}

func TestReadInfoErrors(t *testing.T) {
	_, err := ReadInfo(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("definitely not a wav file"), 0644))
	_, err = ReadInfo(bogus)
	assert.Error(t, err)
}
