package wav

import (
	"fmt"
	"os"
	"time"

	gowav "github.com/go-audio/wav"
)

// Info describes the PCM layout of a WAV file
type Info struct {
	Path       string        `json:"path" yaml:"path"`
	Channels   int           `json:"channels" yaml:"channels"`
	BitDepth   int           `json:"bit_depth" yaml:"bit_depth"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	Format     int           `json:"format" yaml:"format"`
	Samples    int           `json:"samples" yaml:"samples"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// ReadInfo decodes the header of a WAV file and counts its sample frames
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d := gowav.NewDecoder(f)
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if d.NumChans == 0 || d.BitDepth == 0 {
		return nil, fmt.Errorf("%s has no format chunk", path)
	}

	info := &Info{
		Path:       path,
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		SampleRate: int(d.SampleRate),
		Format:     int(d.WavAudioFormat),
	}

	frameSize := info.Channels * info.BitDepth / 8
	if frameSize > 0 {
		info.Samples = int(d.PCMSize) / frameSize
	}
	if info.SampleRate > 0 {
		info.Duration = time.Duration(info.Samples) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}
