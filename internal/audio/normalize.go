package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleFormat represents the native encoding of samples delivered by a device
type SampleFormat string

const (
	FormatUnknown SampleFormat = "unknown"
	FormatF32     SampleFormat = "f32"
	FormatS16     SampleFormat = "s16"
	FormatU16     SampleFormat = "u16"
)

// BytesPerSample returns the width of one sample, or 0 for unsupported formats
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatF32:
		return 4
	case FormatS16, FormatU16:
		return 2
	default:
		return 0
	}
}

const (
	maxS16 = math.MaxInt16
	maxU16 = math.MaxUint16
)

// Level is the loudness of one hardware batch, measured on every channel
// sample before the mono downmix.
type Level struct {
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`
}

// Processor turns one raw batch of interleaved little-endian samples into
// quantized mono samples and the batch level. ok is false when the batch is
// empty or has no channels, in which case nothing should be appended or emitted.
type Processor func(data []byte, channels int) (mono []int16, level Level, ok bool)

// NewProcessor selects the normalizer for a stream's native format. The format
// is fixed for the lifetime of a stream, so the choice is made once here.
func NewProcessor(format SampleFormat) (Processor, error) {
	switch format {
	case FormatF32:
		return func(data []byte, channels int) ([]int16, Level, bool) {
			samples := decodeF32(data)
			if len(samples) == 0 || channels <= 0 {
				return nil, Level{}, false
			}
			mono, level := DownmixF32(samples, channels)
			return mono, level, true
		}, nil
	case FormatS16:
		return func(data []byte, channels int) ([]int16, Level, bool) {
			samples := decodeS16(data)
			if len(samples) == 0 || channels <= 0 {
				return nil, Level{}, false
			}
			mono, level := DownmixS16(samples, channels)
			return mono, level, true
		}, nil
	case FormatU16:
		return func(data []byte, channels int) ([]int16, Level, bool) {
			samples := decodeU16(data)
			if len(samples) == 0 || channels <= 0 {
				return nil, Level{}, false
			}
			mono, level := DownmixU16(samples, channels)
			return mono, level, true
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// DownmixF32 clamps each float sample to [-1, 1] before averaging.
func DownmixF32(samples []float32, channels int) ([]int16, Level) {
	return downmix(samples, channels, func(s float32) float64 {
		return clampUnit(float64(s))
	})
}

// DownmixS16 divides by the positive maximum only, so -32768 maps slightly below -1.
func DownmixS16(samples []int16, channels int) ([]int16, Level) {
	return downmix(samples, channels, func(s int16) float64 {
		return float64(s) / maxS16
	})
}

// DownmixU16 recenters unsigned samples around zero.
func DownmixU16(samples []uint16, channels int) ([]int16, Level) {
	return downmix(samples, channels, func(s uint16) float64 {
		return float64(s)/maxU16*2 - 1
	})
}

type sample interface {
	~float32 | ~int16 | ~uint16
}

// downmix averages each complete frame into one quantized mono sample and
// meters every raw sample in the same pass. A trailing partial frame is
// metered but produces no mono sample.
func downmix[T sample](samples []T, channels int, normalize func(T) float64) ([]int16, Level) {
	if len(samples) == 0 || channels <= 0 {
		return nil, Level{}
	}

	mono := make([]int16, 0, len(samples)/channels)
	var sumSquares, peak, frameSum float64

	for i, s := range samples {
		v := normalize(s)
		if a := math.Abs(v); a > peak {
			peak = a
		}
		sumSquares += v * v
		frameSum += v

		if (i+1)%channels == 0 {
			mono = append(mono, quantize(frameSum/float64(channels)))
			frameSum = 0
		}
	}

	return mono, Level{
		RMS:  math.Sqrt(sumSquares / float64(len(samples))),
		Peak: peak,
	}
}

// quantize clamps to unit range and truncates toward zero into 16-bit range
func quantize(v float64) int16 {
	return int16(clampUnit(v) * maxS16)
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func decodeF32(data []byte) []float32 {
	width := FormatF32.BytesPerSample()
	out := make([]float32, len(data)/width)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*width:]))
	}
	return out
}

func decodeS16(data []byte) []int16 {
	width := FormatS16.BytesPerSample()
	out := make([]int16, len(data)/width)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*width:]))
	}
	return out
}

func decodeU16(data []byte) []uint16 {
	width := FormatU16.BytesPerSample()
	out := make([]uint16, len(data)/width)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[i*width:])
	}
	return out
}
