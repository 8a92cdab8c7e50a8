package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/audiolibrelab/voxcapture/internal/audio"
)

const meterWidth = 40

// levelMeter redraws a single terminal line with the latest input level
type levelMeter struct {
	out   io.Writer
	drawn bool
}

func newLevelMeter(out io.Writer) *levelMeter {
	return &levelMeter{out: out}
}

func (m *levelMeter) render(level audio.Level) {
	fmt.Fprint(m.out, "\r"+formatLevel(level))
	m.drawn = true
}

func (m *levelMeter) clear() {
	if m.drawn {
		fmt.Fprint(m.out, "\r"+strings.Repeat(" ", meterWidth+32)+"\r")
		m.drawn = false
	}
}

func formatLevel(level audio.Level) string {
	filled := int(math.Round(math.Min(level.Peak, 1) * meterWidth))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", meterWidth-filled)
	return fmt.Sprintf("[%s] rms %.3f peak %.3f", bar, level.RMS, level.Peak)
}
