package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/audiolibrelab/voxcapture/internal/audio"
)

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level  audio.Level
		filled int
	}{
		{audio.Level{}, 0},
		{audio.Level{RMS: 0.2, Peak: 0.5}, 20},
		{audio.Level{RMS: 1, Peak: 1}, 40},
		// s16 negative extreme can push peak past 1
		{audio.Level{RMS: 1, Peak: 1.00003}, 40},
	}

	for _, tt := range tests {
		out := formatLevel(tt.level)
		if got := strings.Count(out, "#"); got != tt.filled {
			t.Errorf("formatLevel(%+v) filled %d cells, expected %d: %s", tt.level, got, tt.filled, out)
		}
		if got := strings.Count(out, "#") + strings.Count(out, "-"); got != meterWidth {
			t.Errorf("formatLevel(%+v) bar width %d, expected %d", tt.level, got, meterWidth)
		}
	}
}

func TestLevelMeterClear(t *testing.T) {
	var buf bytes.Buffer
	m := newLevelMeter(&buf)

	m.clear()
	if buf.Len() != 0 {
		t.Errorf("Expected no output before first render, got %q", buf.String())
	}

	m.render(audio.Level{RMS: 0.1, Peak: 0.2})
	m.clear()
	if !strings.HasSuffix(buf.String(), "\r") {
		t.Errorf("Expected cleared line to end with carriage return, got %q", buf.String())
	}
}
