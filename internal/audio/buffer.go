package audio

import "sync"

// Buffer accumulates quantized mono samples for the running recording. It is
// written from the device callback and drained from command goroutines; the
// lock is only held for slice operations.
type Buffer struct {
	mu      sync.Mutex
	samples []int16
}

// NewBuffer creates an empty capture buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds samples to the tail, preserving order
func (b *Buffer) Append(samples []int16) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

// Clear drops all buffered samples
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.samples = nil
	b.mu.Unlock()
}

// Drain returns the buffered samples and empties the buffer in one critical
// section, so nothing appended in between is lost.
func (b *Buffer) Drain() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.samples
	b.samples = nil
	if out == nil {
		out = []int16{}
	}
	return out
}

// Len returns the number of buffered samples
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}
