package llmclient

import (
	"sync"
	"time"
)

const latencyWindowSize = 20

// LatencyWindow is a bounded ring buffer of round-trip durations for
// completed HTTP calls. It exists for diagnostics only; retry policy
// never consults it.
type LatencyWindow struct {
	mu      sync.Mutex
	samples [latencyWindowSize]time.Duration
	next    int
	filled  int
}

// NewLatencyWindow creates an empty window.
func NewLatencyWindow() *LatencyWindow {
	return &LatencyWindow{}
}

// Record adds one round-trip duration, evicting the oldest sample once
// the window is full.
func (w *LatencyWindow) Record(d time.Duration) {
	w.mu.Lock()
	w.samples[w.next] = d
	w.next = (w.next + 1) % latencyWindowSize
	if w.filled < latencyWindowSize {
		w.filled++
	}
	w.mu.Unlock()
}

// Mean returns the rolling mean of recorded samples, zero when empty.
func (w *LatencyWindow) Mean() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.filled == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < w.filled; i++ {
		total += w.samples[i]
	}
	return total / time.Duration(w.filled)
}

// Count returns the number of samples currently held.
func (w *LatencyWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filled
}
