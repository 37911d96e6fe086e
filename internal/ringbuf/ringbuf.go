// Package ringbuf provides a fixed-capacity rolling window over float64
// samples. Undefined samples (NaN) occupy a slot like any other value, so a
// window that contains one is not Full until the NaN has rolled out.
package ringbuf

import "math"

// Window keeps the last Cap() samples with a running sum for O(1) mean.
// Not safe for concurrent use.
type Window struct {
	buf   []float64
	idx   int // next write position
	count int // total samples pushed, saturating at len(buf)
	nan   int // NaN samples currently in the window

	sum float64
}

// New creates a window of the given size. Size must be positive.
func New(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest sample once the window is full.
func (w *Window) Push(v float64) {
	if w.count == len(w.buf) {
		old := w.buf[w.idx]
		if math.IsNaN(old) {
			w.nan--
		} else {
			w.sum -= old
		}
	} else {
		w.count++
	}

	w.buf[w.idx] = v
	if math.IsNaN(v) {
		w.nan++
	} else {
		w.sum += v
	}
	w.idx = (w.idx + 1) % len(w.buf)

	// Running sums drift on long series; rebuild once every full cycle.
	if w.idx == 0 && w.count == len(w.buf) {
		w.resum()
	}
}

// Full reports whether the window holds Cap() defined samples.
func (w *Window) Full() bool {
	return w.count == len(w.buf) && w.nan == 0
}

// Len returns the number of samples currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the window size.
func (w *Window) Cap() int { return len(w.buf) }

// Mean returns the window mean, or NaN unless Full.
func (w *Window) Mean() float64 {
	if !w.Full() {
		return math.NaN()
	}
	return w.sum / float64(len(w.buf))
}

// StdDev returns the sample standard deviation (n-1 denominator),
// or NaN unless Full and Cap() > 1. Two-pass over the buffer; windows are small.
func (w *Window) StdDev() float64 {
	n := float64(len(w.buf))
	if !w.Full() || n < 2 {
		return math.NaN()
	}
	mean := w.sum / n
	var ss float64
	for _, v := range w.buf {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1))
}

// Reset clears the window for reuse.
func (w *Window) Reset() {
	w.idx, w.count, w.nan = 0, 0, 0
	w.sum = 0
	for i := range w.buf {
		w.buf[i] = 0
	}
}

func (w *Window) resum() {
	w.sum = 0
	for _, v := range w.buf {
		if !math.IsNaN(v) {
			w.sum += v
		}
	}
}
