package indicator

import (
	"math"
)

// Window is a fixed-capacity FIFO of values. Once full, every Push evicts the oldest value.
type Window struct {
	values []float64
	size   int
}

// NewWindow creates a window holding at most size values. size must be positive.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}

	return &Window{
		values: make([]float64, 0, size),
		size:   size,
	}
}

// Push appends v, dropping the oldest value when the window is full.
func (w *Window) Push(v float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}

	w.values = append(w.values, v)
}

// Values returns a copy of the window contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)

	return out
}

func (w *Window) Len() int {
	return len(w.values)
}

func (w *Window) Cap() int {
	return w.size
}

// Full reports whether the window holds Cap() values.
func (w *Window) Full() bool {
	return len(w.values) == w.size
}

// Last returns the newest value, or 0 when empty.
func (w *Window) Last() float64 {
	if len(w.values) == 0 {
		return 0
	}

	return w.values[len(w.values)-1]
}

// Mean is the arithmetic mean of the values, or 0 when empty.
func (w *Window) Mean() float64 {
	return mean(w.values)
}

// StdDev is the population standard deviation of the values.
func (w *Window) StdDev() float64 {
	if len(w.values) == 0 {
		return 0
	}

	m := mean(w.values)

	var sum float64
	for _, v := range w.values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(w.values)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
