package telemetry

import (
	"math"
	"time"
)

// MinHistorySize is the smallest history a channel may carry.
const MinHistorySize = 10

// History is a fixed-capacity ring of quantized samples.
//
// A sample is stored as int16(round(Scale*(v-Offset))); Scale and Offset
// should be picked so the expected range fits in 16 bits.
type History struct {
	Scale    float64
	Offset   float64
	Interval time.Duration

	data  []int16
	head  int // index of the oldest sample
	count int
	last  time.Time
}

func newHistory(n int, scale, offset float64, interval time.Duration) *History {
	if n < MinHistorySize {
		n = MinHistorySize
	}
	if scale == 0 {
		scale = 1
	}
	return &History{Scale: scale, Offset: offset, Interval: interval, data: make([]int16, n)}
}

// Cap is the number of slots.
func (h *History) Cap() int { return len(h.data) }

// Len is the number of samples recorded so far, at most Cap.
func (h *History) Len() int { return h.count }

// LastSample is when the newest sample was taken.
func (h *History) LastSample() time.Time { return h.last }

func (h *History) due(now time.Time) bool {
	return h.last.IsZero() || now.Sub(h.last) >= h.Interval
}

// push drops the oldest slot and appends v.
func (h *History) push(now time.Time, v float64) {
	q := math.Round(h.Scale * (v - h.Offset))
	if q > math.MaxInt16 {
		q = math.MaxInt16
	} else if q < math.MinInt16 {
		q = math.MinInt16
	}
	h.data[h.head] = int16(q)
	h.head = (h.head + 1) % len(h.data)
	if h.count < len(h.data) {
		h.count++
	}
	h.last = now
}

// Raw returns all Cap slots oldest first. Slots never written are zero.
func (h *History) Raw() []int16 {
	out := make([]int16, 0, len(h.data))
	out = append(out, h.data[h.head:]...)
	out = append(out, h.data[:h.head]...)
	return out
}

// Values returns the recorded samples, oldest first, converted back to
// channel units.
func (h *History) Values() []float64 {
	raw := h.Raw()
	raw = raw[len(raw)-h.count:]
	out := make([]float64, len(raw))
	for i, q := range raw {
		out[i] = float64(q)/h.Scale + h.Offset
	}
	return out
}
