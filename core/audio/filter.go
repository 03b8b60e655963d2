package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
)

// PeakingFilter is a biquad peaking equalizer band (RBJ audio EQ cookbook).
// It boosts or cuts a band around Frequency by GainDB; Q sets the width.
type PeakingFilter struct {
	s          beep.Streamer
	sampleRate float64
	frequency  float64
	q          float64

	mu             sync.Mutex
	gain           float64
	b0, b1, b2     float64
	a1, a2         float64
	x1, x2, y1, y2 [2]float64
}

// NewPeakingFilter wraps s with a band at frequency Hz.
func NewPeakingFilter(s beep.Streamer, sr beep.SampleRate, frequency, q, gainDB float64) *PeakingFilter {
	f := &PeakingFilter{
		s:          s,
		sampleRate: float64(sr),
		frequency:  frequency,
		q:          q,
	}
	f.SetGain(gainDB)
	return f
}

func (f *PeakingFilter) Frequency() float64 { return f.frequency }
func (f *PeakingFilter) Q() float64         { return f.q }

func (f *PeakingFilter) Gain() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gain
}

// SetGain recomputes the coefficients. Filter state is kept so the change
// does not click.
func (f *PeakingFilter) SetGain(db float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gain = db

	// A band at or above Nyquist cannot be realised; pass through.
	if f.frequency <= 0 || f.frequency >= f.sampleRate/2 {
		f.b0, f.b1, f.b2, f.a1, f.a2 = 1, 0, 0, 0, 0
		return
	}

	a := math.Pow(10, db/40)
	w0 := 2 * math.Pi * f.frequency / f.sampleRate
	alpha := math.Sin(w0) / (2 * f.q)
	cosw := math.Cos(w0)

	a0 := 1 + alpha/a
	f.b0 = (1 + alpha*a) / a0
	f.b1 = -2 * cosw / a0
	f.b2 = (1 - alpha*a) / a0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha/a) / a0
}

func (f *PeakingFilter) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.s.Stream(samples)

	f.mu.Lock()
	for i := range samples[:n] {
		for c := 0; c < 2; c++ {
			x := samples[i][c]
			y := f.b0*x + f.b1*f.x1[c] + f.b2*f.x2[c] - f.a1*f.y1[c] - f.a2*f.y2[c]
			f.x2[c], f.x1[c] = f.x1[c], x
			f.y2[c], f.y1[c] = f.y1[c], y
			samples[i][c] = y
		}
	}
	f.mu.Unlock()
	return n, ok
}

func (f *PeakingFilter) Err() error { return f.s.Err() }
