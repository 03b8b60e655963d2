package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// FFTSize is the transform window in samples.
	FFTSize = 256
	// BinCount is the number of frequency magnitudes and waveform samples per read.
	BinCount = FFTSize / 2

	smoothing = 0.8
	minDB     = -100.0
	maxDB     = -30.0
)

// Analyser is the analysis tap: it passes audio through untouched while
// keeping the most recent FFTSize mono samples for inspection.
type Analyser struct {
	s beep.Streamer

	mu       sync.Mutex
	ring     [FFTSize]float64
	pos      int
	smoothed [BinCount]float64
	window   []float64
}

// NewAnalyser taps s. A nil s makes a detached analyser fed through Push.
func NewAnalyser(s beep.Streamer) *Analyser {
	return &Analyser{s: s, window: window.Blackman(FFTSize)}
}

func (a *Analyser) Stream(samples [][2]float64) (int, bool) {
	n, ok := a.s.Stream(samples)
	a.mu.Lock()
	for i := range samples[:n] {
		a.ring[a.pos] = (samples[i][0] + samples[i][1]) / 2
		a.pos = (a.pos + 1) % FFTSize
	}
	a.mu.Unlock()
	return n, ok
}

func (a *Analyser) Err() error { return a.s.Err() }

// Push appends mono samples to the ring buffer.
func (a *Analyser) Push(mono []float64) {
	a.mu.Lock()
	for _, x := range mono {
		a.ring[a.pos] = x
		a.pos = (a.pos + 1) % FFTSize
	}
	a.mu.Unlock()
}

// chronological returns the last n samples oldest first. Caller holds mu.
func (a *Analyser) chronological(n int) []float64 {
	out := make([]float64, n)
	start := (a.pos - n + FFTSize) % FFTSize
	for i := range out {
		out[i] = a.ring[(start+i)%FFTSize]
	}
	return out
}

// FrequencyBytes returns BinCount magnitudes scaled to 0-255, lowest bin first.
// Each call smooths against the previous one.
func (a *Analyser) FrequencyBytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	frame := a.chronological(FFTSize)
	for i := range frame {
		frame[i] *= a.window[i]
	}
	coeffs := fft.FFTReal(frame)

	out := make([]byte, BinCount)
	for k := 0; k < BinCount; k++ {
		mag := cmplx.Abs(coeffs[k]) / FFTSize
		a.smoothed[k] = smoothing*a.smoothed[k] + (1-smoothing)*mag
		out[k] = dbToByte(a.smoothed[k])
	}
	return out
}

func dbToByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - minDB) / (maxDB - minDB)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v)
}

// WaveformBytes returns the newest BinCount samples, 128 meaning silence.
func (a *Analyser) WaveformBytes() []byte {
	a.mu.Lock()
	frame := a.chronological(BinCount)
	a.mu.Unlock()

	out := make([]byte, BinCount)
	for i, x := range frame {
		v := math.Floor(128 * (x + 1))
		out[i] = byte(math.Max(0, math.Min(255, v)))
	}
	return out
}
