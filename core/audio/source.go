package audio

import (
	"github.com/gopxl/beep/v2"
)

// source is the persistent head of the signal chain. Loading a track swaps
// the inner stream; the node itself and everything downstream stay in place.
// All fields are guarded by the output lock.
type source struct {
	track   *decoded
	stream  beep.Streamer // track.streamer resampled to the output rate
	paused  bool
	ended   bool
	outRate beep.SampleRate
	onEnd   func()
}

func newSource(outRate beep.SampleRate, onEnd func()) *source {
	return &source{paused: true, outRate: outRate, onEnd: onEnd}
}

// swap replaces the inner stream and returns the previous track for release.
func (s *source) swap(d *decoded) *decoded {
	prev := s.track
	s.track = d
	s.paused = true
	s.ended = false
	s.stream = nil
	if d != nil {
		s.rebuild()
	}
	return prev
}

// rebuild restarts the resampler after the decoder position moved.
func (s *source) rebuild() {
	if s.track.format.SampleRate == s.outRate {
		s.stream = s.track.streamer
		return
	}
	s.stream = beep.Resample(4, s.track.format.SampleRate, s.outRate, s.track.streamer)
}

func (s *source) Stream(samples [][2]float64) (int, bool) {
	if s.paused || s.stream == nil {
		silence(samples)
		return len(samples), true
	}
	n, ok := s.stream.Stream(samples)
	if n < len(samples) {
		silence(samples[n:])
	}
	if !ok || n < len(samples) {
		s.ended = true
		s.paused = true
		if s.onEnd != nil {
			s.onEnd()
		}
	}
	return len(samples), true
}

func (s *source) Err() error { return nil }

func silence(samples [][2]float64) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
}
