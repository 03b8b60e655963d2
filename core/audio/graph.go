package audio

import (
	"github.com/gopxl/beep/v2"

	"DevAmp/model"
)

// Graph is the fixed equalizer chain feeding the analysis tap:
// source, one peaking band per model.EqFrequencies entry, analyser.
// It is built once and never rebuilt.
type Graph struct {
	bands []*PeakingFilter
	tap   *Analyser
}

// NewGraph chains the bands and the tap onto src.
func NewGraph(src beep.Streamer, sr beep.SampleRate) *Graph {
	g := &Graph{bands: make([]*PeakingFilter, 0, len(model.EqFrequencies))}
	var s beep.Streamer = src
	for _, freq := range model.EqFrequencies {
		band := NewPeakingFilter(s, sr, freq, model.EqQ, 0)
		g.bands = append(g.bands, band)
		s = band
	}
	g.tap = NewAnalyser(s)
	return g
}

// Router is an engine whose output stage can be pointed at a graph.
type Router interface {
	Source() beep.Streamer
	SampleRate() beep.SampleRate
	Route(s beep.Streamer)
}

// Attach builds a graph on the engine's source and routes the output through it.
func Attach(r Router) *Graph {
	g := NewGraph(r.Source(), r.SampleRate())
	r.Route(g.Output())
	return g
}

// Output is the end of the chain.
func (g *Graph) Output() beep.Streamer { return g.tap }

// SetGain changes the band whose centre frequency equals freq exactly.
// It reports false and changes nothing when no band matches.
func (g *Graph) SetGain(freq, db float64) bool {
	for _, b := range g.bands {
		if b.Frequency() == freq {
			b.SetGain(db)
			return true
		}
	}
	return false
}

// Bands reports the current band settings, lowest frequency first.
func (g *Graph) Bands() []model.EqBand {
	out := make([]model.EqBand, len(g.bands))
	for i, b := range g.bands {
		out[i] = model.EqBand{Frequency: b.Frequency(), GainDB: b.Gain(), Q: b.Q()}
	}
	return out
}

func (g *Graph) FrequencyBytes() []byte { return g.tap.FrequencyBytes() }
func (g *Graph) WaveformBytes() []byte  { return g.tap.WaveformBytes() }
