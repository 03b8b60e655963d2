package model

// PlaybackState is derived from the engine's transport status.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText lets the state travel as a string in JSON snapshots.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VisualizerMode selects the projection the renderer draws.
type VisualizerMode int

const (
	ModeBars VisualizerMode = iota
	ModeWaveform
	ModeRadial

	visualizerModeCount = 3
)

// Next cycles Bars → Waveform → Radial → Bars.
func (m VisualizerMode) Next() VisualizerMode {
	return (m + 1) % visualizerModeCount
}

func (m VisualizerMode) String() string {
	switch m {
	case ModeBars:
		return "bars"
	case ModeWaveform:
		return "waveform"
	case ModeRadial:
		return "radial"
	default:
		return "unknown"
	}
}

func (m VisualizerMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// EqFrequencies are the fixed centre frequencies of the equalizer, in Hz.
var EqFrequencies = [5]float64{60, 250, 1000, 4000, 12000}

// EqQ is the quality factor shared by every band.
const EqQ = 1.0

// EqBand is one peaking band of the equalizer. Only GainDB mutates.
type EqBand struct {
	Frequency float64 `json:"frequency"`
	GainDB    float64 `json:"gainDb"`
	Q         float64 `json:"q"`
}

// Snapshot is what the playlist view and transport UI render from.
type Snapshot struct {
	Tracks       []*Track       `json:"tracks"`
	CurrentIndex int            `json:"currentIndex"`
	Favorites    []string       `json:"favorites"`
	State        PlaybackState  `json:"state"`
	Position     float64        `json:"position"` // seconds
	Duration     float64        `json:"duration"` // seconds
	Shuffle      bool           `json:"shuffle"`
	Repeat       bool           `json:"repeat"`
	Volume       float64        `json:"volume"`
	Mode         VisualizerMode `json:"visualizerMode"`
	Bands        []EqBand       `json:"bands"`
	GraphReady   bool           `json:"graphReady"`
}

// IsFavorite reports whether the track's name is in the favorites list.
func (s Snapshot) IsFavorite(t *Track) bool {
	for _, name := range s.Favorites {
		if name == t.Name {
			return true
		}
	}
	return false
}
