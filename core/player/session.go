package player

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"DevAmp/core/audio"
	"DevAmp/logger"
	"DevAmp/model"
)

// Options configures a Session.
type Options struct {
	// Attach builds the signal graph on first activation. The default routes
	// the engine through a new graph when it supports it and otherwise builds
	// a detached graph over silence.
	Attach func(audio.Engine) *audio.Graph
	// EventBuffer is the initial capacity of the session's event queue.
	// The queue grows past it rather than blocking or reordering.
	EventBuffer int
}

// Session owns one player instance: store, transport controller, engine and
// signal graph. A single loop goroutine runs every operation and engine
// callback in arrival order; exported methods hand work to it and wait.
type Session struct {
	store  *Store
	ctrl   *Controller
	engine audio.Engine
	attach func(audio.Engine) *audio.Graph

	graph atomic.Pointer[audio.Graph]
	mode  atomic.Int32

	queueMu   sync.Mutex
	queue     []func()
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	subMu sync.Mutex
	subs  map[chan model.Snapshot]struct{}
}

// NewSession starts a session driving engine.
func NewSession(engine audio.Engine, opts Options) *Session {
	if opts.Attach == nil {
		opts.Attach = attachGraph
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}

	s := &Session{
		store:  NewStore(),
		engine: engine,
		attach: opts.Attach,
		queue:  make([]func(), 0, opts.EventBuffer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		subs:   make(map[chan model.Snapshot]struct{}),
	}
	s.ctrl = NewController(s.store, engine)
	s.ctrl.BeforePlay = s.activate
	s.ctrl.OnPlayed = func(error) { s.publish() }
	engine.SetListener(s, s.post)

	s.wg.Add(1)
	go s.run()
	return s
}

func attachGraph(e audio.Engine) *audio.Graph {
	if r, ok := e.(audio.Router); ok {
		return audio.Attach(r)
	}
	return audio.NewGraph(beep.Silence(-1), beep.SampleRate(44100))
}

func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.wake:
			if !s.drain() {
				return
			}
		case <-s.done:
			return
		}
	}
}

// drain runs the queued events in order. It reports false once the session
// is closed.
func (s *Session) drain() bool {
	for {
		s.queueMu.Lock()
		batch := s.queue
		s.queue = nil
		s.queueMu.Unlock()
		if len(batch) == 0 {
			return true
		}
		for _, f := range batch {
			select {
			case <-s.done:
				return false
			default:
			}
			f()
		}
	}
}

// post queues f on the loop without waiting. It is safe from any goroutine,
// the loop included, and keeps the order of calls.
func (s *Session) post(f func()) {
	select {
	case <-s.done:
		return
	default:
	}
	s.queueMu.Lock()
	s.queue = append(s.queue, f)
	s.queueMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// do runs f on the loop and waits for it, then publishes a snapshot.
func (s *Session) do(f func()) {
	finished := make(chan struct{})
	s.post(func() {
		defer close(finished)
		f()
		s.publish()
	})
	select {
	case <-finished:
	case <-s.done:
	}
}

// --- Engine listener, always on the loop ---

func (s *Session) OnTimeUpdate(time.Duration)    { s.publish() }
func (s *Session) OnDurationKnown(time.Duration) { s.publish() }

func (s *Session) OnEnded() {
	s.ctrl.TrackEnded()
	s.publish()
}

// --- Transport UI operations ---

// AddTracks appends tracks. The first addition to an empty, idle playlist
// loads index 0 without playing it.
func (s *Session) AddTracks(tracks ...*model.Track) {
	if len(tracks) == 0 {
		return
	}
	s.do(func() {
		wasEmpty := s.store.Len() == 0
		s.store.Append(tracks...)
		logger.Info("tracks added",
			logger.Int("count", len(tracks)),
			logger.Int("total", s.store.Len()))
		if wasEmpty && s.engine.Paused() {
			s.ctrl.Load(0)
		}
	})
}

// Remove drops the track at i and releases it. When the current track goes,
// the track now at the current index is loaded and keeps playing if the
// removed one was.
func (s *Session) Remove(i int) {
	s.do(func() {
		wasCurrent := i == s.store.Index()
		wasPlaying := !s.engine.Paused()
		t, ok := s.store.Remove(i)
		if !ok {
			return
		}
		logger.Info("track removed", logger.String("name", t.Name), logger.Int("index", i))
		switch {
		case s.store.Len() == 0:
			s.engine.Unload()
		case wasCurrent:
			s.ctrl.Load(s.store.Index())
			if wasPlaying {
				s.ctrl.play()
			}
		}
	})
}

func (s *Session) Select(i int)    { s.do(func() { s.ctrl.Select(i) }) }
func (s *Session) TogglePlay()     { s.do(s.ctrl.TogglePlay) }
func (s *Session) Next()           { s.do(s.ctrl.Next) }
func (s *Session) Prev()           { s.do(s.ctrl.Prev) }
func (s *Session) ToggleShuffle()  { s.do(s.ctrl.ToggleShuffle) }
func (s *Session) ToggleRepeat()   { s.do(s.ctrl.ToggleRepeat) }
func (s *Session) ToggleFavorite() { s.do(s.ctrl.ToggleFavorite) }

// SeekBy moves the playhead by d, clamped to the track.
func (s *Session) SeekBy(d time.Duration) { s.do(func() { s.ctrl.SeekBy(d) }) }

// SetVolume sets the level, clamped to [0,1].
func (s *Session) SetVolume(level float64) {
	if math.IsNaN(level) {
		return
	}
	s.do(func() { s.engine.SetVolume(level) })
}

// AdjustVolume moves the level by delta within [0,1].
func (s *Session) AdjustVolume(delta float64) {
	s.do(func() {
		s.engine.SetVolume(math.Max(0, math.Min(1, s.engine.Volume()+delta)))
	})
}

// Seek moves to fraction of the current track's duration.
func (s *Session) Seek(fraction float64) {
	if math.IsNaN(fraction) {
		return
	}
	fraction = math.Max(0, math.Min(1, fraction))
	s.do(func() {
		d := s.engine.Duration()
		if !s.engine.Loaded() || d <= 0 {
			return
		}
		s.engine.Seek(time.Duration(fraction * float64(d)))
	})
}

// CycleVisualizerMode switches Bars, Waveform, Radial in turn.
func (s *Session) CycleVisualizerMode() {
	s.do(func() {
		s.mode.Store(int32(s.Mode().Next()))
	})
}

// SetEqBandGain sets the gain of the band at freq. Unknown frequencies and
// calls before activation change nothing and report false.
func (s *Session) SetEqBandGain(freq, db float64) bool {
	var ok bool
	s.do(func() {
		if g := s.graph.Load(); g != nil {
			ok = g.SetGain(freq, db)
		}
	})
	return ok
}

// Activate builds the signal graph. Later calls do nothing.
func (s *Session) Activate() { s.do(s.activate) }

func (s *Session) activate() {
	if s.graph.Load() != nil {
		return
	}
	s.graph.Store(s.attach(s.engine))
	logger.Info("signal graph initialized",
		logger.Int("fftSize", audio.FFTSize),
		logger.Int("bins", audio.BinCount))
}

// --- Visualizer source ---

// Ready reports whether the signal graph exists.
func (s *Session) Ready() bool { return s.graph.Load() != nil }

func (s *Session) Mode() model.VisualizerMode {
	return model.VisualizerMode(s.mode.Load())
}

// FrequencyBytes reads the analysis tap, nil before activation.
func (s *Session) FrequencyBytes() []byte {
	if g := s.graph.Load(); g != nil {
		return g.FrequencyBytes()
	}
	return nil
}

// WaveformBytes reads the analysis tap, nil before activation.
func (s *Session) WaveformBytes() []byte {
	if g := s.graph.Load(); g != nil {
		return g.WaveformBytes()
	}
	return nil
}

// --- Snapshots ---

// Snapshot returns the current state as the playlist view sees it.
func (s *Session) Snapshot() model.Snapshot {
	var snap model.Snapshot
	finished := make(chan struct{})
	s.post(func() {
		snap = s.snapshot()
		close(finished)
	})
	select {
	case <-finished:
	case <-s.done:
	}
	return snap
}

func (s *Session) snapshot() model.Snapshot {
	snap := model.Snapshot{
		Tracks:       s.store.Tracks(),
		CurrentIndex: s.store.Index(),
		Favorites:    s.store.Favorites(),
		State:        s.ctrl.State(),
		Position:     s.engine.Position().Seconds(),
		Duration:     s.engine.Duration().Seconds(),
		Shuffle:      s.ctrl.Shuffle(),
		Repeat:       s.ctrl.Repeat(),
		Volume:       s.engine.Volume(),
		Mode:         s.Mode(),
	}
	if g := s.graph.Load(); g != nil {
		snap.Bands = g.Bands()
		snap.GraphReady = true
	} else {
		snap.Bands = make([]model.EqBand, len(model.EqFrequencies))
		for i, f := range model.EqFrequencies {
			snap.Bands[i] = model.EqBand{Frequency: f, Q: model.EqQ}
		}
	}
	return snap
}

// Subscribe returns a channel receiving the latest snapshot after every
// change. Slow readers only see the newest one. cancel stops delivery.
func (s *Session) Subscribe() (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
	return ch, cancel
}

// publish runs on the loop.
func (s *Session) publish() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshot()
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close stops the loop and releases the loaded source.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.engine.Unload()
		logger.Info("session closed")
	})
}
