package audio

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"DevAmp/logger"
	"DevAmp/model"
)

// ErrNoSource is returned by Play when no track is loaded.
var ErrNoSource = errors.New("no source loaded")

// Listener receives engine notifications. Calls arrive through the dispatch
// function given to SetListener and never for a superseded load.
type Listener interface {
	OnTimeUpdate(pos time.Duration)
	OnDurationKnown(d time.Duration)
	OnEnded()
}

// Engine owns the single playable source.
type Engine interface {
	// Load binds the engine to the track, rewinds to zero and releases the
	// previously loaded file. The engine is left paused.
	Load(t *model.Track) error
	// Unload releases the source.
	Unload()
	// Play requests playback. done receives the outcome on a later dispatch.
	Play(done func(error))
	Pause()
	// Seek moves the playhead, clamped to [0, Duration()].
	Seek(d time.Duration)
	// SetVolume sets the output level, clamped to [0,1].
	SetVolume(level float64)
	Volume() float64
	Position() time.Duration
	Duration() time.Duration
	Paused() bool
	Loaded() bool
	// SetListener registers l. Listener calls and Play completions are
	// scheduled through dispatch; nil runs them on the engine's goroutine.
	SetListener(l Listener, dispatch func(func()))
}

// Options configures a BeepEngine.
type Options struct {
	SampleRate beep.SampleRate
	// BufferSize is the device buffer length.
	BufferSize time.Duration
	// TimeUpdate is the interval between OnTimeUpdate notifications while playing.
	TimeUpdate time.Duration
}

// stage is the output end of the chain. Route swaps what it pulls from.
type stage struct {
	s beep.Streamer
}

func (st *stage) Stream(samples [][2]float64) (int, bool) {
	return st.s.Stream(samples)
}

func (st *stage) Err() error { return st.s.Err() }

// BeepEngine is the Engine backed by gopxl/beep.
type BeepEngine struct {
	out        Output
	sampleRate beep.SampleRate
	bufferSize int
	tick       time.Duration

	src      *source
	volume   *effects.Volume
	stage    *stage
	level    float64
	duration time.Duration

	listenerMu sync.RWMutex
	listener   Listener
	dispatch   func(func())

	startMu sync.Mutex
	started bool

	gen     atomic.Uint64
	// req counts Play and Pause calls. A pending Play only unpauses while
	// it is still the latest request.
	req     atomic.Uint64
	endedCh chan uint64
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewBeepEngine creates an engine playing through out.
func NewBeepEngine(out Output, opts Options) *BeepEngine {
	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100 * time.Millisecond
	}
	if opts.TimeUpdate <= 0 {
		opts.TimeUpdate = 250 * time.Millisecond
	}

	e := &BeepEngine{
		out:        out,
		sampleRate: opts.SampleRate,
		bufferSize: opts.SampleRate.N(opts.BufferSize),
		tick:       opts.TimeUpdate,
		level:      1,
		endedCh:    make(chan uint64, 1),
		done:       make(chan struct{}),
	}
	e.src = newSource(opts.SampleRate, e.signalEnded)
	e.volume = &effects.Volume{Streamer: e.src, Base: 2}
	e.stage = &stage{s: e.volume}

	e.wg.Add(1)
	go e.monitor()
	return e
}

// SampleRate is the rate every stream is resampled to.
func (e *BeepEngine) SampleRate() beep.SampleRate { return e.sampleRate }

// Source returns the volume-adjusted source node, the input of the signal graph.
func (e *BeepEngine) Source() beep.Streamer { return e.volume }

// Route makes the output pull from s instead of the source node.
func (e *BeepEngine) Route(s beep.Streamer) {
	e.out.Lock()
	e.stage.s = s
	e.out.Unlock()
}

// Lock and Unlock expose the output lock to readers of shared chain state.
func (e *BeepEngine) Lock()   { e.out.Lock() }
func (e *BeepEngine) Unlock() { e.out.Unlock() }

func (e *BeepEngine) SetListener(l Listener, dispatch func(func())) {
	e.listenerMu.Lock()
	e.listener = l
	e.dispatch = dispatch
	e.listenerMu.Unlock()
}

func (e *BeepEngine) schedule(f func()) {
	e.listenerMu.RLock()
	dispatch := e.dispatch
	e.listenerMu.RUnlock()
	if dispatch == nil {
		f()
		return
	}
	dispatch(f)
}

// post schedules f unless a newer load happened in between. The check runs
// when f is due, not when it is queued.
func (e *BeepEngine) post(gen uint64, f func(Listener)) {
	e.schedule(func() {
		if e.gen.Load() != gen {
			return
		}
		e.listenerMu.RLock()
		l := e.listener
		e.listenerMu.RUnlock()
		if l != nil {
			f(l)
		}
	})
}

func (e *BeepEngine) Load(t *model.Track) error {
	d, err := decodeFile(t.Path)

	e.out.Lock()
	gen := e.gen.Add(1)
	var prev *decoded
	if err != nil {
		prev = e.src.swap(nil)
		e.duration = 0
	} else {
		prev = e.src.swap(d)
		e.duration = d.format.SampleRate.D(d.streamer.Len())
	}
	dur := e.duration
	e.out.Unlock()

	if prev != nil {
		prev.Close()
	}
	if err != nil {
		return err
	}

	logger.Debug("track loaded",
		logger.String("name", t.Name),
		logger.Duration("duration", dur),
		logger.Int("sampleRate", int(d.format.SampleRate)))
	e.post(gen, func(l Listener) { l.OnDurationKnown(dur) })
	return nil
}

func (e *BeepEngine) Unload() {
	e.out.Lock()
	e.gen.Add(1)
	prev := e.src.swap(nil)
	e.duration = 0
	e.out.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// start opens the output on first use. A failed attempt is retried on the next Play.
func (e *BeepEngine) start() error {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.started {
		return nil
	}
	if err := e.out.Init(e.sampleRate, e.bufferSize); err != nil {
		return err
	}
	e.out.Play(e.stage)
	e.started = true
	return nil
}

func (e *BeepEngine) Play(done func(error)) {
	gen := e.gen.Load()
	req := e.req.Add(1)
	go func() {
		err := e.start()
		if err == nil {
			e.out.Lock()
			switch {
			case e.src.track == nil:
				err = ErrNoSource
			case e.gen.Load() != gen, e.req.Load() != req:
				// superseded by a newer load, pause or play
			default:
				if e.src.ended {
					e.seekLocked(0)
				}
				e.src.paused = false
			}
			e.out.Unlock()
		}
		if done != nil {
			e.schedule(func() { done(err) })
		}
	}()
}

func (e *BeepEngine) Pause() {
	e.out.Lock()
	e.req.Add(1)
	e.src.paused = true
	e.out.Unlock()
}

func (e *BeepEngine) Seek(d time.Duration) {
	e.out.Lock()
	if e.src.track == nil {
		e.out.Unlock()
		return
	}
	pos := e.seekLocked(d)
	gen := e.gen.Load()
	e.out.Unlock()
	e.post(gen, func(l Listener) { l.OnTimeUpdate(pos) })
}

func (e *BeepEngine) seekLocked(d time.Duration) time.Duration {
	if d < 0 {
		d = 0
	}
	if d > e.duration {
		d = e.duration
	}
	t := e.src.track
	n := t.format.SampleRate.N(d)
	if n > t.streamer.Len() {
		n = t.streamer.Len()
	}
	if err := t.streamer.Seek(n); err != nil {
		logger.Warn("seek failed", logger.Duration("to", d), logger.ErrorField(err))
	}
	e.src.rebuild()
	e.src.ended = false
	return t.format.SampleRate.D(t.streamer.Position())
}

func (e *BeepEngine) SetVolume(level float64) {
	level = math.Max(0, math.Min(1, level))
	e.out.Lock()
	e.level = level
	if level == 0 {
		e.volume.Silent = true
	} else {
		e.volume.Silent = false
		e.volume.Volume = math.Log2(level)
	}
	e.out.Unlock()
}

func (e *BeepEngine) Volume() float64 {
	e.out.Lock()
	defer e.out.Unlock()
	return e.level
}

func (e *BeepEngine) Position() time.Duration {
	e.out.Lock()
	defer e.out.Unlock()
	return e.positionLocked()
}

func (e *BeepEngine) positionLocked() time.Duration {
	t := e.src.track
	if t == nil {
		return 0
	}
	return t.format.SampleRate.D(t.streamer.Position())
}

func (e *BeepEngine) Duration() time.Duration {
	e.out.Lock()
	defer e.out.Unlock()
	return e.duration
}

func (e *BeepEngine) Paused() bool {
	e.out.Lock()
	defer e.out.Unlock()
	return e.src.paused
}

func (e *BeepEngine) Loaded() bool {
	e.out.Lock()
	defer e.out.Unlock()
	return e.src.track != nil
}

// signalEnded runs on the audio goroutine with the output lock held.
// The generation cannot move while the lock is held.
func (e *BeepEngine) signalEnded() {
	gen := e.gen.Load()
	select {
	case <-e.endedCh:
	default:
	}
	select {
	case e.endedCh <- gen:
	default:
	}
}

func (e *BeepEngine) monitor() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case gen := <-e.endedCh:
			e.post(gen, func(l Listener) { l.OnEnded() })
		case <-ticker.C:
			e.out.Lock()
			playing := e.src.track != nil && !e.src.paused
			pos := e.positionLocked()
			gen := e.gen.Load()
			e.out.Unlock()
			if playing {
				e.post(gen, func(l Listener) { l.OnTimeUpdate(pos) })
			}
		}
	}
}

// Close stops the monitor, releases the source and closes the output.
func (e *BeepEngine) Close() {
	e.once.Do(func() {
		close(e.done)
		e.wg.Wait()
		e.Unload()
		e.startMu.Lock()
		if e.started {
			e.out.Close()
			e.started = false
		}
		e.startMu.Unlock()
	})
}
