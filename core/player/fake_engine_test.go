package player

import (
	"sync"
	"time"

	"DevAmp/core/audio"
	"DevAmp/model"
)

// fakeEngine is an in-memory audio.Engine. Play requests are held until
// resolved unless autoPlay is set.
type fakeEngine struct {
	mu       sync.Mutex
	track    *model.Track
	paused   bool
	position time.Duration
	duration time.Duration
	volume   float64
	loads    []string
	seeks    []time.Duration
	unloads  int

	autoPlay bool
	pending  []func(error)
	// reqs counts Load, Play and Pause calls; only the latest Play unpauses.
	reqs     uint64

	listener audio.Listener
	dispatch func(func())
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{paused: true, volume: 1, duration: 3 * time.Minute, autoPlay: true}
}

func (f *fakeEngine) Load(t *model.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track = t
	f.paused = true
	f.position = 0
	f.reqs++
	f.loads = append(f.loads, t.Name)
	return nil
}

func (f *fakeEngine) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track = nil
	f.paused = true
	f.position = 0
	f.reqs++
	f.unloads++
}

func (f *fakeEngine) Play(done func(error)) {
	f.mu.Lock()
	f.reqs++
	req := f.reqs
	resolve := func(err error) {
		f.mu.Lock()
		if err == nil && f.track != nil && f.reqs == req {
			f.paused = false
		}
		if f.track == nil {
			err = audio.ErrNoSource
		}
		f.mu.Unlock()
		f.schedule(func() { done(err) })
	}
	if !f.autoPlay {
		f.pending = append(f.pending, resolve)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	resolve(nil)
}

// resolvePending completes the i-th held Play request.
func (f *fakeEngine) resolvePending(i int, err error) {
	f.mu.Lock()
	resolve := f.pending[i]
	f.mu.Unlock()
	resolve(err)
}

func (f *fakeEngine) schedule(fn func()) {
	f.mu.Lock()
	dispatch := f.dispatch
	f.mu.Unlock()
	if dispatch == nil {
		fn()
		return
	}
	dispatch(fn)
}

// end simulates the host finishing the current track.
func (f *fakeEngine) end() {
	f.mu.Lock()
	f.paused = true
	f.position = f.duration
	l := f.listener
	f.mu.Unlock()
	f.schedule(l.OnEnded)
}

func (f *fakeEngine) Pause() {
	f.mu.Lock()
	f.reqs++
	f.paused = true
	f.mu.Unlock()
}

func (f *fakeEngine) Seek(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d = max(0, min(d, f.duration))
	f.position = d
	f.seeks = append(f.seeks, d)
}

func (f *fakeEngine) SetVolume(level float64) {
	f.mu.Lock()
	f.volume = max(0, min(1, level))
	f.mu.Unlock()
}

func (f *fakeEngine) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeEngine) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeEngine) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.track == nil {
		return 0
	}
	return f.duration
}

func (f *fakeEngine) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeEngine) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.track != nil
}

func (f *fakeEngine) SetListener(l audio.Listener, dispatch func(func())) {
	f.mu.Lock()
	f.listener = l
	f.dispatch = dispatch
	f.mu.Unlock()
}

func (f *fakeEngine) setPosition(d time.Duration) {
	f.mu.Lock()
	f.position = d
	f.mu.Unlock()
}

func (f *fakeEngine) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeEngine) lastLoad() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		return ""
	}
	return f.loads[len(f.loads)-1]
}

func tracks(names ...string) []*model.Track {
	out := make([]*model.Track, len(names))
	for i, n := range names {
		out[i] = model.NewTrack("/music/"+n, 1024, "audio/mpeg")
	}
	return out
}
