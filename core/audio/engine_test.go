package audio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"DevAmp/model"
)

const engineRate = beep.SampleRate(8000)

// writeWAV writes a stereo WAV of the given length holding a constant level.
func writeWAV(t *testing.T, name string, length time.Duration) *model.Track {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	left := engineRate.N(length)
	s := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left <= 0 {
			return 0, false
		}
		n := min(len(samples), left)
		for i := range samples[:n] {
			samples[i] = [2]float64{0.25, 0.25}
		}
		left -= n
		return n, true
	})
	format := beep.Format{SampleRate: engineRate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, s, format); err != nil {
		t.Fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	return model.NewTrack(path, info.Size(), "audio/wav")
}

type recorder struct {
	mu        sync.Mutex
	updates   []time.Duration
	durations []time.Duration
	ended     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ended: make(chan struct{}, 4)}
}

func (r *recorder) OnTimeUpdate(pos time.Duration) {
	r.mu.Lock()
	r.updates = append(r.updates, pos)
	r.mu.Unlock()
}

func (r *recorder) OnDurationKnown(d time.Duration) {
	r.mu.Lock()
	r.durations = append(r.durations, d)
	r.mu.Unlock()
}

func (r *recorder) OnEnded() { r.ended <- struct{}{} }

func newTestEngine(t *testing.T) (*BeepEngine, *headlessOutput, *recorder) {
	t.Helper()
	out := NewHeadlessOutput(0).(*headlessOutput)
	e := NewBeepEngine(out, Options{SampleRate: engineRate, TimeUpdate: time.Hour})
	rec := newRecorder()
	e.SetListener(rec, nil)
	t.Cleanup(e.Close)
	return e, out, rec
}

func play(t *testing.T, e *BeepEngine) error {
	t.Helper()
	done := make(chan error, 1)
	e.Play(func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not complete")
		return nil
	}
}

func TestEngineLoad(t *testing.T) {
	e, _, rec := newTestEngine(t)
	tr := writeWAV(t, "a.wav", time.Second)

	if err := e.Load(tr); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !e.Loaded() || !e.Paused() {
		t.Errorf("after Load: Loaded=%v Paused=%v, want true/true", e.Loaded(), e.Paused())
	}
	if e.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", e.Duration())
	}
	if e.Position() != 0 {
		t.Errorf("Position() = %v, want 0", e.Position())
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.durations) != 1 || rec.durations[0] != time.Second {
		t.Errorf("OnDurationKnown calls = %v, want [1s]", rec.durations)
	}
}

func TestEnginePlayAdvancesPosition(t *testing.T) {
	e, out, _ := newTestEngine(t)
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := play(t, e); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if e.Paused() {
		t.Fatal("engine still paused after Play")
	}

	out.pull(engineRate.N(500 * time.Millisecond))
	if got := e.Position(); got != 500*time.Millisecond {
		t.Errorf("Position() = %v, want 500ms", got)
	}

	e.Pause()
	out.pull(engineRate.N(200 * time.Millisecond))
	if got := e.Position(); got != 500*time.Millisecond {
		t.Errorf("Position() moved while paused: %v", got)
	}
}

func TestEngineReloadResetsPosition(t *testing.T) {
	e, out, _ := newTestEngine(t)
	tr := writeWAV(t, "a.wav", time.Second)

	for i := 0; i < 2; i++ {
		if err := e.Load(tr); err != nil {
			t.Fatal(err)
		}
		if got := e.Position(); got != 0 {
			t.Fatalf("load %d: Position() = %v, want 0", i, got)
		}
		if err := play(t, e); err != nil {
			t.Fatal(err)
		}
		out.pull(engineRate.N(300 * time.Millisecond))
		if e.Position() == 0 {
			t.Fatalf("load %d: position did not advance", i)
		}
	}
}

func TestEngineSeekClamps(t *testing.T) {
	e, _, rec := newTestEngine(t)
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}

	e.Seek(250 * time.Millisecond)
	if got := e.Position(); got != 250*time.Millisecond {
		t.Errorf("Seek(250ms): Position() = %v", got)
	}
	e.Seek(5 * time.Second)
	if got := e.Position(); got != time.Second {
		t.Errorf("Seek past end: Position() = %v, want 1s", got)
	}
	e.Seek(-time.Second)
	if got := e.Position(); got != 0 {
		t.Errorf("Seek before start: Position() = %v, want 0", got)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.updates) != 3 {
		t.Errorf("seeks should report the new position, got %v", rec.updates)
	}
}

func TestEngineEndedOncePerCompletion(t *testing.T) {
	e, out, rec := newTestEngine(t)
	if err := e.Load(writeWAV(t, "short.wav", 100*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := play(t, e); err != nil {
		t.Fatal(err)
	}
	out.pull(engineRate.N(time.Second))

	select {
	case <-rec.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("OnEnded not delivered")
	}
	if !e.Paused() {
		t.Error("engine should pause itself when the track ends")
	}

	out.pull(engineRate.N(time.Second))
	select {
	case <-rec.ended:
		t.Fatal("OnEnded delivered twice for one completion")
	case <-time.After(100 * time.Millisecond):
	}

	// Playing again after the end restarts from zero.
	if err := play(t, e); err != nil {
		t.Fatal(err)
	}
	if got := e.Position(); got != 0 {
		t.Errorf("Play after end: Position() = %v, want 0", got)
	}
}

func TestEnginePlayWithoutSource(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := play(t, e); !errors.Is(err, ErrNoSource) {
		t.Errorf("Play with nothing loaded = %v, want ErrNoSource", err)
	}
	if !e.Paused() {
		t.Error("failed Play must leave the engine paused")
	}
}

// gatedOutput holds Init until the gate opens, keeping a Play request pending.
type gatedOutput struct {
	headlessOutput
	gate chan struct{}
}

func (o *gatedOutput) Init(sr beep.SampleRate, bufferSize int) error {
	<-o.gate
	return o.headlessOutput.Init(sr, bufferSize)
}

func TestEnginePauseWinsOverPendingPlay(t *testing.T) {
	out := &gatedOutput{gate: make(chan struct{})}
	e := NewBeepEngine(out, Options{SampleRate: engineRate, TimeUpdate: time.Hour})
	defer e.Close()
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	e.Play(func(err error) { done <- err })
	e.Pause()
	close(out.gate)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Play err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not complete")
	}
	if !e.Paused() {
		t.Error("Pause issued while Play was pending was undone")
	}

	// a later Play is the newest request and takes effect
	if err := play(t, e); err != nil {
		t.Fatal(err)
	}
	if e.Paused() {
		t.Error("Play after Pause should resume")
	}
}

func TestEngineLatestPlayWins(t *testing.T) {
	out := &gatedOutput{gate: make(chan struct{})}
	e := NewBeepEngine(out, Options{SampleRate: engineRate, TimeUpdate: time.Hour})
	defer e.Close()
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 2)
	e.Play(func(err error) { done <- err })
	e.Pause()
	e.Play(func(err error) { done <- err })
	close(out.gate)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Play did not complete")
		}
	}
	if e.Paused() {
		t.Error("the newest request was Play, engine should be playing")
	}
}

type failingOutput struct{ headlessOutput }

func (o *failingOutput) Init(beep.SampleRate, int) error {
	return errors.New("no device")
}

func TestEnginePlayOutputFailure(t *testing.T) {
	e := NewBeepEngine(&failingOutput{}, Options{SampleRate: engineRate, TimeUpdate: time.Hour})
	defer e.Close()
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := play(t, e); err == nil {
		t.Fatal("Play should report the output error")
	}
	if !e.Paused() {
		t.Error("engine should stay paused when the device cannot open")
	}
}

func TestEngineVolumeClamp(t *testing.T) {
	e, _, _ := newTestEngine(t)
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{2, 1},
		{-1, 0},
		{0, 0},
		{1, 1},
	}
	for _, tt := range tests {
		e.SetVolume(tt.in)
		if got := e.Volume(); got != tt.want {
			t.Errorf("SetVolume(%v): Volume() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEngineUnsupportedFile(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}
	err := e.Load(model.NewTrack(filepath.Join(t.TempDir(), "notes.txt"), 0, "text/plain"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(.txt) = %v, want ErrUnsupportedFormat", err)
	}
	if e.Loaded() {
		t.Error("failed load should release the previous source")
	}
}

func TestEngineRoute(t *testing.T) {
	e, out, _ := newTestEngine(t)
	g := Attach(e)
	if err := e.Load(writeWAV(t, "a.wav", time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := play(t, e); err != nil {
		t.Fatal(err)
	}
	out.pull(FFTSize)

	wave := g.WaveformBytes()
	// 0.25 through a flat EQ lands near floor(128*1.25), less 16-bit rounding
	if got := wave[BinCount-1]; got < 158 || got > 160 {
		t.Errorf("tap sample = %d, want about 160", got)
	}
}
