package visualizer

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"DevAmp/model"
)

type fakeSource struct {
	ready     atomic.Bool
	mode      model.VisualizerMode
	freqReads atomic.Int32
	waveReads atomic.Int32
}

func (f *fakeSource) Ready() bool                { return f.ready.Load() }
func (f *fakeSource) Mode() model.VisualizerMode { return f.mode }

func (f *fakeSource) FrequencyBytes() []byte {
	f.freqReads.Add(1)
	return make([]byte, 128)
}

func (f *fakeSource) WaveformBytes() []byte {
	f.waveReads.Add(1)
	return filled(128, 128)
}

func TestLoopSkipsUntilReady(t *testing.T) {
	src := &fakeSource{}
	sunk := 0
	l := NewLoop(src, NewRenderer(64, 32), 60, func(*image.RGBA) { sunk++ })

	if l.Tick() {
		t.Fatal("Tick() = true before the source is ready")
	}
	if src.freqReads.Load() != 0 {
		t.Error("the tap must not be read before it is ready")
	}

	src.ready.Store(true)
	if !l.Tick() || sunk != 1 || l.Frames() != 1 {
		t.Errorf("after ready: sunk=%d frames=%d, want 1/1", sunk, l.Frames())
	}
}

func TestLoopModeSelectsData(t *testing.T) {
	src := &fakeSource{mode: model.ModeWaveform}
	src.ready.Store(true)
	l := NewLoop(src, NewRenderer(64, 32), 60, nil)
	l.Tick()
	if src.waveReads.Load() != 1 {
		t.Error("waveform mode should read waveform samples")
	}

	src.mode = model.ModeRadial
	l.Tick()
	if src.waveReads.Load() != 1 {
		t.Error("radial mode should not read waveform samples")
	}
	if src.freqReads.Load() != 2 {
		t.Errorf("frequency reads = %d, want one per frame", src.freqReads.Load())
	}
}

func TestLoopStop(t *testing.T) {
	src := &fakeSource{}
	src.ready.Store(true)
	l := NewLoop(src, NewRenderer(64, 32), 200, nil)

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	l.Stop()
	l.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if l.Frames() == 0 {
		t.Error("loop drew no frames while running")
	}
}

func TestLoopContextCancel(t *testing.T) {
	l := NewLoop(&fakeSource{}, NewRenderer(64, 32), 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
