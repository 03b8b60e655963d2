package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the host sound sink the engine plays through. Lock/Unlock guard
// every streamer the output pulls from.
type Output interface {
	// Init opens the sink. Calls after the first successful one are no-ops.
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// speakerOutput plays through the system audio device via beep/speaker.
type speakerOutput struct {
	mu    sync.Mutex
	ready bool
}

// NewSpeakerOutput returns the device-backed output.
func NewSpeakerOutput() Output {
	return &speakerOutput{}
}

func (o *speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ready {
		return nil
	}
	if err := speaker.Init(sr, bufferSize); err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	o.ready = true
	return nil
}

func (o *speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (o *speakerOutput) Lock()                { speaker.Lock() }
func (o *speakerOutput) Unlock()              { speaker.Unlock() }

func (o *speakerOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ready {
		speaker.Clear()
		speaker.Close()
		o.ready = false
	}
}

// headlessOutput drains its streamers at the sample rate without producing
// sound, so the clock keeps running on machines with no audio device.
// A zero period disables the pump; tests then drive it with pull.
type headlessOutput struct {
	mu        sync.Mutex
	period    time.Duration
	sr        beep.SampleRate
	buf       [][2]float64
	streamers []beep.Streamer
	ready     bool
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewHeadlessOutput returns an output that pulls audio every period.
func NewHeadlessOutput(period time.Duration) Output {
	return &headlessOutput{period: period}
}

func (o *headlessOutput) Init(sr beep.SampleRate, bufferSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ready {
		return nil
	}
	if bufferSize <= 0 {
		bufferSize = sr.N(10 * time.Millisecond)
	}
	o.sr = sr
	o.buf = make([][2]float64, bufferSize)
	o.ready = true
	o.stop = make(chan struct{})

	if o.period > 0 {
		o.wg.Add(1)
		go o.pump()
	}
	return nil
}

func (o *headlessOutput) pump() {
	defer o.wg.Done()
	ticker := time.NewTicker(o.period)
	defer ticker.Stop()
	n := o.sr.N(o.period)
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.pull(n)
		}
	}
}

// pull streams n samples from every registered streamer.
func (o *headlessOutput) pull(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for n > 0 {
		chunk := n
		if chunk > len(o.buf) {
			chunk = len(o.buf)
		}
		for _, s := range o.streamers {
			s.Stream(o.buf[:chunk])
		}
		n -= chunk
	}
}

func (o *headlessOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.streamers = append(o.streamers, s)
	o.mu.Unlock()
}

func (o *headlessOutput) Lock()   { o.mu.Lock() }
func (o *headlessOutput) Unlock() { o.mu.Unlock() }

func (o *headlessOutput) Close() {
	o.mu.Lock()
	if !o.ready {
		o.mu.Unlock()
		return
	}
	o.ready = false
	close(o.stop)
	o.streamers = nil
	o.mu.Unlock()
	o.wg.Wait()
}
