package visualizer

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"DevAmp/logger"
)

// Loop is the per-frame render task. It skips frames until the source is
// ready and runs until its context ends or Stop is called.
type Loop struct {
	src      Source
	renderer *Renderer
	interval time.Duration
	sink     func(*image.RGBA)

	frames  atomic.Uint64
	skipped atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoop renders src at fps frames per second and hands each frame to sink.
// sink runs on the loop goroutine and must not keep the image.
func NewLoop(src Source, renderer *Renderer, fps int, sink func(*image.RGBA)) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		src:      src,
		renderer: renderer,
		interval: time.Second / time.Duration(fps),
		sink:     sink,
		stop:     make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	logger.Debug("visualizer loop started", logger.Duration("interval", l.interval))
	defer func() {
		logger.Debug("visualizer loop stopped",
			logger.Uint64("frames", l.frames.Load()),
			logger.Uint64("skipped", l.skipped.Load()))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick renders a single frame now.
func (l *Loop) Tick() bool {
	img, ok := l.renderer.Frame(l.src)
	if !ok {
		l.skipped.Add(1)
		return false
	}
	l.frames.Add(1)
	if l.sink != nil {
		l.sink(img)
	}
	return true
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Frames is the number of frames drawn so far.
func (l *Loop) Frames() uint64 { return l.frames.Load() }
