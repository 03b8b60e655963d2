package player

import (
	"math/rand/v2"
	"time"

	"DevAmp/core/audio"
	"DevAmp/logger"
	"DevAmp/model"
)

// Controller is the transport state machine over the store's index and the
// shuffle and repeat flags. Every transition is a no-op on an empty playlist.
// Like the store it belongs to a single goroutine.
type Controller struct {
	store  *Store
	engine audio.Engine

	shuffle bool
	repeat  bool

	// loadSeq identifies the load a Play request was issued for.
	loadSeq uint64
	// pending is set while the latest Play request, playTok, is unresolved.
	pending bool
	playTok uint64

	randIndex func(n int) int

	// BeforePlay runs ahead of every play request.
	BeforePlay func()
	// OnPlayed receives the outcome of a play request that is still current.
	OnPlayed func(err error)
}

// NewController creates a controller driving engine from store.
func NewController(store *Store, engine audio.Engine) *Controller {
	return &Controller{
		store:     store,
		engine:    engine,
		randIndex: rand.IntN,
	}
}

func (c *Controller) Shuffle() bool { return c.shuffle }
func (c *Controller) Repeat() bool  { return c.repeat }

func (c *Controller) ToggleShuffle() { c.shuffle = !c.shuffle }
func (c *Controller) ToggleRepeat()  { c.repeat = !c.repeat }

// Load makes i the current index and loads it into the engine.
// It reports false, changing nothing, when i is out of range.
func (c *Controller) Load(i int) bool {
	t, ok := c.store.At(i)
	if !ok {
		return false
	}
	c.store.SetIndex(i)
	c.loadSeq++
	c.pending = false
	if err := c.engine.Load(t); err != nil {
		logger.Warn("failed to load track",
			logger.String("name", t.Name),
			logger.Int("index", i),
			logger.ErrorField(err))
	}
	return true
}

func (c *Controller) play() {
	if c.BeforePlay != nil {
		c.BeforePlay()
	}
	seq := c.loadSeq
	c.playTok++
	tok := c.playTok
	c.pending = true
	c.engine.Play(func(err error) { c.played(seq, tok, err) })
}

func (c *Controller) played(seq, tok uint64, err error) {
	if tok == c.playTok {
		c.pending = false
	}
	if seq != c.loadSeq {
		logger.Debug("ignoring play result for a superseded load",
			logger.Uint64("seq", seq),
			logger.Uint64("current", c.loadSeq))
		return
	}
	if err != nil {
		logger.Warn("play request rejected", logger.ErrorField(err))
	}
	if c.OnPlayed != nil {
		c.OnPlayed(err)
	}
}

// Next advances to the following track, or a uniformly random one when
// shuffle is on, and plays it.
func (c *Controller) Next() {
	n := c.store.Len()
	if n == 0 {
		return
	}
	next := (c.store.Index() + 1) % n
	if c.shuffle {
		next = c.randIndex(n)
	}
	c.Load(next)
	c.play()
}

// Prev steps back one track, wrapping to the end. Shuffle does not apply.
func (c *Controller) Prev() {
	n := c.store.Len()
	if n == 0 {
		return
	}
	c.Load((c.store.Index() - 1 + n) % n)
	c.play()
}

// TrackEnded replays the current track when repeat is on, otherwise acts as Next.
func (c *Controller) TrackEnded() {
	if c.store.Len() == 0 {
		return
	}
	if c.repeat {
		c.engine.Seek(0)
		c.play()
		return
	}
	c.Next()
}

// Select loads and plays the track at i.
func (c *Controller) Select(i int) {
	if !c.Load(i) {
		return
	}
	c.play()
}

// TogglePlay resumes a paused or stopped track and pauses a playing one.
// A play request that has not resolved yet counts as playing.
func (c *Controller) TogglePlay() {
	if c.store.Len() == 0 {
		return
	}
	if c.engine.Paused() && !c.pending {
		c.play()
		return
	}
	c.pending = false
	c.engine.Pause()
}

// ToggleFavorite flips the current track's name in the favorites set.
func (c *Controller) ToggleFavorite() {
	t := c.store.Current()
	if t == nil {
		return
	}
	c.store.ToggleFavorite(t.Name)
}

// State derives the playback state from the engine.
func (c *Controller) State() model.PlaybackState {
	switch {
	case !c.engine.Loaded():
		return model.Stopped
	case !c.engine.Paused():
		return model.Playing
	case c.engine.Position() > 0:
		return model.Paused
	default:
		return model.Stopped
	}
}

// SeekBy moves the playhead by delta from its current position.
func (c *Controller) SeekBy(delta time.Duration) {
	if !c.engine.Loaded() {
		return
	}
	c.engine.Seek(c.engine.Position() + delta)
}
