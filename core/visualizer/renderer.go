package visualizer

import (
	"image"
	"image/color"
	"math"
	"sync"

	"DevAmp/model"
)

// WaveColor is the waveform stroke colour, #61dafb.
var WaveColor = color.RGBA{R: 0x61, G: 0xda, B: 0xfb, A: 0xff}

const strokeWidth = 2

// Source supplies analysis data and the projection to draw.
type Source interface {
	// Ready gates every read; the byte reads are undefined before it.
	Ready() bool
	Mode() model.VisualizerMode
	FrequencyBytes() []byte
	WaveformBytes() []byte
}

// Renderer draws one frame of analysis data onto an RGBA surface.
type Renderer struct {
	mu     sync.Mutex
	img    *image.RGBA
	canvas *canvas
}

// NewRenderer creates a w by h surface.
func NewRenderer(w, h int) *Renderer {
	r := &Renderer{}
	r.Resize(w, h)
	return r
}

// Resize replaces the surface. Sizes below one pixel are raised to one.
func (r *Renderer) Resize(w, h int) {
	w, h = max(w, 1), max(h, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	r.canvas = newCanvas(r.img)
}

// Size reports the surface dimensions.
func (r *Renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// Frame pulls one sample set from src and draws it. It reports false and
// leaves the surface alone while src is not ready. The returned image is
// reused by the next frame.
func (r *Renderer) Frame(src Source) (*image.RGBA, bool) {
	if !src.Ready() {
		return nil, false
	}
	// frequency data is read every frame so smoothing keeps its cadence
	freq := src.FrequencyBytes()
	mode := src.Mode()

	r.mu.Lock()
	defer r.mu.Unlock()
	switch mode {
	case model.ModeWaveform:
		r.waveform(src.WaveformBytes())
	case model.ModeRadial:
		r.radial(freq)
	default:
		r.bars(freq)
	}
	return r.img, true
}

// Render draws data in mode. Bars and Radial take frequency bytes,
// Waveform takes waveform bytes.
func (r *Renderer) Render(mode model.VisualizerMode, data []byte) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch mode {
	case model.ModeWaveform:
		r.waveform(data)
	case model.ModeRadial:
		r.radial(data)
	default:
		r.bars(data)
	}
	return r.img
}

func (r *Renderer) size() (float64, float64) {
	b := r.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// bars packs N vertical bars left to right, centred vertically.
func (r *Renderer) bars(data []byte) {
	c := r.canvas
	c.clear()
	n := len(data)
	if n == 0 {
		return
	}
	w, h := r.size()
	barWidth := w / float64(n) * 2.5
	x := 0.0
	for i, v := range data {
		m := float64(v)
		if m > 0 {
			c.begin()
			c.rect(x, h/2-m/2, barWidth, m)
			c.fill(hsl(float64(2*i) + m/2))
		}
		x += barWidth + 1
		if x >= w {
			break
		}
	}
}

// waveform strokes one point per sample across the width, then a closing
// segment to the right edge at the vertical centre.
func (r *Renderer) waveform(data []byte) {
	c := r.canvas
	c.clear()
	n := len(data)
	if n == 0 {
		return
	}
	w, h := r.size()
	slice := w / float64(n)

	c.begin()
	px, py := 0.0, 0.0
	for i, v := range data {
		x := float64(i) * slice
		y := h/2 + (float64(v)/128-1)*(h/2)
		if i > 0 {
			c.segment(px, py, x, y, strokeWidth)
		}
		px, py = x, y
	}
	c.segment(px, py, w, h/2, strokeWidth)
	c.fill(WaveColor)
}

// radial draws one ray per bin from the centre, evenly spaced around the
// circle, each reaching min(w,h)/4 plus half its magnitude.
func (r *Renderer) radial(data []byte) {
	c := r.canvas
	c.clear()
	n := len(data)
	if n == 0 {
		return
	}
	w, h := r.size()
	cx, cy := w/2, h/2
	base := math.Min(w, h) / 4
	for i, v := range data {
		m := float64(v) / 2
		angle := float64(i) / float64(n) * 2 * math.Pi
		length := base + m
		c.begin()
		c.segment(cx, cy, cx+math.Cos(angle)*length, cy+math.Sin(angle)*length, strokeWidth)
		c.fill(hsl(float64(2*i) + m))
	}
}
