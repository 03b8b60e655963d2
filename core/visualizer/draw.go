package visualizer

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
)

// hsl converts a hue in degrees at full saturation and 50% lightness.
func hsl(hue float64) color.RGBA {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	r, g, b := colorful.Hsl(hue, 1, 0.5).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// canvas draws anti-aliased shapes onto an RGBA image.
type canvas struct {
	dst *image.RGBA
	ras *vector.Rasterizer
}

func newCanvas(dst *image.RGBA) *canvas {
	b := dst.Bounds()
	return &canvas{dst: dst, ras: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (c *canvas) clear() {
	for i := range c.dst.Pix {
		c.dst.Pix[i] = 0
	}
}

func (c *canvas) begin() {
	b := c.dst.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
}

func (c *canvas) fill(col color.Color) {
	c.ras.Draw(c.dst, c.dst.Bounds(), image.NewUniform(col), image.Point{})
}

// rect adds an axis-aligned rectangle to the current path.
func (c *canvas) rect(x, y, w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	c.ras.MoveTo(float32(x), float32(y))
	c.ras.LineTo(float32(x+w), float32(y))
	c.ras.LineTo(float32(x+w), float32(y+h))
	c.ras.LineTo(float32(x), float32(y+h))
	c.ras.ClosePath()
}

// segment adds a line of the given width as a quad to the current path.
// Every quad winds the same way so overlapping joints do not cancel.
func (c *canvas) segment(x0, y0, x1, y1, width float64) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	c.ras.MoveTo(float32(x0+nx), float32(y0+ny))
	c.ras.LineTo(float32(x1+nx), float32(y1+ny))
	c.ras.LineTo(float32(x1-nx), float32(y1-ny))
	c.ras.LineTo(float32(x0-nx), float32(y0-ny))
	c.ras.ClosePath()
}
