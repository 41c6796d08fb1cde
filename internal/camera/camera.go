// Package camera maps between world coordinates and screen pixels.
//
// World y grows upward, screen y grows downward; the screen center shows the
// world point (OffsetX, OffsetY). Scale is world units per pixel and is
// always positive.
package camera

import "math"

// Rect is an axis-aligned world-space region.
type Rect struct {
	XMin, XMax float64
	YMin, YMax float64
}

func (r Rect) Width() float64  { return r.XMax - r.XMin }
func (r Rect) Height() float64 { return r.YMax - r.YMin }

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.XMin && x <= r.XMax && y >= r.YMin && y <= r.YMax
}

type Camera struct {
	OffsetX, OffsetY float64
	Scale            float64
	Width, Height    int

	MinScale, MaxScale float64

	onChange func()
}

func New(scale float64, width, height int) *Camera {
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	return &Camera{
		Scale:    scale,
		Width:    width,
		Height:   height,
		MinScale: math.SmallestNonzeroFloat64,
		MaxScale: math.MaxFloat64,
	}
}

// OnChange registers fn to run after every effective mutation.
func (c *Camera) OnChange(fn func()) { c.onChange = fn }

func (c *Camera) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Camera) WorldToScreen(x, y float64) (float64, float64) {
	sx := float64(c.Width)/2 + (x-c.OffsetX)/c.Scale
	sy := float64(c.Height)/2 - (y-c.OffsetY)/c.Scale
	return sx, sy
}

func (c *Camera) ScreenToWorld(sx, sy float64) (float64, float64) {
	x := (sx-float64(c.Width)/2)*c.Scale + c.OffsetX
	y := (float64(c.Height)/2-sy)*c.Scale + c.OffsetY
	return x, y
}

func (c *Camera) VisibleRect() Rect {
	hw := float64(c.Width) / 2 * c.Scale
	hh := float64(c.Height) / 2 * c.Scale
	return Rect{
		XMin: c.OffsetX - hw,
		XMax: c.OffsetX + hw,
		YMin: c.OffsetY - hh,
		YMax: c.OffsetY + hh,
	}
}

// Pan moves the center by (dx, dy) world units.
func (c *Camera) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	if !finite(dx) || !finite(dy) {
		return
	}
	c.OffsetX += dx
	c.OffsetY += dy
	c.changed()
}

// PanPixels moves the center by a screen distance, so a key press covers
// the same on-screen distance at every zoom level.
func (c *Camera) PanPixels(px, py float64) {
	c.Pan(px*c.Scale, py*c.Scale)
}

// Zoom multiplies the scale by factor. Factors that are not finite and
// positive are rejected; the result is clamped to [MinScale, MaxScale].
// Reports whether the scale changed.
func (c *Camera) Zoom(factor float64) bool {
	if !(factor > 0) || !finite(factor) {
		return false
	}
	next := c.Scale * factor
	if next < c.MinScale {
		next = c.MinScale
	}
	if next > c.MaxScale {
		next = c.MaxScale
	}
	if !(next > 0) || next == c.Scale {
		return false
	}
	c.Scale = next
	c.changed()
	return true
}

func (c *Camera) CenterOn(x, y float64) {
	if x == c.OffsetX && y == c.OffsetY {
		return
	}
	if !finite(x) || !finite(y) {
		return
	}
	c.OffsetX, c.OffsetY = x, y
	c.changed()
}

func (c *Camera) Resize(width, height int) {
	if width <= 0 || height <= 0 || (width == c.Width && height == c.Height) {
		return
	}
	c.Width, c.Height = width, height
	c.changed()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
