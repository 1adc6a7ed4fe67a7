// Package geometry holds the relative coordinate model used by every placed object.
//
// All positions and sizes are fractions (0..1) of the live canvas dimensions. Pixels only
// exist at draw and hit-test time, so a change of the output frame rescales the whole
// scene without touching any object.
package geometry

import "math"

// Rect is a position/size pair expressed as fractions of the canvas.
type Rect struct {
	X float64 `yaml:"rel_x"`
	Y float64 `yaml:"rel_y"`
	W float64 `yaml:"rel_width"`
	H float64 `yaml:"rel_height"`
}

// PixelRect is a rectangle in canvas pixels.
type PixelRect struct {
	X, Y, W, H float64
}

// Point is a pixel position on the canvas.
type Point struct {
	X, Y float64
}

// ToPixels converts relative geometry into pixels for a canvas of width x height.
func (r Rect) ToPixels(width, height float64) PixelRect {
	return PixelRect{
		X: r.X * width,
		Y: r.Y * height,
		W: r.W * width,
		H: r.H * height,
	}
}

// FromPixels converts a pixel rectangle back into relative geometry.
// A zero canvas dimension yields zero on that axis.
func FromPixels(p PixelRect, width, height float64) Rect {
	var r Rect
	if width > 0 {
		r.X = p.X / width
		r.W = p.W / width
	}
	if height > 0 {
		r.Y = p.Y / height
		r.H = p.H / height
	}
	return r
}

// Delta converts a pixel delta into a relative delta.
func Delta(dx, dy, width, height float64) (float64, float64) {
	var rx, ry float64
	if width > 0 {
		rx = dx / width
	}
	if height > 0 {
		ry = dy / height
	}
	return rx, ry
}

// Clamp keeps the rectangle inside the unit square: X in [0, 1-W], Y in [0, 1-H].
// Rectangles wider or taller than the canvas are pinned to 0 on that axis.
func (r Rect) Clamp() Rect {
	r.X = clampRange(r.X, 0, math.Max(0, 1-r.W))
	r.Y = clampRange(r.Y, 0, math.Max(0, 1-r.H))
	return r
}

// Inside reports whether the rectangle lies fully inside the unit square (with a small epsilon).
func (r Rect) Inside() bool {
	const eps = 1e-9
	return r.X >= -eps && r.Y >= -eps && r.X+r.W <= 1+eps && r.Y+r.H <= 1+eps
}

// Contains reports whether the pixel point lies inside the rectangle.
func (p PixelRect) Contains(pt Point) bool {
	return pt.X >= p.X && pt.X <= p.X+p.W && pt.Y >= p.Y && pt.Y <= p.Y+p.H
}

// Intersects reports whether two pixel rectangles overlap.
func (p PixelRect) Intersects(o PixelRect) bool {
	return p.X < o.X+o.W && o.X < p.X+p.W && p.Y < o.Y+o.H && o.Y < p.Y+p.H
}

// Center returns the center point.
func (p PixelRect) Center() Point {
	return Point{X: p.X + p.W/2, Y: p.Y + p.H/2}
}

// Normalize returns an equivalent rectangle with non-negative width and height.
// Marquee rectangles are built from a drag start and current pointer and may be inverted.
func (p PixelRect) Normalize() PixelRect {
	if p.W < 0 {
		p.X += p.W
		p.W = -p.W
	}
	if p.H < 0 {
		p.Y += p.H
		p.H = -p.H
	}
	return p
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
