// Package canvas is the drawing surface shared by the scene renderer, the visualizers and the
// recording worker. It rasterizes paths with golang.org/x/image/vector, draws text with the Go
// fonts and scales bitmaps with golang.org/x/image/draw.
package canvas

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/ivlev/audiocanvas/internal/geometry"
)

// ErrDetached is returned when a canvas whose surface was transferred is used again.
var ErrDetached = errors.New("canvas: surface was transferred to another owner")

// Canvas draws onto an *image.RGBA. It is not safe for concurrent use; exactly one goroutine owns it.
type Canvas struct {
	img    *image.RGBA
	raster *vector.Rasterizer
	fonts  *faceCache
}

// New allocates a transparent canvas of the given size.
func New(width, height int) *Canvas {
	return Wrap(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// Wrap draws onto an existing image (its origin must be 0,0).
func Wrap(img *image.RGBA) *Canvas {
	b := img.Bounds()
	return &Canvas{
		img:    img,
		raster: vector.NewRasterizer(b.Dx(), b.Dy()),
		fonts:  newFaceCache(),
	}
}

// Transfer hands the pixels to a new Canvas. The receiver is detached afterwards:
// drawing on it is a no-op and Image returns nil.
func (c *Canvas) Transfer() (*Canvas, error) {
	if c.img == nil {
		return nil, ErrDetached
	}
	next := &Canvas{img: c.img, raster: c.raster, fonts: c.fonts}
	c.img, c.raster = nil, nil
	return next, nil
}

// Detached reports whether the surface has been transferred away.
func (c *Canvas) Detached() bool { return c.img == nil }

// Image returns the backing image (nil when detached).
func (c *Canvas) Image() *image.RGBA { return c.img }

// Width returns the surface width in pixels.
func (c *Canvas) Width() float64 {
	if c.img == nil {
		return 0
	}
	return float64(c.img.Rect.Dx())
}

// Height returns the surface height in pixels.
func (c *Canvas) Height() float64 {
	if c.img == nil {
		return 0
	}
	return float64(c.img.Rect.Dy())
}

// Resize reallocates the surface. Content is discarded.
func (c *Canvas) Resize(width, height int) error {
	if c.img == nil {
		return ErrDetached
	}
	if width <= 0 || height <= 0 {
		return errors.New("canvas: invalid dimensions")
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	c.raster = vector.NewRasterizer(width, height)
	return nil
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() {
	if c.img == nil {
		return
	}
	for i := range c.img.Pix {
		c.img.Pix[i] = 0
	}
}

// Fill composites col over the whole surface.
func (c *Canvas) Fill(col color.Color) {
	if c.img == nil {
		return
	}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Over)
}

// FillRect composites col over the rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, col color.Color) {
	c.fill(col, func(p *path) {
		p.polygon([]geometry.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}, true)
	})
}

// StrokeRect outlines the rectangle.
func (c *Canvas) StrokeRect(x, y, w, h, width float64, col color.Color) {
	pts := []geometry.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
	c.Polyline(pts, width, true, col)
}

// DashedRect outlines the rectangle with dashes of length dash.
func (c *Canvas) DashedRect(x, y, w, h, width, dash float64, col color.Color) {
	if dash <= 0 {
		c.StrokeRect(x, y, w, h, width, col)
		return
	}
	corners := []geometry.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}, {X: x, Y: y}}
	c.fill(col, func(p *path) {
		for i := 0; i < 4; i++ {
			a, b := corners[i], corners[i+1]
			length := math.Hypot(b.X-a.X, b.Y-a.Y)
			for s := 0.0; s < length; s += 2 * dash {
				e := math.Min(s+dash, length)
				p.segment(lerpPoint(a, b, s/length), lerpPoint(a, b, e/length), width)
			}
		}
	})
}

// Line strokes a single segment.
func (c *Canvas) Line(x0, y0, x1, y1, width float64, col color.Color) {
	c.Polyline([]geometry.Point{{X: x0, Y: y0}, {X: x1, Y: y1}}, width, false, col)
}

// Polyline strokes connected segments with round joins.
func (c *Canvas) Polyline(pts []geometry.Point, width float64, closed bool, col color.Color) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	c.fill(col, func(p *path) {
		for i := 0; i+1 < len(pts); i++ {
			p.segment(pts[i], pts[i+1], width)
		}
		if closed {
			p.segment(pts[len(pts)-1], pts[0], width)
		}
		if width > 2 {
			for i, pt := range pts {
				if !closed && (i == 0 || i == len(pts)-1) {
					continue
				}
				p.circle(pt.X, pt.Y, width/2, true)
			}
		}
	})
}

// FillCircle fills a disc.
func (c *Canvas) FillCircle(cx, cy, r float64, col color.Color) {
	if r <= 0 {
		return
	}
	c.fill(col, func(p *path) { p.circle(cx, cy, r, true) })
}

// StrokeCircle outlines a circle.
func (c *Canvas) StrokeCircle(cx, cy, r, width float64, col color.Color) {
	if r <= 0 || width <= 0 {
		return
	}
	c.fill(col, func(p *path) {
		p.circle(cx, cy, r+width/2, true)
		if inner := r - width/2; inner > 0 {
			p.circle(cx, cy, inner, false)
		}
	})
}

func (c *Canvas) fill(col color.Color, build func(p *path)) {
	if c.img == nil {
		return
	}
	b := c.img.Bounds()
	z := c.raster
	z.Reset(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	p := &path{z: z}
	build(p)
	if p.empty {
		return
	}
	z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

func lerpPoint(a, b geometry.Point, t float64) geometry.Point {
	return geometry.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}
