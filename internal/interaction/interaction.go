// Package interaction turns pointer input into geometry changes of placed objects.
package interaction

import (
	"math"

	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const (
	DefaultHandleSize = 10.0
	MinFontSize       = 8.0
	// SlideshowScaleRate converts a resize drag in pixels into a group scale factor.
	SlideshowScaleRate = 0.002
)

// GroupController moves and scales a linked group of objects (the slideshow) as a whole.
type GroupController interface {
	Move(relDx, relDy float64)
	Scale(factor float64)
}

// Engine owns the selection and applies moves and resizes in canvas pixels.
type Engine struct {
	width, height float64
	HandleSize    float64

	group     GroupController
	selection []scene.Object
	marquee   *Marquee
}

// New creates an engine for a width x height canvas. group may be nil when there is no slideshow.
func New(width, height float64, group GroupController) *Engine {
	return &Engine{width: width, height: height, HandleSize: DefaultHandleSize, group: group}
}

func (e *Engine) SetCanvasSize(width, height float64) {
	e.width, e.height = width, height
}

func (e *Engine) CanvasSize() (float64, float64) {
	return e.width, e.height
}

func (e *Engine) SetGroup(g GroupController) {
	e.group = g
}

// Bounds returns the pixel rectangle of o on the current canvas.
func (e *Engine) Bounds(o scene.Object) geometry.PixelRect {
	return o.Base().Rect.ToPixels(e.width, e.height)
}

// Move translates o by a pixel delta. Backgrounds ignore moves, slideshow members move
// their whole group, text may leave the canvas, everything else stays inside it.
func (e *Engine) Move(o scene.Object, dx, dy float64) {
	if scene.IsBackground(o) {
		return
	}
	rdx, rdy := geometry.Delta(dx, dy, e.width, e.height)
	b := o.Base()
	if b.Slideshow && e.group != nil {
		e.group.Move(rdx, rdy)
		return
	}
	b.Rect.X += rdx
	b.Rect.Y += rdy
	if _, isText := o.(*scene.Text); !isText {
		b.Rect = b.Rect.Clamp()
	}
}

// MoveSelection moves every selected object. The slideshow group moves once even if
// several of its members are selected.
func (e *Engine) MoveSelection(dx, dy float64) {
	groupMoved := false
	for _, o := range e.selection {
		if o.Base().Slideshow && e.group != nil {
			if groupMoved {
				continue
			}
			groupMoved = true
		}
		e.Move(o, dx, dy)
	}
}

// Resize applies a handle drag. It returns false when the step was rejected, in which
// case the object is unchanged.
func (e *Engine) Resize(o scene.Object, h geometry.Handle, dx, dy float64) bool {
	if h == geometry.HandleNone {
		return false
	}
	switch v := o.(type) {
	case *scene.Text:
		return e.resizeText(v, h, dx, dy)
	case *scene.Image, *scene.Video:
		return e.resizeMedia(o, h, dx, dy)
	}
	return false
}

func (e *Engine) resizeText(t *scene.Text, h geometry.Handle, dx, dy float64) bool {
	p := e.Bounds(t)
	if p.W <= 0 || p.H <= 0 {
		return false
	}
	next := resizeRect(p, h, dx, dy, p.W/p.H)
	if !e.bigEnough(next) {
		return false
	}
	font := t.FontSize * next.W / p.W
	if font < MinFontSize {
		return false
	}
	t.Rect = geometry.FromPixels(next, e.width, e.height)
	t.FontSize = font
	return true
}

func (e *Engine) resizeMedia(o scene.Object, h geometry.Handle, dx, dy float64) bool {
	b := o.Base()
	if b.Slideshow && e.group != nil {
		e.group.Scale(1 + growth(h, dx, dy)*SlideshowScaleRate)
		return true
	}
	aspect, _ := scene.MediaAspect(o)
	if aspect <= 0 {
		aspect = scene.DefaultAspect
	}
	next := resizeRect(e.Bounds(o), h, dx, dy, aspect)
	if !e.bigEnough(next) {
		return false
	}
	r := geometry.FromPixels(next, e.width, e.height)
	if !r.Inside() {
		return false
	}
	b.Rect = r
	return true
}

func (e *Engine) bigEnough(p geometry.PixelRect) bool {
	limit := 3 * e.HandleSize
	return p.W >= limit && p.H >= limit
}

// growth is the signed pointer travel along the handle's outward direction,
// taken from the dominant axis for corners.
func growth(h geometry.Handle, dx, dy float64) float64 {
	sx, sy := dx, dy
	if h.MovesLeft() {
		sx = -dx
	}
	if h.MovesTop() {
		sy = -dy
	}
	switch {
	case h.Horizontal():
		return sx
	case h.Vertical():
		return sy
	}
	if math.Abs(dx) >= math.Abs(dy) {
		return sx
	}
	return sy
}

// resizeRect returns p resized by a handle drag at a fixed aspect (w/h). The edge or corner
// opposite the handle stays put; edge handles keep the perpendicular axis centred.
func resizeRect(p geometry.PixelRect, h geometry.Handle, dx, dy, aspect float64) geometry.PixelRect {
	sx, sy := dx, dy
	if h.MovesLeft() {
		sx = -dx
	}
	if h.MovesTop() {
		sy = -dy
	}

	var w, ht float64
	switch {
	case h.Horizontal():
		w = p.W + sx
		ht = w / aspect
	case h.Vertical():
		ht = p.H + sy
		w = ht * aspect
	case math.Abs(dx) >= math.Abs(dy):
		w = p.W + sx
		ht = w / aspect
	default:
		ht = p.H + sy
		w = ht * aspect
	}

	dw, dh := w-p.W, ht-p.H
	out := geometry.PixelRect{X: p.X, Y: p.Y, W: w, H: ht}
	switch {
	case h.Horizontal():
		if h.MovesLeft() {
			out.X -= dw
		}
		out.Y -= dh / 2
	case h.Vertical():
		if h.MovesTop() {
			out.Y -= dh
		}
		out.X -= dw / 2
	default:
		if h.MovesLeft() {
			out.X -= dw
		}
		if h.MovesTop() {
			out.Y -= dh
		}
	}
	return out
}
