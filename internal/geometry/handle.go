package geometry

import "fmt"

// Handle identifies a resize handle (or the body of an object for plain dragging).
type Handle string

const (
	HandleNone        Handle = ""
	HandleTopLeft     Handle = "resize-tl"
	HandleTopRight    Handle = "resize-tr"
	HandleBottomLeft  Handle = "resize-bl"
	HandleBottomRight Handle = "resize-br"
	HandleTop         Handle = "resize-t"
	HandleBottom      Handle = "resize-b"
	HandleLeft        Handle = "resize-l"
	HandleRight       Handle = "resize-r"
)

// Handles lists the eight resize handles in drawing order.
var Handles = []Handle{
	HandleTopLeft, HandleTop, HandleTopRight,
	HandleRight, HandleBottomRight, HandleBottom,
	HandleBottomLeft, HandleLeft,
}

// ParseHandle validates a handle name.
func ParseHandle(s string) (Handle, error) {
	for _, h := range Handles {
		if string(h) == s {
			return h, nil
		}
	}
	return HandleNone, fmt.Errorf("unknown resize handle: %q", s)
}

// IsCorner reports whether the handle moves two edges at once.
func (h Handle) IsCorner() bool {
	switch h {
	case HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight:
		return true
	}
	return false
}

// MovesLeft reports whether the left edge follows the pointer.
func (h Handle) MovesLeft() bool {
	return h == HandleTopLeft || h == HandleBottomLeft || h == HandleLeft
}

// MovesTop reports whether the top edge follows the pointer.
func (h Handle) MovesTop() bool {
	return h == HandleTopLeft || h == HandleTopRight || h == HandleTop
}

// Horizontal reports whether the handle is a left/right edge handle.
func (h Handle) Horizontal() bool {
	return h == HandleLeft || h == HandleRight
}

// Vertical reports whether the handle is a top/bottom edge handle.
func (h Handle) Vertical() bool {
	return h == HandleTop || h == HandleBottom
}

// Position returns the pixel center of the handle on the given rectangle.
func (h Handle) Position(r PixelRect) Point {
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	right, bottom := r.X+r.W, r.Y+r.H
	switch h {
	case HandleTopLeft:
		return Point{r.X, r.Y}
	case HandleTopRight:
		return Point{right, r.Y}
	case HandleBottomLeft:
		return Point{r.X, bottom}
	case HandleBottomRight:
		return Point{right, bottom}
	case HandleTop:
		return Point{cx, r.Y}
	case HandleBottom:
		return Point{cx, bottom}
	case HandleLeft:
		return Point{r.X, cy}
	case HandleRight:
		return Point{right, cy}
	}
	return Point{cx, cy}
}

// HitHandle returns the handle whose square (side = size) contains pt, or HandleNone.
func HitHandle(r PixelRect, pt Point, size float64) Handle {
	half := size / 2
	for _, h := range Handles {
		c := h.Position(r)
		if pt.X >= c.X-half && pt.X <= c.X+half && pt.Y >= c.Y-half && pt.Y <= c.Y+half {
			return h
		}
	}
	return HandleNone
}
