package interaction

import (
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

// MarqueeKind selects which objects a rubber-band selection picks up.
type MarqueeKind int

const (
	MarqueeText MarqueeKind = iota
	MarqueeMedia
)

// Marquee is an in-progress rubber-band selection in pixels.
type Marquee struct {
	Kind       MarqueeKind
	Start, End geometry.Point
}

// Rect returns the normalized marquee rectangle.
func (m Marquee) Rect() geometry.PixelRect {
	return geometry.PixelRect{X: m.Start.X, Y: m.Start.Y, W: m.End.X - m.Start.X, H: m.End.Y - m.Start.Y}.Normalize()
}

func (m Marquee) accepts(o scene.Object) bool {
	switch o.(type) {
	case *scene.Text:
		return m.Kind == MarqueeText
	case *scene.Image, *scene.Video:
		return m.Kind == MarqueeMedia
	}
	return false
}

// Selected returns the selection, primary object first.
func (e *Engine) Selected() []scene.Object {
	out := make([]scene.Object, len(e.selection))
	copy(out, e.selection)
	return out
}

// Primary returns the object that receives resize handles, or nil.
func (e *Engine) Primary() scene.Object {
	if len(e.selection) == 0 {
		return nil
	}
	return e.selection[0]
}

func (e *Engine) IsSelected(o scene.Object) bool {
	for _, s := range e.selection {
		if s.Base().ID == o.Base().ID {
			return true
		}
	}
	return false
}

// Select replaces the selection with o (nil clears it).
func (e *Engine) Select(o scene.Object) {
	e.selection = e.selection[:0]
	if o != nil {
		e.selection = append(e.selection, o)
	}
}

// Toggle adds o to or removes it from the selection.
func (e *Engine) Toggle(o scene.Object) {
	for i, s := range e.selection {
		if s.Base().ID == o.Base().ID {
			e.selection = append(e.selection[:i], e.selection[i+1:]...)
			return
		}
	}
	e.selection = append(e.selection, o)
}

func (e *Engine) ClearSelection() {
	e.selection = e.selection[:0]
}

// SelectAll selects every non-background, visible object.
func (e *Engine) SelectAll(s *scene.Scene) {
	e.selection = e.selection[:0]
	for _, o := range s.Objects() {
		if !scene.IsBackground(o) && !o.Base().Hidden {
			e.selection = append(e.selection, o)
		}
	}
}

// Prune drops selected objects that are no longer in s.
func (e *Engine) Prune(s *scene.Scene) {
	kept := e.selection[:0]
	for _, o := range e.selection {
		if s.IndexOf(o.Base().ID) >= 0 {
			kept = append(kept, o)
		}
	}
	e.selection = kept
}

// HitTest returns the object under pt and the handle hit, if any. Handles of the primary
// selection win over object bodies; bodies are tested from the top layer down.
func (e *Engine) HitTest(s *scene.Scene, pt geometry.Point) (scene.Object, geometry.Handle) {
	if p := e.Primary(); p != nil && s.IndexOf(p.Base().ID) >= 0 {
		if h := geometry.HitHandle(e.Bounds(p), pt, e.HandleSize); h != geometry.HandleNone {
			return p, h
		}
	}
	for i := s.Len() - 1; i >= 0; i-- {
		o := s.At(i)
		if scene.IsBackground(o) || o.Base().Hidden {
			continue
		}
		if e.Bounds(o).Contains(pt) {
			return o, geometry.HandleNone
		}
	}
	return nil, geometry.HandleNone
}

// BeginMarquee starts a rubber-band selection at pt.
func (e *Engine) BeginMarquee(kind MarqueeKind, pt geometry.Point) {
	e.marquee = &Marquee{Kind: kind, Start: pt, End: pt}
}

func (e *Engine) UpdateMarquee(pt geometry.Point) {
	if e.marquee != nil {
		e.marquee.End = pt
	}
}

// ActiveMarquee returns the in-progress marquee.
func (e *Engine) ActiveMarquee() (Marquee, bool) {
	if e.marquee == nil {
		return Marquee{}, false
	}
	return *e.marquee, true
}

// EndMarquee selects every object of the marquee kind intersecting it and returns the selection.
func (e *Engine) EndMarquee(s *scene.Scene) []scene.Object {
	if e.marquee == nil {
		return nil
	}
	m := *e.marquee
	e.marquee = nil

	area := m.Rect()
	e.selection = e.selection[:0]
	for _, o := range s.Objects() {
		if o.Base().Hidden || !m.accepts(o) {
			continue
		}
		if area.Intersects(e.Bounds(o)) {
			e.selection = append(e.selection, o)
		}
	}
	return e.Selected()
}

// Origin is the geometry of one object when a gesture started.
type Origin struct {
	Object   scene.Object
	Rect     geometry.Rect
	FontSize float64
}

// Gesture is one pointer drag from press to release.
type Gesture struct {
	Handle  geometry.Handle
	Target  scene.Object
	Origins []Origin

	last geometry.Point
}

// Begin hit-tests pt and starts a gesture. Pressing an unselected object selects it;
// pressing empty canvas clears the selection and returns nil.
func (e *Engine) Begin(s *scene.Scene, pt geometry.Point) *Gesture {
	o, h := e.HitTest(s, pt)
	if o == nil {
		e.ClearSelection()
		return nil
	}
	if !e.IsSelected(o) {
		e.Select(o)
	}

	g := &Gesture{Handle: h, Target: o, last: pt}
	affected := e.selection
	if h != geometry.HandleNone {
		affected = []scene.Object{o}
	}
	for _, a := range affected {
		org := Origin{Object: a, Rect: a.Base().Rect}
		if t, ok := a.(*scene.Text); ok {
			org.FontSize = t.FontSize
		}
		g.Origins = append(g.Origins, org)
	}
	return g
}

// Drag applies the pointer travel since the previous call.
func (e *Engine) Drag(g *Gesture, pt geometry.Point) {
	dx, dy := pt.X-g.last.X, pt.Y-g.last.Y
	g.last = pt
	if dx == 0 && dy == 0 {
		return
	}
	if g.Handle == geometry.HandleNone {
		e.MoveSelection(dx, dy)
		return
	}
	e.Resize(g.Target, g.Handle, dx, dy)
}
