package renderer

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/interaction"
	"github.com/ivlev/audiocanvas/internal/scene"
)

// GhostThreshold is the effective opacity under which a text object gets a marker.
const GhostThreshold = 0.1

var (
	accent      = scene.Color{R: 0, G: 168, B: 255, A: 255}
	ghostColor  = scene.Color{R: 255, G: 200, B: 0, A: 255}
	handleFill  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	marqueeFill = accent.WithAlpha(0.12)
)

// Workspace is a fixed-aspect output frame shown inside the canvas.
type Workspace struct {
	Name   string
	Width  int
	Height int
}

// Frame returns the largest rectangle of the workspace aspect centred in a cw x ch canvas.
func (ws *Workspace) Frame(cw, ch float64) geometry.PixelRect {
	if ws.Width <= 0 || ws.Height <= 0 {
		return geometry.PixelRect{W: cw, H: ch}
	}
	s := math.Min(cw/float64(ws.Width), ch/float64(ws.Height))
	w, h := float64(ws.Width)*s, float64(ws.Height)*s
	return geometry.PixelRect{X: (cw - w) / 2, Y: (ch - h) / 2, W: w, H: h}
}

// Label is the caption of the bounds outline, e.g. "9:16 1080x1920".
func (ws *Workspace) Label() string {
	return fmt.Sprintf("%s %dx%d", ws.Name, ws.Width, ws.Height)
}

// Draw outlines the workspace and labels it.
func (ws *Workspace) Draw(c *canvas.Canvas) {
	f := ws.Frame(c.Width(), c.Height())
	c.DashedRect(f.X+1, f.Y+1, f.W-2, f.H-2, 2, 8, accent.WithAlpha(0.8))
	c.Text(ws.Label(), f.X+8, f.Y+6, 14, accent.WithAlpha(0.9))
}

func (ws *Workspace) fillOutside(c *canvas.Canvas, col color.Color) {
	w, h := c.Width(), c.Height()
	f := ws.Frame(w, h)
	c.FillRect(0, 0, w, f.Y, col)
	c.FillRect(0, f.Y+f.H, w, h-f.Y-f.H, col)
	c.FillRect(0, f.Y, f.X, f.H, col)
	c.FillRect(f.X+f.W, f.Y, w-f.X-f.W, f.H, col)
}

// IsGhost reports whether a text object is faded so far that it needs a marker to stay clickable.
func (l *TextLayer) IsGhost(o *scene.Text, t float64, selected bool) bool {
	if o.Hidden || selected {
		return false
	}
	return l.Opacity(o, t) < GhostThreshold
}

// Ghosts returns the text objects that get a marker at time t.
func (r *Renderer) Ghosts(t float64) []*scene.Text {
	if r.Text == nil {
		return nil
	}
	var out []*scene.Text
	for _, o := range r.Text.Objects() {
		selected := r.Selection != nil && r.Selection.IsSelected(o)
		if r.Text.IsGhost(o, t, selected) {
			out = append(out, o)
		}
	}
	return out
}

func (r *Renderer) drawGhosts(c *canvas.Canvas, t float64) {
	for _, o := range r.Ghosts(t) {
		p := r.Text.Bounds(o, c)
		c.DashedRect(p.X, p.Y, p.W, p.H, 2, 6, ghostColor.WithAlpha(0.7))
	}
}

func (r *Renderer) drawSelection(c *canvas.Canvas) {
	if r.Selection == nil {
		return
	}
	w, h := c.Width(), c.Height()
	for _, o := range r.Selection.Selected() {
		p := o.Base().Rect.ToPixels(w, h)
		c.StrokeRect(p.X, p.Y, p.W, p.H, 2, accent)
	}

	primary := r.Selection.Primary()
	if primary == nil || scene.IsBackground(primary) {
		return
	}
	p := primary.Base().Rect.ToPixels(w, h)
	size := r.Selection.HandleSize
	for _, hd := range geometry.Handles {
		pt := hd.Position(p)
		c.FillRect(pt.X-size/2, pt.Y-size/2, size, size, handleFill)
		c.StrokeRect(pt.X-size/2, pt.Y-size/2, size, size, 1, accent)
	}
}

func (r *Renderer) drawMarquee(c *canvas.Canvas) {
	if r.Selection == nil {
		return
	}
	m, ok := r.Selection.ActiveMarquee()
	if !ok {
		return
	}
	p := m.Rect()
	col := accent
	if m.Kind == interaction.MarqueeText {
		col = ghostColor
	}
	c.FillRect(p.X, p.Y, p.W, p.H, marqueeFill)
	c.DashedRect(p.X, p.Y, p.W, p.H, 1, 4, col)
}
