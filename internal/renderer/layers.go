package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/visualizer"
)

// Visibility reports the crossfade factor of a slideshow member at time t.
type Visibility interface {
	Visibility(o scene.Object, t float64) (float64, bool)
}

// ImageManager draws image and video objects in layer order.
type ImageManager struct {
	Scene *scene.Scene
	Group Visibility
}

var placeholder = color.RGBA{R: 40, G: 40, B: 48, A: 255}

// DrawImages draws every visible media object. Slideshow members are multiplied by
// their crossfade factor; video objects without a poster get a flat placeholder.
func (m *ImageManager) DrawImages(c *canvas.Canvas, t float64) {
	w, h := c.Width(), c.Height()
	for _, o := range m.Scene.Media() {
		b := o.Base()
		if b.Hidden {
			continue
		}
		alpha := b.Alpha()
		if b.Slideshow && m.Group != nil {
			if f, ok := m.Group.Visibility(o, t); ok {
				alpha *= f
			}
		}
		if alpha <= 0 {
			continue
		}

		p := b.Rect.ToPixels(w, h)
		var bmp image.Image
		switch v := o.(type) {
		case *scene.Image:
			bmp = v.Bitmap
		case *scene.Video:
			bmp = v.Poster
		}
		if bmp == nil {
			c.FillRect(p.X, p.Y, p.W, p.H, scene.Color(placeholder).WithAlpha(alpha))
			continue
		}
		c.DrawImage(bmp, p, b.Rotation, alpha)
	}
}

// TextLayer draws text objects with their fade animations.
type TextLayer struct {
	Scene *scene.Scene
}

// Objects returns the text objects in drawing order.
func (l *TextLayer) Objects() []*scene.Text {
	return l.Scene.Texts()
}

// Bounds returns the pixel rectangle of o on c.
func (l *TextLayer) Bounds(o *scene.Text, c *canvas.Canvas) geometry.PixelRect {
	return o.Rect.ToPixels(c.Width(), c.Height())
}

// Opacity is the fade factor at t multiplied by the object opacity.
func (l *TextLayer) Opacity(o *scene.Text, t float64) float64 {
	return o.Animation.Factor(t) * (o.Opacity / 100)
}

// Draw renders every visible text object; lines are split on '\n'.
func (l *TextLayer) Draw(c *canvas.Canvas, t float64) {
	for _, o := range l.Objects() {
		if o.Hidden || o.Content == "" {
			continue
		}
		a := l.Opacity(o, t)
		if a <= 0 {
			continue
		}
		p := l.Bounds(o, c)
		col := o.Color.WithAlpha(a)
		y := p.Y
		for _, line := range strings.Split(o.Content, "\n") {
			c.Text(line, p.X, y, o.FontSize, col)
			_, lh := c.MeasureText(line, o.FontSize)
			y += lh
		}
	}
}

// Grid is the alignment overlay of the on-screen surface.
type Grid struct {
	Enabled   bool
	Divisions int
	Color     scene.Color
}

func NewGrid() *Grid {
	return &Grid{Divisions: 10, Color: scene.White}
}

// DrawGrid draws Divisions columns and rows; the centre lines are stronger.
func (g *Grid) DrawGrid(c *canvas.Canvas) {
	if !g.Enabled || g.Divisions < 2 {
		return
	}
	w, h := c.Width(), c.Height()
	line := g.Color.WithAlpha(0.15)
	center := g.Color.WithAlpha(0.35)
	for i := 1; i < g.Divisions; i++ {
		col := line
		if i*2 == g.Divisions {
			col = center
		}
		x := w * float64(i) / float64(g.Divisions)
		y := h * float64(i) / float64(g.Divisions)
		c.Line(x, 0, x, h, 1, col)
		c.Line(0, y, w, y, 1, col)
	}
}

// VisualizerLayer places a visualizer inside a relative rectangle of the canvas.
type VisualizerLayer struct {
	Visualizer visualizer.Visualizer
	Rect       geometry.Rect
	Color      scene.Color
	Opacity    float64

	scratch *canvas.Canvas
}

type trailKeeper interface {
	KeepsTrail() bool
}

// Draw renders the visualizer into its own surface and composites it at Rect. The
// surface survives between frames so trail-keeping visualizers can fade it themselves.
func (l *VisualizerLayer) Draw(c *canvas.Canvas, f Frame) {
	if l.Visualizer == nil {
		return
	}
	p := l.Rect.ToPixels(c.Width(), c.Height())
	w, h := int(math.Round(p.W)), int(math.Round(p.H))
	if w <= 0 || h <= 0 {
		return
	}
	if l.scratch == nil || int(l.scratch.Width()) != w || int(l.scratch.Height()) != h {
		l.scratch = canvas.New(w, h)
	}
	if tk, ok := l.Visualizer.(trailKeeper); !ok || !tk.KeepsTrail() {
		l.scratch.Clear()
	}

	data := f.Freq
	if l.Visualizer.NeedsTimeData() {
		data = f.Wave
	}
	l.Visualizer.Draw(l.scratch, data, len(data), float64(w), float64(h), l.Color, l.Opacity)
	c.DrawImage(l.scratch.Image(), p, 0, 1)
}

// cover scales a bitmap of bounds b to cover the whole canvas, centred.
func cover(b image.Rectangle, w, h float64) geometry.PixelRect {
	bw, bh := float64(b.Dx()), float64(b.Dy())
	if bw <= 0 || bh <= 0 {
		return geometry.PixelRect{W: w, H: h}
	}
	s := math.Max(w/bw, h/bh)
	return geometry.PixelRect{X: (w - bw*s) / 2, Y: (h - bh*s) / 2, W: bw * s, H: bh * s}
}
