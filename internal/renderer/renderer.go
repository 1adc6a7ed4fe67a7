// Package renderer composites a scene onto a canvas: background, media, the visualizer
// layer and text, plus the interactive overlays of the on-screen surface.
package renderer

import (
	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/interaction"
	"github.com/ivlev/audiocanvas/internal/scene"
)

// Flags toggle the content layers independently.
type Flags struct {
	Images     bool
	Text       bool
	Visualizer bool
}

// AllLayers enables every content layer.
var AllLayers = Flags{Images: true, Text: true, Visualizer: true}

// Frame is the per-pass input: playback time and the current audio buffers.
type Frame struct {
	Time float64
	Freq []byte
	Wave []byte
}

// Renderer draws one scene. It is not safe for concurrent use.
type Renderer struct {
	Scene      *scene.Scene
	Images     *ImageManager
	Text       *TextLayer
	Grid       *Grid
	Visualizer *VisualizerLayer
	Flags      Flags

	// Workspace is the active fixed-aspect preset; nil draws no bounds.
	Workspace *Workspace
	// Selection provides handles and marquees for the primary surface.
	Selection *interaction.Engine
}

// New creates a renderer over s. group may be nil when the scene has no slideshow.
func New(s *scene.Scene, group Visibility) *Renderer {
	return &Renderer{
		Scene:  s,
		Images: &ImageManager{Scene: s, Group: group},
		Text:   &TextLayer{Scene: s},
		Grid:   NewGrid(),
		Flags:  AllLayers,
	}
}

// Draw performs one synchronous pass. Overlays (grid, ghost markers, selection, workspace
// bounds, marquee) are drawn only when primary is set; recording passes leave them out.
func (r *Renderer) Draw(c *canvas.Canvas, f Frame, primary bool) {
	c.Clear()
	r.drawBackground(c)

	if r.Flags.Images && r.Images != nil {
		r.Images.DrawImages(c, f.Time)
	}
	if r.Flags.Visualizer && r.Visualizer != nil {
		r.Visualizer.Draw(c, f)
	}
	if r.Flags.Text && r.Text != nil {
		r.Text.Draw(c, f.Time)
	}

	if !primary {
		return
	}
	if r.Grid != nil {
		r.Grid.DrawGrid(c)
	}
	r.drawGhosts(c, f.Time)
	r.drawSelection(c)
	if r.Workspace != nil {
		r.Workspace.Draw(c)
	}
	r.drawMarquee(c)
}

func (r *Renderer) drawBackground(c *canvas.Canvas) {
	if r.Scene == nil {
		return
	}
	w, h := c.Width(), c.Height()
	if bg, ok := r.Scene.Background(); ok && !bg.Hidden {
		a := bg.Alpha()
		c.FillRect(0, 0, w, h, bg.Color.WithAlpha(a))
		if bg.Bitmap != nil {
			c.DrawImage(bg.Bitmap, cover(bg.Bitmap.Bounds(), w, h), 0, a)
		}
	}
	if r.Workspace == nil {
		return
	}
	for _, o := range r.Scene.Objects() {
		if ws, ok := o.(*scene.WorkspaceBackground); ok && !ws.Hidden {
			r.Workspace.fillOutside(c, ws.Color.WithAlpha(ws.Alpha()))
		}
	}
}
