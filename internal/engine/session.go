// Package engine ties the scene, interaction, history and renderer together: an interactive
// editor session and an offline recording project.
package engine

import (
	"fmt"
	"image"
	"time"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/config"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/history"
	"github.com/ivlev/audiocanvas/internal/interaction"
	"github.com/ivlev/audiocanvas/internal/renderer"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/slideshow"
)

// NudgeStep is how far the nudge shortcuts move the selection, in canvas pixels.
const NudgeStep = 1.0

// Modifiers are the keys held during a pointer press.
type Modifiers struct {
	// Shift toggles the pressed object in the selection instead of replacing it.
	Shift bool
	// Alt makes an empty-canvas drag select media instead of text.
	Alt bool
}

// Session is one editor: a scene on a visible canvas with selection and undo.
// It is single-threaded; call it from the goroutine that owns the input.
type Session struct {
	Scene       *scene.Scene
	History     *history.History
	Interaction *interaction.Engine
	Renderer    *renderer.Renderer
	Canvas      *canvas.Canvas
	Group       *slideshow.Controller
	Preset      string

	now     func() time.Time
	gesture *interaction.Gesture
}

// NewSession opens s on a width x height canvas. group may be nil.
func NewSession(s *scene.Scene, width, height int, group *slideshow.Controller) *Session {
	sess := &Session{
		Scene:       s,
		History:     history.New(history.DefaultCapacity),
		Interaction: interaction.New(float64(width), float64(height), nil),
		Canvas:      canvas.New(width, height),
		now:         time.Now,
	}
	var vis renderer.Visibility
	if group != nil {
		sess.Group = group
		sess.Interaction.SetGroup(group)
		vis = group
	}
	sess.Renderer = renderer.New(s, vis)
	sess.Renderer.Selection = sess.Interaction
	return sess
}

// SetPreset resizes the canvas to a named aspect preset. Object geometry is relative,
// so every object follows the new size.
func (s *Session) SetPreset(name string) error {
	p, ok := config.LookupPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset: %s", name)
	}
	if err := s.Canvas.Resize(p.Width, p.Height); err != nil {
		return err
	}
	s.Interaction.SetCanvasSize(float64(p.Width), float64(p.Height))
	s.Renderer.Workspace = &renderer.Workspace{Name: p.Name, Width: p.Width, Height: p.Height}
	s.Preset = p.Name
	return nil
}

// Draw renders the on-screen pass with overlays and returns the canvas pixels.
func (s *Session) Draw(f renderer.Frame) *image.RGBA {
	s.Renderer.Draw(s.Canvas, f, true)
	return s.Canvas.Image()
}

// PointerDown starts a drag, a resize, a toggle or a marquee depending on what is under pt.
func (s *Session) PointerDown(pt geometry.Point, mod Modifiers) {
	s.gesture = nil
	if mod.Shift {
		if o, _ := s.Interaction.HitTest(s.Scene, pt); o != nil {
			s.Interaction.Toggle(o)
			return
		}
	}

	g := s.Interaction.Begin(s.Scene, pt)
	if g == nil {
		kind := interaction.MarqueeText
		if mod.Alt {
			kind = interaction.MarqueeMedia
		}
		s.Interaction.BeginMarquee(kind, pt)
		return
	}
	s.gesture = s.withGroup(g)
}

// withGroup adds every slideshow member to the gesture's origins, because moving or
// scaling one member changes them all.
func (s *Session) withGroup(g *interaction.Gesture) *interaction.Gesture {
	if s.Group == nil {
		return g
	}
	grouped := false
	seen := make(map[string]bool, len(g.Origins))
	for _, o := range g.Origins {
		seen[o.Object.Base().ID] = true
		grouped = grouped || o.Object.Base().Slideshow
	}
	if !grouped {
		return g
	}
	for _, img := range s.Group.Images() {
		if !seen[img.ID] {
			g.Origins = append(g.Origins, interaction.Origin{Object: img, Rect: img.Rect})
		}
	}
	return g
}

func (s *Session) PointerMove(pt geometry.Point) {
	if s.gesture != nil {
		s.Interaction.Drag(s.gesture, pt)
		return
	}
	s.Interaction.UpdateMarquee(pt)
}

// PointerUp finishes the gesture and records what it changed as one history entry.
func (s *Session) PointerUp(pt geometry.Point) {
	if s.gesture == nil {
		if _, ok := s.Interaction.ActiveMarquee(); ok {
			s.Interaction.UpdateMarquee(pt)
			s.Interaction.EndMarquee(s.Scene)
		}
		return
	}
	s.Interaction.Drag(s.gesture, pt)
	g := s.gesture
	s.gesture = nil
	s.record(g)
}

func (s *Session) record(g *interaction.Gesture) {
	at := s.now()
	var cmds []history.Command
	for _, org := range g.Origins {
		o := org.Object
		r := o.Base().Rect
		font := org.FontSize
		if t, ok := o.(*scene.Text); ok {
			font = t.FontSize
		}
		if r == org.Rect && font == org.FontSize {
			continue
		}
		var change history.Change
		if r.W == org.Rect.W && r.H == org.Rect.H && font == org.FontSize {
			change = history.PositionChange{
				Old: geometry.Point{X: org.Rect.X, Y: org.Rect.Y},
				New: geometry.Point{X: r.X, Y: r.Y},
			}
		} else {
			change = history.SizeChange{Old: org.Rect, New: r, OldFont: org.FontSize, NewFont: font}
		}
		cmds = append(cmds, history.NewModifyObject(o, change, at))
	}
	s.push(cmds, "transform", at)
}

// push records already-applied commands, grouping several into one entry.
func (s *Session) push(cmds []history.Command, name string, at time.Time) {
	switch len(cmds) {
	case 0:
	case 1:
		s.History.Push(cmds[0])
	default:
		s.History.Push(history.NewComposite(name, at, cmds...))
	}
}

// Shortcut runs a named editor command: undo, redo, delete, select-all,
// nudge-left/right/up/down and toggle-grid.
func (s *Session) Shortcut(name string) error {
	switch name {
	case "undo":
		err := s.History.Undo()
		s.Interaction.Prune(s.Scene)
		return err
	case "redo":
		err := s.History.Redo()
		s.Interaction.Prune(s.Scene)
		return err
	case "delete":
		return s.DeleteSelection()
	case "select-all":
		s.Interaction.SelectAll(s.Scene)
	case "nudge-left":
		s.Nudge(-NudgeStep, 0)
	case "nudge-right":
		s.Nudge(NudgeStep, 0)
	case "nudge-up":
		s.Nudge(0, -NudgeStep)
	case "nudge-down":
		s.Nudge(0, NudgeStep)
	case "toggle-grid":
		s.Renderer.Grid.Enabled = !s.Renderer.Grid.Enabled
	default:
		return fmt.Errorf("unknown shortcut: %s", name)
	}
	return nil
}

// Nudge moves the selection by a pixel delta as a recorded move.
func (s *Session) Nudge(dx, dy float64) {
	sel := s.Interaction.Selected()
	if len(sel) == 0 {
		return
	}
	g := &interaction.Gesture{}
	for _, o := range sel {
		g.Origins = append(g.Origins, interaction.Origin{Object: o, Rect: o.Base().Rect})
	}
	g = s.withGroup(g)
	s.Interaction.MoveSelection(dx, dy)
	s.record(g)
}

// DeleteSelection removes the selected objects as one undoable entry. Backgrounds stay.
func (s *Session) DeleteSelection() error {
	at := s.now()
	var cmds []history.Command
	for _, o := range s.Interaction.Selected() {
		if scene.IsBackground(o) {
			continue
		}
		cmds = append(cmds, history.NewDeleteObject(s.Scene, o, at))
	}
	if len(cmds) == 0 {
		return nil
	}
	var cmd history.Command = history.NewComposite("delete", at, cmds...)
	if len(cmds) == 1 {
		cmd = cmds[0]
	}
	err := s.History.Execute(cmd)
	s.Interaction.Prune(s.Scene)
	return err
}

// Reorder moves the object at layer from to layer to. Out-of-range indices are
// rejected without touching the scene or the history.
func (s *Session) Reorder(from, to int) bool {
	n := s.Scene.Len()
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	return s.History.Execute(history.NewReorderObject(s.Scene, from, to, s.now())) == nil
}

// Add inserts o on top as an undoable entry.
func (s *Session) Add(o scene.Object) error {
	return s.History.Execute(history.NewAddObject(s.Scene, o, -1, s.now()))
}

// SetOpacity changes an object's opacity (0..100) as an undoable entry.
func (s *Session) SetOpacity(o scene.Object, v float64) error {
	change := history.PropertyChange{Property: history.Opacity, Old: o.Base().Opacity, New: v}
	return s.History.Execute(history.NewModifyObject(o, change, s.now()))
}

// EditText replaces a text's content; consecutive edits coalesce into one entry.
func (s *Session) EditText(t *scene.Text, content string) error {
	return s.History.Execute(history.NewChangeText(t, t.Content, content, s.now()))
}
