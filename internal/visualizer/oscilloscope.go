package visualizer

import (
	"fmt"
	"image/color"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

// Oscilloscope renders the time-domain signal like a CRT trace.
type Oscilloscope struct {
	// Tiers overrides DefaultTiers when set.
	Tiers []float64
}

func (Oscilloscope) Name() string        { return "oscilloscope" }
func (Oscilloscope) NeedsTimeData() bool { return true }

// KeepsTrail reports that Draw fades the previous frame itself; callers must not clear between frames.
func (Oscilloscope) KeepsTrail() bool { return true }

// DefaultTiers are the opacities of the phosphor passes: wide faint glow first,
// sharp bright core last.
var DefaultTiers = []float64{0.15, 0.4, 1.0}

var passWidths = []float64{6, 3, 1.5}

// SetTiers replaces the pass opacities. An empty slice restores the defaults.
func (o *Oscilloscope) SetTiers(tiers []float64) error {
	if len(tiers) == 0 {
		o.Tiers = nil
		return nil
	}
	if len(tiers) != len(passWidths) {
		return fmt.Errorf("oscilloscope: %d opacity tiers, want %d", len(tiers), len(passWidths))
	}
	for _, a := range tiers {
		if a < 0 || a > 1 {
			return fmt.Errorf("oscilloscope: opacity tier %g outside [0, 1]", a)
		}
	}
	o.Tiers = append([]float64(nil), tiers...)
	return nil
}

func (o Oscilloscope) Draw(c *canvas.Canvas, data []byte, n int, width, height float64, col scene.Color, opacity float64) {
	// Persistence trail instead of a full clear.
	c.FillRect(0, 0, width, height, color.RGBA{A: 51})

	grid := col.WithAlpha(0.08 * opacity)
	for i := 1; i < 10; i++ {
		x := width * float64(i) / 10
		c.Line(x, 0, x, height, 1, grid)
	}
	for i := 1; i < 8; i++ {
		y := height * float64(i) / 8
		c.Line(0, y, width, y, 1, grid)
	}
	cross := col.WithAlpha(0.25 * opacity)
	c.Line(width/2, 0, width/2, height, 1, cross)
	c.Line(0, height/2, width, height/2, 1, cross)

	n = usable(data, n)
	if n < 2 {
		return
	}
	pts := OscilloscopePoints(data, n, width, height)
	tiers := o.Tiers
	if len(tiers) != len(passWidths) {
		tiers = DefaultTiers
	}
	for i, w := range passWidths {
		c.Polyline(pts, w, false, col.WithAlpha(tiers[i]*opacity))
	}
}

// OscilloscopePoints maps samples (128 = zero crossing) to trace coordinates.
func OscilloscopePoints(data []byte, n int, width, height float64) []geometry.Point {
	step := width / float64(n)
	pts := make([]geometry.Point, n)
	for i := 0; i < n; i++ {
		v := float64(data[i])/128 - 1
		pts[i] = geometry.Point{X: float64(i) * step, Y: height/2 + v*height/2}
	}
	return pts
}
