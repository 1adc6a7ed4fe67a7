package visualizer

import (
	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

// Waveform renders the spectrum as one connected line around mid-height.
type Waveform struct{}

func (Waveform) Name() string        { return "waveform" }
func (Waveform) NeedsTimeData() bool { return false }

func (Waveform) Draw(c *canvas.Canvas, data []byte, n int, width, height float64, col scene.Color, opacity float64) {
	n = usable(data, n)
	if n < 2 {
		return
	}
	step := width / float64(n)
	pts := make([]geometry.Point, n)
	for i := 0; i < n; i++ {
		dev := (float64(data[i])/255 - 0.5) * height * 0.8
		pts[i] = geometry.Point{X: float64(i) * step, Y: height/2 + dev}
	}
	c.Polyline(pts, 2, false, col.WithAlpha(opacity))
}
