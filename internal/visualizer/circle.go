package visualizer

import (
	"math"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const (
	circleRings      = 3
	circleRingStep   = 30.0
	circleMaxSamples = 128
	circleModulation = 100.0
)

// Circle renders three concentric rings modulated by the spectrum.
type Circle struct{}

func (Circle) Name() string        { return "circle" }
func (Circle) NeedsTimeData() bool { return false }

func (Circle) Draw(c *canvas.Canvas, data []byte, n int, width, height float64, col scene.Color, opacity float64) {
	for ring, pts := range CircleRings(data, n, width, height) {
		alpha := opacity * (1 - float64(ring)*0.25)
		c.Polyline(pts, 2, true, col.WithAlpha(alpha))
	}
}

// CircleRings returns one closed path per ring.
func CircleRings(data []byte, n int, width, height float64) [][]geometry.Point {
	n = usable(data, n)
	if n < 2 {
		return nil
	}
	samples := n
	if samples > circleMaxSamples {
		samples = circleMaxSamples
	}
	cx, cy := width/2, height/2
	base := math.Min(width, height) * 0.15

	rings := make([][]geometry.Point, circleRings)
	for ring := 0; ring < circleRings; ring++ {
		pts := make([]geometry.Point, samples)
		for i := 0; i < samples; i++ {
			idx := i * n / samples
			angle := float64(i) / float64(samples) * 2 * math.Pi
			r := base + float64(ring)*circleRingStep + float64(data[idx])/255*circleModulation
			pts[i] = geometry.Point{X: cx + math.Cos(angle)*r, Y: cy + math.Sin(angle)*r}
		}
		rings[ring] = pts
	}
	return rings
}
