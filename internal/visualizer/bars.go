package visualizer

import (
	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const (
	maxBars = 64
	barGap  = 2.0
)

// Bars renders the spectrum as up to 64 vertical bars.
type Bars struct{}

func (Bars) Name() string        { return "bars" }
func (Bars) NeedsTimeData() bool { return false }

func (Bars) Draw(c *canvas.Canvas, data []byte, n int, width, height float64, col scene.Color, opacity float64) {
	for _, r := range BarRects(data, n, width, height) {
		c.FillRect(r.X, r.Y, r.W, r.H, col.WithAlpha(opacity))
	}
}

// BarRects downsamples to at most 64 bars by nearest index and returns their rectangles.
func BarRects(data []byte, n int, width, height float64) []geometry.PixelRect {
	n = usable(data, n)
	if n == 0 {
		return nil
	}
	count := n
	if count > maxBars {
		count = maxBars
	}
	slot := width / float64(count)
	barWidth := slot - barGap
	if barWidth < 1 {
		barWidth = 1
	}
	rects := make([]geometry.PixelRect, 0, count)
	for i := 0; i < count; i++ {
		idx := i * n / count
		h := float64(data[idx]) / 255 * height * 0.8
		if h <= 0 {
			continue
		}
		rects = append(rects, geometry.PixelRect{X: float64(i) * slot, Y: height - h, W: barWidth, H: h})
	}
	return rects
}
