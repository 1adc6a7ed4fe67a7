package canvas

import (
	"math"

	"golang.org/x/image/vector"

	"github.com/ivlev/audiocanvas/internal/geometry"
)

// path accumulates closed polygons in one rasterizer pass.
// The rasterizer sums signed coverage, so every filled polygon is emitted with the same
// orientation (overlaps union) and holes with the opposite one.
type path struct {
	z     *vector.Rasterizer
	empty bool
}

func (p *path) polygon(pts []geometry.Point, positive bool) {
	if len(pts) < 3 {
		return
	}
	if (signedArea(pts) >= 0) != positive {
		rev := make([]geometry.Point, len(pts))
		for i, pt := range pts {
			rev[len(pts)-1-i] = pt
		}
		pts = rev
	}
	p.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		p.z.LineTo(float32(pt.X), float32(pt.Y))
	}
	p.z.ClosePath()
	p.empty = false
}

// segment adds a rectangle of the given width around a-b.
func (p *path) segment(a, b geometry.Point, width float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	p.polygon([]geometry.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, true)
}

func (p *path) circle(cx, cy, r float64, positive bool) {
	if r <= 0 {
		return
	}
	n := int(r*0.7) + 12
	if n > 96 {
		n = 96
	}
	pts := make([]geometry.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geometry.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	p.polygon(pts, positive)
}

func signedArea(pts []geometry.Point) float64 {
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return s / 2
}
