package canvas

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/audiocanvas/internal/geometry"
)

// DrawImage scales src into dst, rotated by rotation degrees around the rectangle center,
// with the given opacity (0..1).
func (c *Canvas) DrawImage(src image.Image, dst geometry.PixelRect, rotation, alpha float64) {
	if c.img == nil || src == nil || dst.W <= 0 || dst.H <= 0 || alpha <= 0 {
		return
	}
	sr := src.Bounds()
	if sr.Empty() {
		return
	}

	var opts *xdraw.Options
	if alpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(alpha*255 + 0.5)})}
	}

	if math.Mod(rotation, 360) == 0 {
		dr := image.Rect(
			int(math.Round(dst.X)), int(math.Round(dst.Y)),
			int(math.Round(dst.X+dst.W)), int(math.Round(dst.Y+dst.H)),
		)
		xdraw.ApproxBiLinear.Scale(c.img, dr, src, sr, xdraw.Over, opts)
		return
	}

	xdraw.ApproxBiLinear.Transform(c.img, transform(sr, dst, rotation), src, sr, xdraw.Over, opts)
}

// transform maps source pixels into the rotated destination rectangle.
func transform(sr image.Rectangle, dst geometry.PixelRect, rotation float64) f64.Aff3 {
	kx := dst.W / float64(sr.Dx())
	ky := dst.H / float64(sr.Dy())
	theta := rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	cx, cy := dst.X+dst.W/2, dst.Y+dst.H/2

	a, b := cos*kx, -sin*ky
	d, e := sin*kx, cos*ky
	c := cx - cos*dst.W/2 + sin*dst.H/2 - a*float64(sr.Min.X) - b*float64(sr.Min.Y)
	f := cy - sin*dst.W/2 - cos*dst.H/2 - d*float64(sr.Min.X) - e*float64(sr.Min.Y)
	return f64.Aff3{a, b, c, d, e, f}
}
