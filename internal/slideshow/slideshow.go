// Package slideshow drives a linked group of images: they share one frame, move and
// scale together, and take turns on screen.
package slideshow

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/source"
)

const (
	minGroupSize = 0.05
	variation    = 0.15
)

// Controller owns the slideshow images and their timeline.
type Controller struct {
	slides []*scene.Image
	starts []float64
	durs   []float64
	fade   float64
}

// New builds a controller over existing images. durations[i] is how long slide i is on
// screen including its transitions; neighbouring slides overlap by fade seconds.
func New(images []*scene.Image, durations []float64, fade float64) (*Controller, error) {
	if len(images) != len(durations) {
		return nil, fmt.Errorf("slideshow: %d images but %d durations", len(images), len(durations))
	}
	c := &Controller{slides: images, durs: durations, fade: fade}
	c.starts = make([]float64, len(durations))
	at := 0.0
	for i, d := range durations {
		c.starts[i] = at
		at += d - fade
	}
	for _, img := range images {
		img.Slideshow = true
	}
	return c, nil
}

// Load renders every page of src into an image fitted inside frame.
func Load(src source.Source, dpi int, frame geometry.Rect, canvasW, canvasH float64, total, fade float64) (*Controller, error) {
	n := src.PageCount()
	if n == 0 {
		return nil, fmt.Errorf("источник не содержит страниц/кадров")
	}
	images := make([]*scene.Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := src.RenderPage(i, dpi)
		if err != nil {
			log.Printf("[!] Ошибка рендеринга страницы %d: %v", i, err)
			continue
		}
		b := img.Bounds()
		r := Fit(float64(b.Dx()), float64(b.Dy()), frame, canvasW, canvasH)
		images = append(images, scene.NewImage(fmt.Sprintf("page-%d", i+1), img, r))
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("ни одна страница не отрендерена")
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return New(images, Durations(len(images), total, fade, rng), fade)
}

// Fit returns the largest rectangle of the given pixel aspect centred inside frame.
func Fit(w, h float64, frame geometry.Rect, canvasW, canvasH float64) geometry.Rect {
	if w <= 0 || h <= 0 {
		return frame
	}
	fp := frame.ToPixels(canvasW, canvasH)
	scale := math.Min(fp.W/w, fp.H/h)
	pw, ph := w*scale, h*scale
	p := geometry.PixelRect{X: fp.X + (fp.W-pw)/2, Y: fp.Y + (fp.H-ph)/2, W: pw, H: ph}
	return geometry.FromPixels(p, canvasW, canvasH)
}

// Durations splits total seconds of visible time over n slides. Each slide deviates from
// its predecessor by up to ±15%, no slide is shorter than 1.1*fade, and the slides sum to
// total + (n-1)*fade because every transition overlaps two slides.
func Durations(n int, total, fade float64, rng *rand.Rand) []float64 {
	if n <= 0 {
		return nil
	}
	fades := float64(n - 1)
	clips := total + fades*fade
	base := clips / float64(n)

	d := make([]float64, n)
	d[0] = base * (1 + rng.Float64()*2*variation - variation)
	for i := 1; i < n; i++ {
		d[i] = d[i-1] * (1 + rng.Float64()*2*variation - variation)
		if d[i] < fade*1.1 {
			d[i] = fade * 1.1
		}
	}

	sum := 0.0
	for _, v := range d {
		sum += v
	}
	scale := clips / sum
	for i := range d {
		d[i] *= scale
	}
	return d
}

func (c *Controller) Images() []*scene.Image { return c.slides }

func (c *Controller) Len() int { return len(c.slides) }

// Total is the length of the whole slideshow in seconds.
func (c *Controller) Total() float64 {
	if len(c.slides) == 0 {
		return 0
	}
	last := len(c.slides) - 1
	return c.starts[last] + c.durs[last]
}

// Bounds returns the union of all member rectangles.
func (c *Controller) Bounds() geometry.Rect {
	if len(c.slides) == 0 {
		return geometry.Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range c.slides {
		r := s.Rect
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X+r.W)
		maxY = math.Max(maxY, r.Y+r.H)
	}
	return geometry.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Move shifts the whole group; the group frame stays inside the canvas.
func (c *Controller) Move(relDx, relDy float64) {
	b := c.Bounds()
	moved := geometry.Rect{X: b.X + relDx, Y: b.Y + relDy, W: b.W, H: b.H}.Clamp()
	dx, dy := moved.X-b.X, moved.Y-b.Y
	for _, s := range c.slides {
		s.Rect.X += dx
		s.Rect.Y += dy
	}
}

// Scale resizes the group about its centre. Factors that would make the group smaller
// than 5% of the canvas or larger than the canvas are ignored.
func (c *Controller) Scale(factor float64) {
	if factor <= 0 || len(c.slides) == 0 {
		return
	}
	b := c.Bounds()
	nw, nh := b.W*factor, b.H*factor
	if nw < minGroupSize || nh < minGroupSize || nw > 1 || nh > 1 {
		return
	}
	cx, cy := b.X+b.W/2, b.Y+b.H/2
	for _, s := range c.slides {
		r := s.Rect
		r.X = cx + (r.X-cx)*factor
		r.Y = cy + (r.Y-cy)*factor
		r.W *= factor
		r.H *= factor
		s.Rect = r
	}
	// scaling about the centre can push an edge out; pull the group back in
	c.Move(0, 0)
}

// Visibility returns the fade factor of o at time t, and false when o is not a member.
func (c *Controller) Visibility(o scene.Object, t float64) (float64, bool) {
	for i, s := range c.slides {
		if s.ID != o.Base().ID {
			continue
		}
		return c.factor(i, t), true
	}
	return 0, false
}

func (c *Controller) factor(i int, t float64) float64 {
	start, end := c.starts[i], c.starts[i]+c.durs[i]
	last := len(c.slides) - 1
	if (t < start && i > 0) || (t > end && i < last) {
		return 0
	}
	if c.fade <= 0 {
		return 1
	}
	f := 1.0
	if i > 0 && t < start+c.fade {
		f = (t - start) / c.fade
	}
	if i < last && t > end-c.fade {
		f = math.Min(f, (end-t)/c.fade)
	}
	return math.Max(0, math.Min(1, f))
}

// Active returns the index of the slide that dominates at time t.
func (c *Controller) Active(t float64) int {
	best, bestF := -1, 0.0
	for i := range c.slides {
		if f := c.factor(i, t); f > bestF {
			best, bestF = i, f
		}
	}
	return best
}
