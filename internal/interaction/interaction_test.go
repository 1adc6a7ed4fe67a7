package interaction

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

type fakeGroup struct {
	moves  [][2]float64
	scales []float64
}

func (g *fakeGroup) Move(dx, dy float64) { g.moves = append(g.moves, [2]float64{dx, dy}) }
func (g *fakeGroup) Scale(f float64)     { g.scales = append(g.scales, f) }

func squareImage(r geometry.Rect) *scene.Image {
	return scene.NewImage("square.png", image.NewRGBA(image.Rect(0, 0, 100, 100)), r)
}

func TestScenarioCornerResize(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		dx, dy        float64
	}{
		{"full hd", 1920, 1080, 576, 324},
		{"small canvas", 320, 180, 96, 54},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.width, tt.height, nil)
			img := scene.NewImage("clip.png", nil, geometry.Rect{X: 0.1, Y: 0.1, W: 0.3, H: 0.3})

			if !e.Resize(img, geometry.HandleBottomRight, tt.dx, tt.dy) {
				t.Fatal("resize rejected")
			}
			r := img.Rect
			if !near(r.W, 0.6) || !near(r.H, 0.6) {
				t.Errorf("size = %.6f x %.6f, want 0.6 x 0.6", r.W, r.H)
			}
			if !near(r.X, 0.1) || !near(r.Y, 0.1) {
				t.Errorf("anchor moved: %.6f, %.6f", r.X, r.Y)
			}
		})
	}
}

func inward(h geometry.Handle, d float64) (float64, float64) {
	var dx, dy float64
	switch h {
	case geometry.HandleTopLeft:
		dx, dy = d, d
	case geometry.HandleTopRight:
		dx, dy = -d, d
	case geometry.HandleBottomLeft:
		dx, dy = d, -d
	case geometry.HandleBottomRight:
		dx, dy = -d, -d
	case geometry.HandleTop:
		dy = d
	case geometry.HandleBottom:
		dy = -d
	case geometry.HandleLeft:
		dx = d
	case geometry.HandleRight:
		dx = -d
	}
	return dx, dy
}

func TestMinimumSizeRollback(t *testing.T) {
	const w, h = 1920.0, 1080.0
	rect := geometry.Rect{X: 800 / w, Y: 400 / h, W: 60 / w, H: 60 / h}

	for _, handle := range geometry.Handles {
		t.Run(string(handle), func(t *testing.T) {
			e := New(w, h, nil)
			dx, dy := inward(handle, 40)

			img := squareImage(rect)
			if e.Resize(img, handle, dx, dy) {
				t.Error("image shrink below 3x handle size accepted")
			}
			if img.Rect != rect {
				t.Errorf("image geometry changed: %+v", img.Rect)
			}

			txt := scene.NewText("hi", 40, rect)
			if e.Resize(txt, handle, dx, dy) {
				t.Error("text shrink below 3x handle size accepted")
			}
			if txt.Rect != rect || txt.FontSize != 40 {
				t.Errorf("text changed: %+v font %f", txt.Rect, txt.FontSize)
			}
		})
	}
}

func TestRandomResizeInvariant(t *testing.T) {
	const w, h = 1280.0, 720.0
	rng := rand.New(rand.NewSource(42))
	e := New(w, h, nil)

	for i := 0; i < 200; i++ {
		obj := scene.Object(squareImage(geometry.Rect{X: 0.3, Y: 0.3, W: 0.1, H: 0.1}))
		if i%2 == 1 {
			obj = scene.NewText("label", 24, geometry.Rect{X: 0.3, Y: 0.3, W: 0.1, H: 0.05})
		}
		for step := 0; step < 30; step++ {
			handle := geometry.Handles[rng.Intn(len(geometry.Handles))]
			dx, dy := rng.Float64()*160-80, rng.Float64()*160-80

			before := obj.Base().Rect
			var beforeFont float64
			if t, ok := obj.(*scene.Text); ok {
				beforeFont = t.FontSize
			}

			ok := e.Resize(obj, handle, dx, dy)
			after := obj.Base().Rect
			if !ok {
				if after != before {
					t.Fatalf("rejected step changed geometry: %+v -> %+v", before, after)
				}
				if tx, isText := obj.(*scene.Text); isText && tx.FontSize != beforeFont {
					t.Fatalf("rejected step changed font")
				}
				continue
			}
			p := after.ToPixels(w, h)
			if p.W < 30-1e-6 || p.H < 30-1e-6 {
				t.Fatalf("accepted step below minimum: %+v", p)
			}
			if tx, isText := obj.(*scene.Text); isText && tx.FontSize < MinFontSize {
				t.Fatalf("font below minimum: %f", tx.FontSize)
			}
		}
	}
}

func TestTextFontMinimum(t *testing.T) {
	e := New(1000, 1000, nil)
	txt := scene.NewText("tiny", 10, geometry.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.1})

	if e.Resize(txt, geometry.HandleRight, -100, 0) {
		t.Fatal("font would drop to 5, resize should be rejected")
	}
	if txt.FontSize != 10 || txt.Rect.W != 0.2 {
		t.Errorf("text changed: font %f, width %f", txt.FontSize, txt.Rect.W)
	}

	if !e.Resize(txt, geometry.HandleRight, 200, 0) {
		t.Fatal("growing text should be accepted")
	}
	if !near(txt.FontSize, 20) {
		t.Errorf("font should scale with width, got %f", txt.FontSize)
	}
	if !near(txt.Rect.H, 0.2) {
		t.Errorf("text aspect not preserved, height %f", txt.Rect.H)
	}
}

func TestEdgeHandleAnchors(t *testing.T) {
	e := New(1000, 1000, nil)

	img := squareImage(geometry.Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2})
	if !e.Resize(img, geometry.HandleLeft, -100, 0) {
		t.Fatal("left resize rejected")
	}
	if !near(img.Rect.X+img.Rect.W, 0.6) {
		t.Errorf("right edge moved to %f", img.Rect.X+img.Rect.W)
	}
	if !near(img.Rect.Y, 0.35) || !near(img.Rect.H, 0.3) {
		t.Errorf("left handle should centre vertically: y=%f h=%f", img.Rect.Y, img.Rect.H)
	}

	img = squareImage(geometry.Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2})
	if !e.Resize(img, geometry.HandleBottom, 0, 100) {
		t.Fatal("bottom resize rejected")
	}
	if !near(img.Rect.Y, 0.4) {
		t.Errorf("top edge moved to %f", img.Rect.Y)
	}
	if !near(img.Rect.X, 0.35) || !near(img.Rect.W, 0.3) {
		t.Errorf("bottom handle should centre horizontally: x=%f w=%f", img.Rect.X, img.Rect.W)
	}

	img = squareImage(geometry.Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2})
	if !e.Resize(img, geometry.HandleTopLeft, -50, -20) {
		t.Fatal("top-left resize rejected")
	}
	if !near(img.Rect.X+img.Rect.W, 0.6) || !near(img.Rect.Y+img.Rect.H, 0.6) {
		t.Errorf("bottom-right anchor moved: %+v", img.Rect)
	}
	if !near(img.Rect.W, 0.25) || !near(img.Rect.H, 0.25) {
		t.Errorf("dominant axis should drive the size: %+v", img.Rect)
	}
}

func TestImageResizeStaysInside(t *testing.T) {
	e := New(1000, 1000, nil)
	img := squareImage(geometry.Rect{X: 0.7, Y: 0.7, W: 0.2, H: 0.2})
	before := img.Rect
	if e.Resize(img, geometry.HandleBottomRight, 200, 200) {
		t.Error("resize past the canvas edge accepted")
	}
	if img.Rect != before {
		t.Errorf("geometry changed: %+v", img.Rect)
	}
}

func TestMoveClamping(t *testing.T) {
	const w, h = 1920.0, 1080.0
	rng := rand.New(rand.NewSource(7))
	e := New(w, h, nil)
	img := squareImage(geometry.Rect{X: 0.2, Y: 0.2, W: 0.25, H: 0.4})

	for i := 0; i < 500; i++ {
		e.Move(img, rng.Float64()*2000-1000, rng.Float64()*2000-1000)
		r := img.Rect
		if r.X < 0 || r.X > 1-r.W+eps || r.Y < 0 || r.Y > 1-r.H+eps {
			t.Fatalf("out of bounds after move %d: %+v", i, r)
		}
	}
}

func TestMoveVariants(t *testing.T) {
	e := New(1000, 500, nil)

	bg := scene.NewBackground(scene.Black)
	e.Move(bg, 100, 100)
	if bg.Rect != (geometry.Rect{W: 1, H: 1}) {
		t.Errorf("background moved: %+v", bg.Rect)
	}

	txt := scene.NewText("off", 20, geometry.Rect{X: 0.9, Y: 0.9, W: 0.2, H: 0.1})
	e.Move(txt, 200, 100)
	if !near(txt.Rect.X, 1.1) || !near(txt.Rect.Y, 1.1) {
		t.Errorf("text should move freely: %+v", txt.Rect)
	}
}

func TestSlideshowDelegation(t *testing.T) {
	g := &fakeGroup{}
	e := New(1920, 1080, g)
	a := squareImage(geometry.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.2})
	b := squareImage(geometry.Rect{X: 0.5, Y: 0.1, W: 0.2, H: 0.2})
	a.Slideshow, b.Slideshow = true, true
	before := a.Rect

	e.Move(a, 96, 54)
	if len(g.moves) != 1 || !near(g.moves[0][0], 0.05) || !near(g.moves[0][1], 0.05) {
		t.Fatalf("group move = %v", g.moves)
	}
	if a.Rect != before {
		t.Error("slideshow member must not move itself")
	}

	if !e.Resize(a, geometry.HandleBottomRight, 50, 10) {
		t.Fatal("group scale reported as rejected")
	}
	if len(g.scales) != 1 || !near(g.scales[0], 1.1) {
		t.Errorf("group scale = %v", g.scales)
	}
	e.Resize(a, geometry.HandleLeft, 50, 0)
	if !near(g.scales[1], 0.9) {
		t.Errorf("dragging the left edge inwards should shrink, got %v", g.scales[1])
	}

	e.Select(a)
	e.Toggle(b)
	e.MoveSelection(10, 0)
	if len(g.moves) != 2 {
		t.Errorf("group should move once per selection move, moves = %d", len(g.moves))
	}
}

func TestHitTestAndGesture(t *testing.T) {
	s := scene.New()
	s.Add(scene.NewBackground(scene.Black))
	low := squareImage(geometry.Rect{X: 0.1, Y: 0.1, W: 0.3, H: 0.3})
	high := scene.NewText("top", 24, geometry.Rect{X: 0.2, Y: 0.2, W: 0.3, H: 0.1})
	s.Add(low)
	s.Add(high)

	e := New(1000, 1000, nil)

	if o, _ := e.HitTest(s, geometry.Point{X: 250, Y: 250}); o != high {
		t.Errorf("topmost object should win, got %v", o)
	}
	if o, _ := e.HitTest(s, geometry.Point{X: 900, Y: 900}); o != nil {
		t.Errorf("background must not be hit, got %v", o)
	}

	g := e.Begin(s, geometry.Point{X: 150, Y: 150})
	if g == nil || g.Target != low || g.Handle != geometry.HandleNone {
		t.Fatalf("unexpected gesture %+v", g)
	}
	if e.Primary() != low {
		t.Error("pressing an object should select it")
	}
	e.Drag(g, geometry.Point{X: 250, Y: 200})
	if !near(low.Rect.X, 0.2) || !near(low.Rect.Y, 0.15) {
		t.Errorf("drag moved to %+v", low.Rect)
	}
	if g.Origins[0].Rect.X != 0.1 {
		t.Error("origin should record the pre-drag geometry")
	}

	// bottom-right handle of the selected image
	g = e.Begin(s, geometry.Point{X: 500, Y: 450})
	if g == nil || g.Handle != geometry.HandleBottomRight {
		t.Fatalf("expected handle hit, got %+v", g)
	}

	if g := e.Begin(s, geometry.Point{X: 950, Y: 950}); g != nil || e.Primary() != nil {
		t.Error("pressing empty canvas should clear the selection")
	}
}

func TestMarquee(t *testing.T) {
	s := scene.New()
	t1 := scene.NewText("a", 20, geometry.Rect{X: 0.1, Y: 0.1, W: 0.1, H: 0.05})
	t2 := scene.NewText("b", 20, geometry.Rect{X: 0.6, Y: 0.6, W: 0.1, H: 0.05})
	img := squareImage(geometry.Rect{X: 0.1, Y: 0.2, W: 0.1, H: 0.1})
	s.Add(t1)
	s.Add(t2)
	s.Add(img)

	e := New(1000, 1000, nil)
	e.BeginMarquee(MarqueeText, geometry.Point{X: 400, Y: 400})
	e.UpdateMarquee(geometry.Point{X: 50, Y: 50})
	m, ok := e.ActiveMarquee()
	if !ok || m.Rect().W != 350 {
		t.Fatalf("marquee = %+v", m.Rect())
	}

	sel := e.EndMarquee(s)
	if len(sel) != 1 || sel[0] != t1 {
		t.Errorf("text marquee selected %v", sel)
	}
	if _, ok := e.ActiveMarquee(); ok {
		t.Error("marquee should end")
	}

	e.BeginMarquee(MarqueeMedia, geometry.Point{X: 0, Y: 0})
	e.UpdateMarquee(geometry.Point{X: 1000, Y: 1000})
	sel = e.EndMarquee(s)
	if len(sel) != 1 || sel[0] != img {
		t.Errorf("media marquee selected %v", sel)
	}
}
