package engine

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/history"
	"github.com/ivlev/audiocanvas/internal/renderer"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// newTestSession builds a 200x100 session with a background, a square image at
// pixels (20,10,40,40) and a text at (120,10,40,20). Every history entry gets its
// own second so nothing merges.
func newTestSession(t *testing.T) (*Session, *scene.Image, *scene.Text) {
	t.Helper()
	s := scene.New()
	s.Add(scene.NewBackground(scene.Color{R: 200, A: 255}))
	img := scene.NewImage("square.png", solidImage(10, 10, color.RGBA{G: 255, A: 255}), geometry.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.4})
	s.Add(img)
	txt := scene.NewText("hello", 16, geometry.Rect{X: 0.6, Y: 0.1, W: 0.2, H: 0.2})
	s.Add(txt)

	sess := NewSession(s, 200, 100, nil)
	clock := time.Unix(1700000000, 0)
	sess.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return sess, img, txt
}

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func TestDragRecordsOneEntry(t *testing.T) {
	sess, img, _ := newTestSession(t)

	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerMove(pt(50, 30))
	sess.PointerUp(pt(60, 40))

	if !near(img.Rect.X, 0.2) || !near(img.Rect.Y, 0.2) {
		t.Fatalf("image at %+v, want (0.2, 0.2)", img.Rect)
	}
	if sess.History.Len() != 1 {
		t.Fatalf("history has %d entries, want 1: %v", sess.History.Len(), sess.History.Names())
	}
	if err := sess.Shortcut("undo"); err != nil {
		t.Fatal(err)
	}
	if !near(img.Rect.X, 0.1) || !near(img.Rect.Y, 0.1) {
		t.Errorf("undo left image at %+v", img.Rect)
	}
	if err := sess.Shortcut("redo"); err != nil {
		t.Fatal(err)
	}
	if !near(img.Rect.X, 0.2) {
		t.Errorf("redo left image at %+v", img.Rect)
	}
}

func TestClickWithoutMoveRecordsNothing(t *testing.T) {
	sess, img, _ := newTestSession(t)
	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerUp(pt(40, 30))

	if sess.History.Len() != 0 {
		t.Errorf("history = %v", sess.History.Names())
	}
	if sess.Interaction.Primary() != scene.Object(img) {
		t.Errorf("press should select the image")
	}
}

func TestHandleResizeAndUndo(t *testing.T) {
	sess, img, _ := newTestSession(t)
	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerUp(pt(40, 30))

	// bottom-right handle of the selected image
	sess.PointerDown(pt(60, 50), Modifiers{})
	sess.PointerUp(pt(80, 70))

	want := geometry.Rect{X: 0.1, Y: 0.1, W: 0.3, H: 0.6}
	r := img.Rect
	if !near(r.X, want.X) || !near(r.Y, want.Y) || !near(r.W, want.W) || !near(r.H, want.H) {
		t.Fatalf("resized to %+v, want %+v", r, want)
	}
	if sess.History.Len() != 1 {
		t.Fatalf("history = %v", sess.History.Names())
	}
	sess.Shortcut("undo")
	if !near(img.Rect.W, 0.2) || !near(img.Rect.H, 0.4) {
		t.Errorf("undo left %+v", img.Rect)
	}
}

func TestRejectedResizeRecordsNothing(t *testing.T) {
	sess, img, _ := newTestSession(t)
	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerUp(pt(40, 30))

	// shrinking to 15px is below the minimum
	sess.PointerDown(pt(60, 50), Modifiers{})
	sess.PointerUp(pt(35, 50))

	if !near(img.Rect.W, 0.2) {
		t.Errorf("rejected resize changed %+v", img.Rect)
	}
	if sess.History.Len() != 0 {
		t.Errorf("history = %v", sess.History.Names())
	}
}

func TestMultiSelectMoveIsOneEntry(t *testing.T) {
	sess, img, txt := newTestSession(t)
	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerUp(pt(40, 30))
	sess.PointerDown(pt(140, 20), Modifiers{Shift: true})
	sess.PointerUp(pt(140, 20))

	if n := len(sess.Interaction.Selected()); n != 2 {
		t.Fatalf("selected %d objects, want 2", n)
	}

	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerUp(pt(50, 30))

	if !near(img.Rect.X, 0.15) || !near(txt.Rect.X, 0.65) {
		t.Fatalf("moved to image %.3f, text %.3f", img.Rect.X, txt.Rect.X)
	}
	if sess.History.Len() != 1 {
		t.Fatalf("history = %v", sess.History.Names())
	}
	sess.Shortcut("undo")
	if !near(img.Rect.X, 0.1) || !near(txt.Rect.X, 0.6) {
		t.Errorf("undo left image %.3f, text %.3f", img.Rect.X, txt.Rect.X)
	}
}

func TestMarqueeSelection(t *testing.T) {
	tests := []struct {
		name string
		mod  Modifiers
		want string
	}{
		{"text", Modifiers{}, "text"},
		{"media", Modifiers{Alt: true}, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, img, txt := newTestSession(t)
			sess.PointerDown(pt(5, 95), tt.mod)
			sess.PointerMove(pt(100, 60))
			if _, ok := sess.Interaction.ActiveMarquee(); !ok {
				t.Fatal("marquee not active")
			}
			sess.PointerUp(pt(190, 25))

			sel := sess.Interaction.Selected()
			if len(sel) != 1 {
				t.Fatalf("selected %d objects", len(sel))
			}
			want := scene.Object(txt)
			if tt.want == "image" {
				want = img
			}
			if sel[0] != want {
				t.Errorf("selected %s, want %s", sel[0].Kind(), want.Kind())
			}
			if _, ok := sess.Interaction.ActiveMarquee(); ok {
				t.Error("marquee still active")
			}
		})
	}
}

func TestShortcuts(t *testing.T) {
	sess, img, txt := newTestSession(t)

	if err := sess.Shortcut("undo"); !errors.Is(err, history.ErrNothingToUndo) {
		t.Errorf("undo on empty history = %v", err)
	}
	if err := sess.Shortcut("select-all"); err != nil {
		t.Fatal(err)
	}
	if n := len(sess.Interaction.Selected()); n != 2 {
		t.Fatalf("select-all picked %d, want 2", n)
	}

	sess.Shortcut("nudge-right")
	sess.Shortcut("nudge-down")
	if !near(img.Rect.X, 0.1+1.0/200) || !near(txt.Rect.Y, 0.1+1.0/100) {
		t.Errorf("nudge: image %+v text %+v", img.Rect, txt.Rect)
	}
	if sess.History.Len() != 2 {
		t.Errorf("history = %v", sess.History.Names())
	}

	if err := sess.Shortcut("delete"); err != nil {
		t.Fatal(err)
	}
	if sess.Scene.Len() != 1 || len(sess.Interaction.Selected()) != 0 {
		t.Fatalf("after delete: %d objects, %d selected", sess.Scene.Len(), len(sess.Interaction.Selected()))
	}
	sess.Shortcut("undo")
	if sess.Scene.Len() != 3 || sess.Scene.IndexOf(img.ID) != 1 || sess.Scene.IndexOf(txt.ID) != 2 {
		t.Errorf("undo delete restored %d objects, image at %d", sess.Scene.Len(), sess.Scene.IndexOf(img.ID))
	}

	grid := sess.Renderer.Grid.Enabled
	sess.Shortcut("toggle-grid")
	if sess.Renderer.Grid.Enabled == grid {
		t.Error("toggle-grid did nothing")
	}
	if err := sess.Shortcut("explode"); err == nil {
		t.Error("unknown shortcut accepted")
	}
}

func TestDeleteKeepsBackground(t *testing.T) {
	sess, _, _ := newTestSession(t)
	bg := sess.Scene.At(0)
	sess.Interaction.Select(bg)
	if err := sess.DeleteSelection(); err != nil {
		t.Fatal(err)
	}
	if sess.Scene.Len() != 3 || sess.History.Len() != 0 {
		t.Errorf("background deleted: %d objects, history %v", sess.Scene.Len(), sess.History.Names())
	}
}

func TestReorder(t *testing.T) {
	sess, img, _ := newTestSession(t)
	for _, c := range [][2]int{{-1, 1}, {1, 3}, {1, 1}, {5, 0}} {
		if sess.Reorder(c[0], c[1]) {
			t.Errorf("Reorder(%d, %d) accepted", c[0], c[1])
		}
	}
	if sess.History.Len() != 0 {
		t.Fatalf("rejected reorders recorded: %v", sess.History.Names())
	}

	if !sess.Reorder(1, 2) {
		t.Fatal("Reorder(1, 2) rejected")
	}
	if sess.Scene.IndexOf(img.ID) != 2 {
		t.Errorf("image at layer %d, want 2", sess.Scene.IndexOf(img.ID))
	}
	sess.Shortcut("undo")
	if sess.Scene.IndexOf(img.ID) != 1 {
		t.Errorf("undo left image at layer %d", sess.Scene.IndexOf(img.ID))
	}
}

func TestPropertyAndTextEdits(t *testing.T) {
	sess, img, txt := newTestSession(t)
	if err := sess.SetOpacity(img, 40); err != nil {
		t.Fatal(err)
	}
	if err := sess.EditText(txt, "hello world"); err != nil {
		t.Fatal(err)
	}
	if img.Opacity != 40 || txt.Content != "hello world" {
		t.Fatalf("opacity %v, content %q", img.Opacity, txt.Content)
	}
	sess.Shortcut("undo")
	sess.Shortcut("undo")
	if img.Opacity != 100 || txt.Content != "hello" {
		t.Errorf("undo left opacity %v, content %q", img.Opacity, txt.Content)
	}
}

func TestSetPreset(t *testing.T) {
	sess, img, _ := newTestSession(t)
	if err := sess.SetPreset("9:16"); err != nil {
		t.Fatal(err)
	}
	if sess.Canvas.Width() != 1080 || sess.Canvas.Height() != 1920 {
		t.Errorf("canvas %vx%v", sess.Canvas.Width(), sess.Canvas.Height())
	}
	if got := sess.Interaction.Bounds(img); !near(got.W, 0.2*1080) {
		t.Errorf("image width %v px after preset change", got.W)
	}
	if sess.Renderer.Workspace == nil || sess.Renderer.Workspace.Label() != "9:16 1080x1920" {
		t.Errorf("workspace = %+v", sess.Renderer.Workspace)
	}
	if err := sess.SetPreset("2:1"); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestDrawShowsSelection(t *testing.T) {
	sess, _, _ := newTestSession(t)
	plain := sess.Draw(renderer.Frame{})
	if got := plain.RGBAAt(100, 90); got.R != 200 {
		t.Fatalf("background pixel = %v", got)
	}
	before := plain.RGBAAt(20, 10)

	sess.PointerDown(pt(40, 30), Modifiers{})
	sess.PointerUp(pt(40, 30))
	selected := sess.Draw(renderer.Frame{})
	if selected.RGBAAt(20, 10) == before {
		t.Error("selection handle not drawn at the image corner")
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "logo.png"), solidImage(4, 4, color.RGBA{B: 255, A: 255}))

	s := scene.New()
	s.Add(scene.NewBackground(scene.Black))
	s.Add(scene.NewImage("logo.png", nil, geometry.Rect{X: 0.1, Y: 0.1, W: 0.3, H: 0.3}))
	s.Add(scene.NewVideo("clip.mp4", 640, 360, geometry.Rect{X: 0.5, Y: 0.5, W: 0.4, H: 0.225}))
	s.Add(scene.NewText("title", 32, geometry.Rect{X: 0.2, Y: 0.7, W: 0.5, H: 0.1}))

	sess := NewSession(s, 1920, 1080, nil)
	if err := sess.SetPreset("9:16"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scene.yaml")
	if err := sess.Save(path); err != nil {
		t.Fatal(err)
	}

	posters := 0
	assets := Assets{Poster: func(p string, at float64) (image.Image, error) {
		posters++
		if filepath.Base(p) != "clip.mp4" {
			t.Errorf("poster requested for %s", p)
		}
		return solidImage(16, 9, color.RGBA{R: 255, A: 255}), nil
	}}
	opened, err := OpenSession(path, assets)
	if err != nil {
		t.Fatal(err)
	}
	if opened.Preset != "9:16" || opened.Canvas.Width() != 1080 {
		t.Errorf("preset %q, width %v", opened.Preset, opened.Canvas.Width())
	}
	if opened.Scene.Len() != 4 {
		t.Fatalf("opened %d objects", opened.Scene.Len())
	}
	img, ok := opened.Scene.At(1).(*scene.Image)
	if !ok || img.Bitmap == nil || img.Bitmap.Bounds().Dx() != 4 {
		t.Errorf("image not reloaded: %+v", opened.Scene.At(1))
	}
	if v, ok := opened.Scene.At(2).(*scene.Video); !ok || v.Poster == nil || posters != 1 {
		t.Errorf("video poster not reloaded (%d calls)", posters)
	}
	if txt, ok := opened.Scene.At(3).(*scene.Text); !ok || txt.Content != "title" {
		t.Errorf("text = %+v", opened.Scene.At(3))
	}
}

func TestAddImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "wide.png"), solidImage(40, 20, color.RGBA{R: 255, A: 255}))

	sess, _, _ := newTestSession(t)
	img, err := sess.AddImage(Assets{Dir: dir}, "wide.png")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Scene.IndexOf(img.ID) != 3 {
		t.Errorf("image at layer %d", sess.Scene.IndexOf(img.ID))
	}
	p := sess.Interaction.Bounds(img)
	if !near(p.W, 80) || !near(p.H, 40) || !near(p.X, 60) || !near(p.Y, 30) {
		t.Errorf("placed at %+v", p)
	}
	sess.Shortcut("undo")
	if sess.Scene.IndexOf(img.ID) >= 0 {
		t.Error("undo kept the added image")
	}
	if _, err := sess.AddImage(Assets{Dir: dir}, "missing.png"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestOpenSceneWithoutIDs(t *testing.T) {
	data := `
width: 200
height: 100
objects:
  - type: text
    text: A
    font_size: 16
    rel_x: 0.1
    rel_y: 0.1
    rel_width: 0.3
    rel_height: 0.2
  - type: text
    text: B
    font_size: 16
    rel_x: 0.1
    rel_y: 0.6
    rel_width: 0.3
    rel_height: 0.2
`
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	sess, err := OpenSession(path, Assets{})
	if err != nil {
		t.Fatal(err)
	}
	a, b := sess.Scene.At(0).(*scene.Text), sess.Scene.At(1).(*scene.Text)

	sess.Interaction.Select(b)
	if sess.Interaction.IsSelected(a) {
		t.Error("selecting B also selects A")
	}
	if err := sess.DeleteSelection(); err != nil {
		t.Fatal(err)
	}
	if sess.Scene.Len() != 1 || sess.Scene.At(0) != scene.Object(a) {
		t.Errorf("delete removed the wrong object, left %+v", sess.Scene.Objects())
	}
	if a.Opacity != 100 {
		t.Errorf("opacity = %v, want 100", a.Opacity)
	}
}
