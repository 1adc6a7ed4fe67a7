package scene

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/audiocanvas/internal/geometry"
)

func TestFadeFactor(t *testing.T) {
	f := Fade{Enabled: true, Start: 1, FadeIn: 1, Hold: 2, FadeOut: 1, Easing: "linear"}

	tests := []struct {
		time float64
		want float64
	}{
		{0.0, 0},
		{1.0, 0},
		{1.5, 0.5},
		{2.0, 1},
		{3.5, 1},
		{4.5, 0.5},
		{5.0, 0},
		{9.0, 0},
	}
	for _, tt := range tests {
		if got := f.Factor(tt.time); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Factor(%.1f) = %f, want %f", tt.time, got, tt.want)
		}
	}

	if got := (Fade{}).Factor(3); got != 1 {
		t.Errorf("disabled fade should be 1, got %f", got)
	}
	if got := (Fade{Enabled: true, FadeIn: 1}).Factor(10); got != 1 {
		t.Errorf("fade without fade-out should stay visible, got %f", got)
	}
}

func TestEasedFadeIsMonotonic(t *testing.T) {
	f := Fade{Enabled: true, FadeIn: 2}
	prev := -1.0
	for i := 0; i <= 20; i++ {
		v := f.Factor(float64(i) * 0.1)
		if v < prev {
			t.Fatalf("fade-in not monotonic at step %d: %f < %f", i, v, prev)
		}
		prev = v
	}
}

func TestMoveLayer(t *testing.T) {
	s := New()
	a := NewText("a", 20, geometry.Rect{})
	b := NewText("b", 20, geometry.Rect{})
	c := NewText("c", 20, geometry.Rect{})
	s.Add(a)
	s.Add(b)
	s.Add(c)

	if !s.MoveLayer(0, 2) {
		t.Fatal("MoveLayer(0,2) rejected")
	}
	if s.At(0) != b || s.At(1) != c || s.At(2) != a {
		t.Errorf("unexpected order after move")
	}

	for _, idx := range [][2]int{{-1, 0}, {0, 3}, {5, 1}} {
		if s.MoveLayer(idx[0], idx[1]) {
			t.Errorf("MoveLayer(%d,%d) should be rejected", idx[0], idx[1])
		}
	}
}

func TestRestoreKeepsIdentity(t *testing.T) {
	s := New()
	img := NewImage("a.png", nil, geometry.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.2})
	txt := NewText("hello", 32, geometry.Rect{X: 0.5, Y: 0.5, W: 0.2, H: 0.1})
	s.Add(img)
	s.Add(txt)

	snap := s.Snapshot()
	img.Rect.X = 0.7
	txt.Content = "changed"
	s.Remove(txt.ID)

	s.Restore(snap)
	if s.Len() != 2 {
		t.Fatalf("expected 2 objects, got %d", s.Len())
	}
	if s.At(0) != img {
		t.Error("image identity lost")
	}
	if img.Rect.X != 0.1 {
		t.Errorf("image not restored: %v", img.Rect)
	}
	restored := s.At(1).(*Text)
	if restored.Content != "hello" {
		t.Errorf("text not restored: %q", restored.Content)
	}
}

func TestAspectFallback(t *testing.T) {
	img := NewImage("x", nil, geometry.Rect{})
	if img.AspectRatio() != DefaultAspect {
		t.Errorf("expected default aspect, got %f", img.AspectRatio())
	}
	img.Bitmap = image.NewRGBA(image.Rect(0, 0, 400, 100))
	if img.AspectRatio() != 4 {
		t.Errorf("expected 4, got %f", img.AspectRatio())
	}
	v := NewVideo("clip.mp4", 1080, 1920, geometry.Rect{})
	if math.Abs(v.AspectRatio()-0.5625) > 1e-9 {
		t.Errorf("unexpected video aspect %f", v.AspectRatio())
	}
}

type stubAssets struct{}

func (stubAssets) LoadImage(string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 3)), nil
}

func (stubAssets) LoadPoster(string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 16, 9)), nil
}

func TestSceneFileRoundTrip(t *testing.T) {
	s := New()
	s.Add(NewBackground(Color{R: 10, G: 20, B: 30, A: 255}))
	s.Add(NewImage("photo.png", nil, geometry.Rect{X: 0.1, Y: 0.2, W: 0.3, H: 0.4}))
	txt := NewText("Hallo", 48, geometry.Rect{X: 0.2, Y: 0.8, W: 0.5, H: 0.1})
	txt.Animation = Fade{Enabled: true, FadeIn: 1, FadeOut: 1, Hold: 3}
	s.Add(txt)

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := WriteFile(Encode(s, 1920, 1080, "16:9"), path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if doc.Width != 1920 || doc.Preset != "16:9" {
		t.Errorf("header mismatch: %+v", doc)
	}

	loaded, errs := Decode(doc, stubAssets{})
	if len(errs) != 0 {
		t.Fatalf("Decode errors: %v", errs)
	}
	if loaded.Len() != 3 {
		t.Fatalf("expected 3 objects, got %d", loaded.Len())
	}
	bg := loaded.At(0).(*Background)
	if bg.Color.G != 20 {
		t.Errorf("background color lost: %v", bg.Color)
	}
	im := loaded.At(1).(*Image)
	if im.Rect.W != 0.3 || im.Bitmap == nil {
		t.Errorf("image not reconstructed: %+v", im.Placement)
	}
	lt := loaded.At(2).(*Text)
	if lt.Content != "Hallo" || !lt.Animation.Enabled || lt.ID != txt.ID {
		t.Errorf("text mismatch: %+v", lt)
	}
}

func TestDecodeHandWrittenFile(t *testing.T) {
	data := `
version: "1.0"
width: 1920
height: 1080
objects:
  - type: text
    text: A
    font_size: 32
    rel_x: 0.1
    rel_y: 0.1
    rel_width: 0.3
    rel_height: 0.1
  - type: text
    text: B
    font_size: 32
    rel_x: 0.1
    rel_y: 0.5
    rel_width: 0.3
    rel_height: 0.1
  - type: image
    id: logo
    source: logo.png
    opacity: 0
    rel_width: 0.2
    rel_height: 0.2
  - type: image
    id: logo
    source: copy.png
    rel_width: 0.2
    rel_height: 0.2
`
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	s, errs := Decode(doc, nil)
	if len(errs) != 0 || s.Len() != 4 {
		t.Fatalf("decoded %d objects, errors %v", s.Len(), errs)
	}

	ids := map[string]bool{}
	for _, o := range s.Objects() {
		id := o.Base().ID
		if id == "" || ids[id] {
			t.Errorf("id %q is empty or repeated", id)
		}
		ids[id] = true
	}
	if s.At(2).Base().ID != "logo" {
		t.Errorf("first explicit id replaced: %q", s.At(2).Base().ID)
	}

	tests := []struct {
		index int
		want  float64
	}{
		{0, 100},
		{1, 100},
		{2, 0},
		{3, 100},
	}
	for _, tt := range tests {
		if got := s.At(tt.index).Base().Opacity; got != tt.want {
			t.Errorf("object %d opacity = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		err  bool
	}{
		{"#fff", Color{255, 255, 255, 255}, false},
		{"#00ff80", Color{0, 255, 128, 255}, false},
		{"#11223344", Color{0x11, 0x22, 0x33, 0x44}, false},
		{"nope", Color{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseColor(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.err && got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
