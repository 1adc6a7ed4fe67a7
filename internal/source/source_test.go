package source

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceFolder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 40, 20)
	writePNG(t, filepath.Join(dir, "a.png"), 10, 30)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644)

	src, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", src.PageCount())
	}
	w, h, err := src.PageSize(0)
	if err != nil || w != 10 || h != 30 {
		t.Errorf("first page should be a.png 10x30, got %vx%v (%v)", w, h, err)
	}
	img, err := src.RenderPage(1, 150)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("rendered width = %d", img.Bounds().Dx())
	}
}

func TestImageSourceSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "only.png")
	writePNG(t, path, 8, 8)

	src, err := NewImageSource(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.PageCount() != 1 || src.Path(0) != path {
		t.Errorf("unexpected pages: %d %s", src.PageCount(), src.Path(0))
	}

	txt := filepath.Join(dir, "x.txt")
	os.WriteFile(txt, []byte("x"), 0644)
	if _, err := NewImageSource(txt); err == nil {
		t.Error("Expected error for unsupported file")
	}
}

func TestIsImage(t *testing.T) {
	tests := map[string]bool{
		"a.PNG":  true,
		"b.jpeg": true,
		"c.webp": true,
		"d.bmp":  true,
		"e.pdf":  false,
		"f":      false,
	}
	for name, want := range tests {
		if got := IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}
