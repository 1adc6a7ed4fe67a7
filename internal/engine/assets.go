package engine

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/system"
	"github.com/ivlev/audiocanvas/internal/video"
)

// Assets resolves object sources relative to Dir and decodes them.
type Assets struct {
	Dir string
	// Poster grabs a frame of a video; nil uses ffmpeg.
	Poster func(path string, at float64) (image.Image, error)
}

func (a Assets) resolve(source string) string {
	if filepath.IsAbs(source) || a.Dir == "" {
		return source
	}
	return filepath.Join(a.Dir, source)
}

func (a Assets) LoadImage(source string) (image.Image, error) {
	f, err := os.Open(a.resolve(source))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать %s: %w", source, err)
	}
	return img, nil
}

func (a Assets) LoadPoster(source string) (image.Image, error) {
	poster := a.Poster
	if poster == nil {
		poster = video.Poster
	}
	return poster(a.resolve(source), 0)
}

// mediaRect places media of the given aspect at 40% of the canvas width, centred.
func mediaRect(aspect, canvasW, canvasH float64) geometry.Rect {
	w := 0.4 * canvasW
	h := w / aspect
	if h > canvasH {
		h = canvasH
		w = h * aspect
	}
	return geometry.FromPixels(geometry.PixelRect{X: (canvasW - w) / 2, Y: (canvasH - h) / 2, W: w, H: h}, canvasW, canvasH)
}

// AddImage decodes an image file and places it on top.
func (s *Session) AddImage(a Assets, path string) (*scene.Image, error) {
	bmp, err := a.LoadImage(path)
	if err != nil {
		return nil, err
	}
	b := bmp.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("пустое изображение: %s", path)
	}
	cw, ch := s.Interaction.CanvasSize()
	img := scene.NewImage(path, bmp, mediaRect(float64(b.Dx())/float64(b.Dy()), cw, ch))
	return img, s.Add(img)
}

// AddVideo probes a clip for its size and places its poster frame on top.
func (s *Session) AddVideo(a Assets, path string) (*scene.Video, error) {
	info, err := system.ProbeMedia(a.resolve(path))
	if err != nil {
		return nil, err
	}
	if !info.HasVideo || info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("нет видеопотока: %s", path)
	}
	cw, ch := s.Interaction.CanvasSize()
	v := scene.NewVideo(path, info.Width, info.Height, mediaRect(float64(info.Width)/float64(info.Height), cw, ch))
	if v.Poster, err = a.LoadPoster(path); err != nil {
		log.Printf("[!] Постер для %s не получен: %v", path, err)
	}
	return v, s.Add(v)
}

// Save writes the scene as YAML. Pixel data is not stored; sources are reloaded on open.
func (s *Session) Save(path string) error {
	w, h := s.Interaction.CanvasSize()
	return scene.WriteFile(scene.Encode(s.Scene, int(w), int(h), s.Preset), path)
}

// LoadScene reads a scene file and reloads its assets relative to the file. Asset
// failures are logged and leave the objects without pixels.
func LoadScene(path string, a Assets) (*scene.Scene, *scene.Document, error) {
	doc, err := scene.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения сцены: %w", err)
	}
	if a.Dir == "" {
		a.Dir = filepath.Dir(path)
	}
	s, errs := scene.Decode(doc, a)
	for _, e := range errs {
		log.Printf("[!] %s: %v", filepath.Base(path), e)
	}
	return s, doc, nil
}

// OpenSession loads a scene file into a new session sized as the file says.
func OpenSession(path string, a Assets) (*Session, error) {
	s, doc, err := LoadScene(path, a)
	if err != nil {
		return nil, err
	}
	w, h := doc.Width, doc.Height
	if w <= 0 || h <= 0 {
		w, h = 1920, 1080
	}
	sess := NewSession(s, w, h, nil)
	if doc.Preset != "" {
		if err := sess.SetPreset(doc.Preset); err != nil {
			log.Printf("[!] %v", err)
		}
	}
	return sess, nil
}
