package canvas

import (
	"image"
	"image/color"
	"log"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	regularOnce sync.Once
	regularFont *opentype.Font
)

func loadRegular() *opentype.Font {
	regularOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			log.Printf("[!] Не удалось загрузить шрифт goregular: %v", err)
			return
		}
		regularFont = f
	})
	return regularFont
}

// faceCache keeps one face per integer pixel size.
type faceCache struct {
	faces map[int]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{faces: make(map[int]font.Face)}
}

func (fc *faceCache) face(size float64) font.Face {
	px := int(math.Round(size))
	if px < 1 {
		px = 1
	}
	if f, ok := fc.faces[px]; ok {
		return f
	}
	var face font.Face = basicfont.Face7x13
	if f := loadRegular(); f != nil {
		nf, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(px), DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			face = nf
		}
	}
	fc.faces[px] = face
	return face
}

// Text draws s with its top-left corner at (x, y).
func (c *Canvas) Text(s string, x, y, size float64, col color.Color) {
	if c.img == nil || s == "" {
		return
	}
	face := c.fonts.face(size)
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(int(math.Round(x)), int(math.Round(y))+face.Metrics().Ascent.Round()),
	}
	d.DrawString(s)
}

// MeasureText returns the pixel width and line height of s at the given size.
func (c *Canvas) MeasureText(s string, size float64) (float64, float64) {
	face := c.fonts.face(size)
	return float64(font.MeasureString(face, s).Round()), float64(face.Metrics().Height.Round())
}
