package scene

import (
	"image"

	"github.com/google/uuid"

	"github.com/ivlev/audiocanvas/internal/geometry"
)

// Kind discriminates the placed-object variants.
type Kind string

const (
	KindBackground          Kind = "background"
	KindWorkspaceBackground Kind = "workspace-background"
	KindImage               Kind = "image"
	KindVideo               Kind = "video"
	KindText                Kind = "text"
)

// DefaultAspect is used when the intrinsic media aspect ratio is unknown.
const DefaultAspect = 16.0 / 9.0

// Object is a placed object. The set of implementations is closed:
// *Background, *WorkspaceBackground, *Image, *Video and *Text.
type Object interface {
	Base() *Placement
	Kind() Kind
	Clone() Object
	isObject()
}

// Placement is the state shared by every variant. Opacity is 0..100.
type Placement struct {
	ID        string        `yaml:"id"`
	Rect      geometry.Rect `yaml:",inline"`
	Rotation  float64       `yaml:"rotation,omitempty"`
	Opacity   float64       `yaml:"opacity"`
	Slideshow bool          `yaml:"slideshow,omitempty"`
	Hidden    bool          `yaml:"hidden,omitempty"`
}

func newPlacement(r geometry.Rect) Placement {
	return Placement{ID: uuid.NewString(), Rect: r, Opacity: 100}
}

// Alpha returns Opacity as a 0..1 factor.
func (p *Placement) Alpha() float64 {
	a := p.Opacity / 100
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Background fills the whole canvas with a color and optional bitmap.
type Background struct {
	Placement
	Color  Color
	Source string
	Bitmap image.Image
}

// WorkspaceBackground fills the area outside the active preset's workspace.
type WorkspaceBackground struct {
	Placement
	Color Color
}

// Image is a decoded still image. Bitmap is never persisted; it is reconstructed from Source on load.
type Image struct {
	Placement
	Source string
	Bitmap image.Image
}

// Video is a video clip. Only the poster frame is drawn; Width/Height are the intrinsic dimensions.
type Video struct {
	Placement
	Source string
	Width  int
	Height int
	Poster image.Image
}

// Text is a text label. Its rectangle width drives the font size during resizes.
type Text struct {
	Placement
	Content   string
	FontSize  float64
	Color     Color
	Animation Fade
}

// NewBackground creates a full-canvas background.
func NewBackground(c Color) *Background {
	return &Background{Placement: newPlacement(geometry.Rect{W: 1, H: 1}), Color: c}
}

// NewWorkspaceBackground creates the outside-of-workspace fill.
func NewWorkspaceBackground(c Color) *WorkspaceBackground {
	return &WorkspaceBackground{Placement: newPlacement(geometry.Rect{W: 1, H: 1}), Color: c}
}

// NewImage creates an image object at r.
func NewImage(source string, bitmap image.Image, r geometry.Rect) *Image {
	return &Image{Placement: newPlacement(r), Source: source, Bitmap: bitmap}
}

// NewVideo creates a video object at r.
func NewVideo(source string, width, height int, r geometry.Rect) *Video {
	return &Video{Placement: newPlacement(r), Source: source, Width: width, Height: height}
}

// NewText creates a text object at r.
func NewText(content string, fontSize float64, r geometry.Rect) *Text {
	return &Text{Placement: newPlacement(r), Content: content, FontSize: fontSize, Color: White}
}

func (o *Background) Base() *Placement          { return &o.Placement }
func (o *WorkspaceBackground) Base() *Placement { return &o.Placement }
func (o *Image) Base() *Placement               { return &o.Placement }
func (o *Video) Base() *Placement               { return &o.Placement }
func (o *Text) Base() *Placement                { return &o.Placement }

func (o *Background) Kind() Kind          { return KindBackground }
func (o *WorkspaceBackground) Kind() Kind { return KindWorkspaceBackground }
func (o *Image) Kind() Kind               { return KindImage }
func (o *Video) Kind() Kind               { return KindVideo }
func (o *Text) Kind() Kind                { return KindText }

func (o *Background) Clone() Object          { c := *o; return &c }
func (o *WorkspaceBackground) Clone() Object { c := *o; return &c }
func (o *Image) Clone() Object               { c := *o; return &c }
func (o *Video) Clone() Object               { c := *o; return &c }
func (o *Text) Clone() Object                { c := *o; return &c }

func (*Background) isObject()          {}
func (*WorkspaceBackground) isObject() {}
func (*Image) isObject()               {}
func (*Video) isObject()               {}
func (*Text) isObject()                {}

// AspectRatio returns the intrinsic width/height ratio of the bitmap, or DefaultAspect.
func (o *Image) AspectRatio() float64 {
	if o.Bitmap != nil {
		b := o.Bitmap.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 {
			return float64(b.Dx()) / float64(b.Dy())
		}
	}
	return DefaultAspect
}

// AspectRatio returns the intrinsic width/height ratio of the clip, or DefaultAspect.
func (o *Video) AspectRatio() float64 {
	if o.Width > 0 && o.Height > 0 {
		return float64(o.Width) / float64(o.Height)
	}
	if o.Poster != nil {
		b := o.Poster.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 {
			return float64(b.Dx()) / float64(b.Dy())
		}
	}
	return DefaultAspect
}

// IsBackground reports whether the object is exempt from translation and scaling.
func IsBackground(o Object) bool {
	switch o.(type) {
	case *Background, *WorkspaceBackground:
		return true
	}
	return false
}

// MediaAspect returns the intrinsic aspect of image and video objects.
func MediaAspect(o Object) (float64, bool) {
	switch v := o.(type) {
	case *Image:
		return v.AspectRatio(), true
	case *Video:
		return v.AspectRatio(), true
	}
	return 0, false
}

// assign copies the value of src into dst when both are the same variant.
func assign(dst, src Object) bool {
	switch d := dst.(type) {
	case *Background:
		if s, ok := src.(*Background); ok {
			*d = *s
			return true
		}
	case *WorkspaceBackground:
		if s, ok := src.(*WorkspaceBackground); ok {
			*d = *s
			return true
		}
	case *Image:
		if s, ok := src.(*Image); ok {
			*d = *s
			return true
		}
	case *Video:
		if s, ok := src.(*Video); ok {
			*d = *s
			return true
		}
	case *Text:
		if s, ok := src.(*Text); ok {
			*d = *s
			return true
		}
	}
	return false
}
