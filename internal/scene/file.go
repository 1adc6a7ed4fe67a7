package scene

import (
	"fmt"
	"image"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a scene
type Document struct {
	Version string      `yaml:"version"`
	Width   int         `yaml:"width"`
	Height  int         `yaml:"height"`
	Preset  string      `yaml:"preset,omitempty"`
	Objects []objectDoc `yaml:"objects"`
}

type objectDoc struct {
	Type      Kind `yaml:"type"`
	Placement `yaml:",inline"`
	Color     *Color `yaml:"color,omitempty"`
	Source    string `yaml:"source,omitempty"`
	Content   string `yaml:"text,omitempty"`
	FontSize  float64 `yaml:"font_size,omitempty"`
	Animation *Fade   `yaml:"animation,omitempty"`
	Width     int     `yaml:"width,omitempty"`
	Height    int     `yaml:"height,omitempty"`
}

// UnmarshalYAML defaults a missing opacity to fully opaque.
func (d *objectDoc) UnmarshalYAML(value *yaml.Node) error {
	type plain objectDoc
	p := plain{Placement: Placement{Opacity: 100}}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = objectDoc(p)
	return nil
}

// AssetLoader reconstructs decoded pixel sources when a scene is loaded.
type AssetLoader interface {
	LoadImage(source string) (image.Image, error)
	LoadPoster(source string) (image.Image, error)
}

// Encode builds a Document from the scene.
func Encode(s *Scene, width, height int, preset string) *Document {
	doc := &Document{Version: "1.0", Width: width, Height: height, Preset: preset}
	for _, o := range s.objects {
		d := objectDoc{Type: o.Kind(), Placement: *o.Base()}
		switch v := o.(type) {
		case *Background:
			c := v.Color
			d.Color, d.Source = &c, v.Source
		case *WorkspaceBackground:
			c := v.Color
			d.Color = &c
		case *Image:
			d.Source = v.Source
		case *Video:
			d.Source, d.Width, d.Height = v.Source, v.Width, v.Height
		case *Text:
			c, a := v.Color, v.Animation
			d.Content, d.FontSize, d.Color, d.Animation = v.Content, v.FontSize, &c, &a
		}
		doc.Objects = append(doc.Objects, d)
	}
	return doc
}

// Decode rebuilds a scene from a Document. Assets that fail to load are reported but leave the
// object in place without pixels.
func Decode(doc *Document, assets AssetLoader) (*Scene, []error) {
	s := New()
	var errs []error
	seen := make(map[string]bool, len(doc.Objects))
	for i, d := range doc.Objects {
		// hand-written files may omit or repeat ids
		if d.ID == "" || seen[d.ID] {
			d.ID = uuid.NewString()
		}
		seen[d.ID] = true
		var color Color
		if d.Color != nil {
			color = *d.Color
		}
		switch d.Type {
		case KindBackground:
			o := &Background{Placement: d.Placement, Color: color, Source: d.Source}
			if d.Source != "" && assets != nil {
				img, err := assets.LoadImage(d.Source)
				if err != nil {
					errs = append(errs, fmt.Errorf("object %d: %w", i, err))
				}
				o.Bitmap = img
			}
			s.Add(o)
		case KindWorkspaceBackground:
			s.Add(&WorkspaceBackground{Placement: d.Placement, Color: color})
		case KindImage:
			o := &Image{Placement: d.Placement, Source: d.Source}
			if assets != nil {
				img, err := assets.LoadImage(d.Source)
				if err != nil {
					errs = append(errs, fmt.Errorf("object %d: %w", i, err))
				}
				o.Bitmap = img
			}
			s.Add(o)
		case KindVideo:
			o := &Video{Placement: d.Placement, Source: d.Source, Width: d.Width, Height: d.Height}
			if assets != nil {
				img, err := assets.LoadPoster(d.Source)
				if err != nil {
					errs = append(errs, fmt.Errorf("object %d: %w", i, err))
				}
				o.Poster = img
			}
			s.Add(o)
		case KindText:
			o := &Text{Placement: d.Placement, Content: d.Content, FontSize: d.FontSize, Color: White}
			if d.Color != nil {
				o.Color = color
			}
			if d.Animation != nil {
				o.Animation = *d.Animation
			}
			s.Add(o)
		default:
			errs = append(errs, fmt.Errorf("object %d: unknown type %q", i, d.Type))
		}
	}
	return s, errs
}

// WriteFile writes a scene document to a YAML file
func WriteFile(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a scene document from a YAML file
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}
