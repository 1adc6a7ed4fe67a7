package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ivlev/audiocanvas/internal/audio"
	"github.com/ivlev/audiocanvas/internal/config"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/slideshow"
	"github.com/ivlev/audiocanvas/internal/video"
)

// captureSink keeps one sample pixel of every frame.
type captureSink struct {
	opts    video.Options
	sample  image.Point
	pixels  []color.RGBA
	failAt  int
	closed  int
	badSize bool
}

func (s *captureSink) WriteFrame(img *image.RGBA) error {
	if img.Bounds().Dx() != s.opts.Width || img.Bounds().Dy() != s.opts.Height {
		s.badSize = true
	}
	if s.failAt > 0 && len(s.pixels)+1 == s.failAt {
		return errors.New("disk full")
	}
	s.pixels = append(s.pixels, img.RGBAAt(s.sample.X, s.sample.Y))
	return nil
}

func (s *captureSink) Close() error {
	s.closed++
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Preset = ""
	cfg.Width, cfg.Height = 64, 36
	cfg.FPS = 2
	cfg.VideoEncoder = "libx264"
	cfg.OutputVideo = "out.mp4"
	cfg.Layers.Visualizer = false
	return cfg
}

func withSink(p *Project, sink *captureSink) {
	p.StartSink = func(o video.Options) (Sink, error) {
		sink.opts = o
		return sink, nil
	}
}

func TestProjectSlideshowTimeline(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	s := scene.New()
	var slides []*scene.Image
	for _, c := range []color.RGBA{red, green, blue} {
		img := scene.NewImage("page", solidImage(8, 8, c), geometry.Rect{W: 1, H: 1})
		slides = append(slides, img)
		s.Add(img)
	}
	group, err := slideshow.New(slides, []float64{1, 1, 1}, 0)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Duration = 3
	sink := &captureSink{sample: image.Pt(32, 10)}
	p := &Project{Config: cfg, Scene: s, Group: group}
	withSink(p, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// frames at 0, 0.5 ... 2.5s; at the boundaries the later page is on top
	want := []color.RGBA{red, red, green, green, blue, blue}
	if len(sink.pixels) != len(want) {
		t.Fatalf("recorded %d frames, want %d", len(sink.pixels), len(want))
	}
	for i := range want {
		if sink.pixels[i] != want[i] {
			t.Errorf("frame %d: pixel %v, want %v", i, sink.pixels[i], want[i])
		}
	}
	if sink.closed != 1 || sink.badSize {
		t.Errorf("sink closed %d times, bad size %v", sink.closed, sink.badSize)
	}
	if sink.opts.FPS != 2 || sink.opts.Width != 64 || sink.opts.Encoder != "libx264" || sink.opts.Path != "out.mp4" {
		t.Errorf("recording options = %+v", sink.opts)
	}
}

func TestProjectBackgroundAndHiddenMedia(t *testing.T) {
	s := scene.New()
	s.Add(scene.NewBackground(scene.Color{R: 10, G: 20, B: 30, A: 255}))
	hidden := scene.NewImage("hidden", solidImage(4, 4, color.RGBA{R: 255, A: 255}), geometry.Rect{W: 1, H: 1})
	hidden.Hidden = true
	s.Add(hidden)

	cfg := testConfig()
	cfg.Duration = 1
	sink := &captureSink{sample: image.Pt(5, 5)}
	p := &Project{Config: cfg, Scene: s}
	withSink(p, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.pixels) != 2 {
		t.Fatalf("recorded %d frames", len(sink.pixels))
	}
	if got := sink.pixels[0]; got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("background pixel = %v", got)
	}
}

func TestProjectDurationFromTrack(t *testing.T) {
	const rate = 8000
	samples := make([]float64, rate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
	}

	cfg := testConfig()
	cfg.FPS = 4
	cfg.Layers.Visualizer = true
	sink := &captureSink{sample: image.Pt(0, 0)}
	p := &Project{Config: cfg, Scene: scene.New(), Track: &audio.Track{SampleRate: rate, Samples: samples}}
	withSink(p, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.pixels) != 4 {
		t.Errorf("recorded %d frames, want 4", len(sink.pixels))
	}
}

func TestProjectErrors(t *testing.T) {
	t.Run("no duration", func(t *testing.T) {
		p := &Project{Config: testConfig(), Scene: scene.New()}
		withSink(p, &captureSink{})
		if err := p.Run(context.Background()); err == nil {
			t.Error("expected an error without duration or track")
		}
	})

	t.Run("sink failure", func(t *testing.T) {
		cfg := testConfig()
		cfg.Duration = 2
		sink := &captureSink{failAt: 2}
		p := &Project{Config: cfg, Scene: scene.New()}
		withSink(p, sink)

		err := p.Run(context.Background())
		if err == nil || err.Error() != "disk full" {
			t.Errorf("Run = %v, want the sink error", err)
		}
		if sink.closed != 1 {
			t.Errorf("sink closed %d times", sink.closed)
		}
	})

	t.Run("bad visualizer color", func(t *testing.T) {
		cfg := testConfig()
		cfg.Duration = 1
		cfg.Visualizer.Color = "not-a-color"
		p := &Project{Config: cfg, Scene: scene.New()}
		withSink(p, &captureSink{})
		if err := p.Run(context.Background()); err == nil {
			t.Error("expected a color error")
		}
	})
}

func TestMediaRect(t *testing.T) {
	tests := []struct {
		name   string
		aspect float64
		w, h   float64
		want   geometry.PixelRect
	}{
		{"wide", 2, 200, 100, geometry.PixelRect{X: 60, Y: 30, W: 80, H: 40}},
		{"tall clipped to height", 0.25, 200, 100, geometry.PixelRect{X: 87.5, Y: 0, W: 25, H: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mediaRect(tt.aspect, tt.w, tt.h).ToPixels(tt.w, tt.h)
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) || !near(got.W, tt.want.W) || !near(got.H, tt.want.H) {
				t.Errorf("mediaRect = %+v, want %+v", got, tt.want)
			}
		})
	}
}
