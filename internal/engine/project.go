package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/audiocanvas/internal/audio"
	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/config"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/renderer"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/slideshow"
	"github.com/ivlev/audiocanvas/internal/source"
	"github.com/ivlev/audiocanvas/internal/system"
	"github.com/ivlev/audiocanvas/internal/transcode"
	"github.com/ivlev/audiocanvas/internal/video"
	"github.com/ivlev/audiocanvas/internal/worker"
)

const (
	// SlideFade is the cross-fade between slideshow pages, in seconds.
	SlideFade = 0.5
	// backgroundID is the worker image id of the scene background.
	backgroundID = "background"
)

// SlideFrame is where slideshow pages are fitted on the canvas.
var SlideFrame = geometry.Rect{X: 0.1, Y: 0.05, W: 0.8, H: 0.6}

// Sink receives recorded frames and is closed once after the last one.
type Sink interface {
	worker.FrameSink
	Close() error
}

// Project renders a scene and an audio track to a video file offline, at a fixed
// frame rate, through the recording worker.
type Project struct {
	Config *config.Config
	Scene  *scene.Scene
	Group  *slideshow.Controller
	Track  *audio.Track

	// StartSink opens the output for a recording; nil records with ffmpeg.
	StartSink func(o video.Options) (Sink, error)

	mu    sync.Mutex
	peaks audio.Levels
}

func NewProject(cfg *config.Config) *Project {
	return &Project{Config: cfg}
}

// Load reads the scene file, the slideshow source and the audio track named in the config.
func (p *Project) Load() error {
	cfg := p.Config
	if cfg.ScenePath != "" {
		s, doc, err := LoadScene(cfg.ScenePath, Assets{})
		if err != nil {
			return err
		}
		p.Scene = s
		if doc.Preset != "" && doc.Preset != cfg.Preset {
			cfg.Preset = doc.Preset
			if err := cfg.ApplyPreset(); err != nil {
				return err
			}
		}
		fmt.Printf("[*] Сцена: %s | Объектов: %d\n", cfg.ScenePath, s.Len())
	} else {
		p.Scene = scene.New()
		p.Scene.Add(scene.NewBackground(scene.Black))
	}

	if cfg.AudioPath != "" {
		t, err := audio.LoadTrack(cfg.AudioPath)
		if err != nil {
			return fmt.Errorf("ошибка загрузки аудио: %w", err)
		}
		p.Track = t
		fmt.Printf("[*] Аудио: %s (%.2fs, %d Гц)\n", cfg.AudioPath, t.Duration(), t.SampleRate)
	}

	if cfg.SlidesPath != "" {
		src, err := source.Open(cfg.SlidesPath)
		if err != nil {
			return fmt.Errorf("ошибка открытия слайдов: %w", err)
		}
		defer src.Close()

		total := p.duration()
		if total <= 0 {
			total = cfg.SlideSeconds * float64(src.PageCount())
		}
		group, err := slideshow.Load(src, cfg.DPI, SlideFrame, float64(cfg.Width), float64(cfg.Height), total, SlideFade)
		if err != nil {
			return err
		}
		for _, img := range group.Images() {
			p.Scene.Add(img)
		}
		p.Group = group
		fmt.Printf("[*] Слайды: %s | Страниц: %d\n", cfg.SlidesPath, group.Len())
	}
	return nil
}

// duration is the configured length, else the track length, else the slideshow length.
func (p *Project) duration() float64 {
	switch {
	case p.Config.Duration > 0:
		return p.Config.Duration
	case p.Track != nil:
		return p.Track.Duration()
	case p.Group != nil:
		return p.Group.Total()
	}
	return 0
}

// Peaks returns the highest smoothed audio levels seen during the last Run.
func (p *Project) Peaks() audio.Levels {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peaks
}

func (p *Project) observe(f audio.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := f.Smoothed
	p.peaks.Bass = math.Max(p.peaks.Bass, s.Bass)
	p.peaks.Mid = math.Max(p.peaks.Mid, s.Mid)
	p.peaks.Treble = math.Max(p.peaks.Treble, s.Treble)
	p.peaks.Volume = math.Max(p.peaks.Volume, s.Volume)
}

// Run records the video, then hands it to the transcode service when enabled.
func (p *Project) Run(ctx context.Context) error {
	cfg := p.Config
	if p.Scene == nil {
		p.Scene = scene.New()
	}
	total := p.duration()
	if total <= 0 {
		return fmt.Errorf("длительность не задана: укажите -duration или аудиофайл")
	}
	if cfg.FPS <= 0 || cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("некорректные параметры: %dx%d @ %d FPS", cfg.Width, cfg.Height, cfg.FPS)
	}

	encoder := cfg.VideoEncoder
	if encoder == "" {
		encoder = system.GetBestH264Encoder()
	}
	opts := video.Options{
		Path:      cfg.OutputVideo,
		Width:     cfg.Width,
		Height:    cfg.Height,
		FPS:       cfg.FPS,
		Encoder:   encoder,
		Quality:   cfg.Quality,
		AudioPath: cfg.AudioPath,
	}

	fmt.Println("--- [PROJECT: AUDIO CANVAS] ---")
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Длительность: %.2fs\n", cfg.Width, cfg.Height, cfg.FPS, total)
	fmt.Printf("[*] Визуализатор: %s | Энкодер: %s\n", cfg.Visualizer.Name, encoder)
	fmt.Println("-----------------------------")

	start := time.Now()
	frames, err := p.record(ctx, opts, total)
	if err != nil {
		return err
	}
	fmt.Printf("[+++] Видео готово: %s (%d кадров за %.2fs)\n", cfg.OutputVideo, frames, time.Since(start).Seconds())

	if cfg.ShowStats {
		pk := p.Peaks()
		fmt.Printf("[*] Пиковые уровни: бас %.0f | середина %.0f | верх %.0f | громкость %.0f\n", pk.Bass, pk.Mid, pk.Treble, pk.Volume)
	}

	if cfg.Transcode.Enabled {
		return p.transcode(ctx, cfg.OutputVideo)
	}
	return nil
}

// guardedSink remembers the first write error; RENDER_FRAME has no response to carry it.
type guardedSink struct {
	Sink
	err error
}

func (g *guardedSink) WriteFrame(img *image.RGBA) error {
	if g.err != nil {
		return g.err
	}
	g.err = g.Sink.WriteFrame(img)
	return g.err
}

func (p *Project) record(ctx context.Context, opts video.Options, total float64) (int, error) {
	startSink := p.StartSink
	if startSink == nil {
		startSink = func(o video.Options) (Sink, error) { return video.Start(o) }
	}
	sink, err := startSink(opts)
	if err != nil {
		return 0, err
	}
	guard := &guardedSink{Sink: sink}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	offload := audio.NewOffload(p.Config.Audio)
	offload.OnFrame = p.observe
	g.Go(func() error { return offload.Run(gctx) })

	w := worker.New(nil)
	w.Sink = guard
	ch := worker.NewChannel(worker.Spawn(gctx, w))

	var frames int
	g.Go(func() error {
		defer cancel()
		defer ch.Close()
		n, err := p.renderFrames(gctx, ch, offload, total)
		frames = n
		if err == nil {
			err = guard.err
		}
		return err
	})

	err = g.Wait()
	if cerr := sink.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("ошибка завершения записи: %w", cerr)
	}
	return frames, err
}

func (p *Project) renderFrames(ctx context.Context, ch *worker.Channel, offload *audio.Offload, total float64) (int, error) {
	cfg := p.Config
	if err := ch.Init(ctx, canvas.New(cfg.Width, cfg.Height), cfg.Width, cfg.Height); err != nil {
		return 0, fmt.Errorf("ошибка инициализации воркера: %w", err)
	}
	if err := p.prepareWorker(ctx, ch); err != nil {
		return 0, err
	}

	an, err := audio.NewSpectrum(audio.DefaultFFTSize)
	if err != nil {
		return 0, err
	}
	if err := ch.StartRecording(ctx); err != nil {
		return 0, err
	}

	fps := float64(cfg.FPS)
	count := int(math.Ceil(total*fps - 1e-9))
	shown := make(map[string]bool)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		t := float64(i) / fps
		if p.Group != nil {
			if err := p.syncSlides(ctx, ch, t, shown); err != nil {
				return i, err
			}
		}

		// buffers are handed to the worker, so each frame gets its own
		f := renderer.Frame{Time: t, Freq: make([]byte, an.BinCount()), Wave: make([]byte, an.Size())}
		var window []float64
		if p.Track != nil {
			window = p.Track.Window(t, an.Size())
		}
		an.FrequencyBytes(window, f.Freq)
		an.TimeBytes(window, f.Wave)
		offload.Submit(f.Freq, len(f.Freq))

		if err := ch.RenderFrame(f); err != nil {
			return i, err
		}
		if (i+1)%cfg.FPS == 0 || i+1 == count {
			fmt.Printf("[>] Кадры: %d/%d\n", i+1, count)
		}
	}

	// the worker handles requests in order, so this returns after the last frame
	if err := ch.StopRecording(ctx); err != nil {
		return count, err
	}
	return count, nil
}

// prepareWorker sends everything except slideshow pages, which follow the timeline.
func (p *Project) prepareWorker(ctx context.Context, ch *worker.Channel) error {
	cfg := p.Config
	if err := ch.SetFlags(ctx, renderer.Flags{
		Images:     cfg.Layers.Images,
		Text:       cfg.Layers.Text,
		Visualizer: cfg.Layers.Visualizer,
	}); err != nil {
		return err
	}

	if bg, ok := p.Scene.Background(); ok {
		if err := p.loadImage(ctx, ch, backgroundID, solid(bg.Color), geometry.Rect{W: 1, H: 1}, 0, 100); err != nil {
			return err
		}
		if bg.Bitmap != nil {
			if err := p.loadImage(ctx, ch, backgroundID+"-image", bg.Bitmap, geometry.Rect{W: 1, H: 1}, 0, 100); err != nil {
				return err
			}
		}
	}

	for _, o := range p.Scene.Media() {
		b := o.Base()
		if b.Hidden || b.Slideshow {
			continue
		}
		var bmp image.Image
		switch v := o.(type) {
		case *scene.Image:
			bmp = v.Bitmap
		case *scene.Video:
			bmp = v.Poster
		}
		if bmp == nil {
			log.Printf("[!] У объекта %s нет изображения, пропуск", b.ID)
			continue
		}
		if err := p.loadImage(ctx, ch, b.ID, bmp, b.Rect, b.Rotation, b.Opacity); err != nil {
			return err
		}
	}

	if err := ch.SetTexts(ctx, p.Scene.Texts()); err != nil {
		return err
	}

	col, err := scene.ParseColor(cfg.Visualizer.Color)
	if err != nil {
		return fmt.Errorf("цвет визуализатора: %w", err)
	}
	v := cfg.Visualizer
	return ch.SetVisualizer(ctx, worker.VisualizerParams{
		Name:    v.Name,
		Color:   col,
		Opacity: v.Opacity,
		Tiers:   v.Tiers,
		Rect:    geometry.Rect{X: v.RelX, Y: v.RelY, W: v.RelWidth, H: v.RelHeight},
	})
}

// syncSlides keeps exactly the slideshow pages visible at t loaded in the worker.
func (p *Project) syncSlides(ctx context.Context, ch *worker.Channel, t float64, shown map[string]bool) error {
	for _, img := range p.Group.Images() {
		f, _ := p.Group.Visibility(img, t)
		visible := f > 0 && !img.Hidden
		switch {
		case visible && !shown[img.ID]:
			if err := p.loadImage(ctx, ch, img.ID, img.Bitmap, img.Rect, img.Rotation, img.Opacity); err != nil {
				return err
			}
			shown[img.ID] = true
		case !visible && shown[img.ID]:
			if err := ch.RemoveImage(ctx, img.ID); err != nil {
				return err
			}
			delete(shown, img.ID)
		}
	}
	return nil
}

func (p *Project) loadImage(ctx context.Context, ch *worker.Channel, id string, img image.Image, r geometry.Rect, rotation, opacity float64) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("изображение %s: %w", id, err)
	}
	_, _, err := ch.LoadImage(ctx, worker.ImagePayload{ID: id, Blob: buf.Bytes(), Rect: r, Rotation: rotation, Opacity: opacity})
	return err
}

func solid(c scene.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return img
}

func (p *Project) transcode(ctx context.Context, path string) error {
	tc := p.Config.Transcode
	client := transcode.New(tc.Server)
	if tc.BasePath != "" {
		client.BasePath = tc.BasePath
	}
	if tc.PollInterval > 0 {
		client.PollInterval = tc.PollInterval
	}
	if tc.Timeout > 0 {
		client.Timeout = tc.Timeout
	}
	client.OnProgress = func(pct float64) {
		fmt.Printf("[>] Транскодирование: %.0f%%\n", pct)
	}

	fmt.Printf("[*] Отправка на сервер транскодирования: %s (%s)\n", tc.Server, tc.Quality)
	res, err := client.Convert(ctx, path, tc.Quality)
	if err != nil {
		return fmt.Errorf("ошибка транскодирования: %w", err)
	}

	ext := filepath.Ext(path)
	dst := strings.TrimSuffix(path, ext) + "_" + tc.Quality + filepath.Ext(res.OutputFile)
	// the share link needs the file to stay on the server
	cleanup := tc.QRPath == ""
	if err := client.Download(ctx, res.OutputFile, dst, cleanup); err != nil {
		return err
	}
	fmt.Printf("[+++] Результат транскодирования: %s\n", dst)

	if tc.QRPath != "" {
		link := client.AbsoluteURL(res.DownloadURL)
		if err := transcode.WriteShareQR(link, tc.QRPath, 0); err != nil {
			return err
		}
		fmt.Printf("[*] QR-код ссылки: %s -> %s\n", tc.QRPath, link)
	}
	return nil
}
