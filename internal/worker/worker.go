package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/renderer"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/system"
	"github.com/ivlev/audiocanvas/internal/visualizer"
)

// FrameSink receives every frame rendered while recording. The image is reused
// after WriteFrame returns.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
}

type cachedImage struct {
	payload ImagePayload
	bitmap  *image.RGBA
}

// Worker is the background side. All state is owned by the goroutine running Run;
// requests are handled one at a time, in arrival order.
type Worker struct {
	Sink FrameSink
	// Headroom is asked before a bitmap of need bytes is decoded.
	Headroom func(need uint64) error

	pool      *system.ImagePool
	canvas    *canvas.Canvas
	flags     renderer.Flags
	order     []string
	images    map[string]*cachedImage
	texts     []TextState
	vis       *renderer.VisualizerLayer
	recording bool

	renderer *renderer.Renderer
	dirty    bool
	frames   int
}

// New creates a worker that takes decoded bitmaps from pool (nil means a private pool).
func New(pool *system.ImagePool) *Worker {
	if pool == nil {
		pool = system.NewImagePool()
	}
	return &Worker{
		Headroom: system.CheckHeadroom,
		pool:     pool,
		flags:    renderer.AllLayers,
		images:   make(map[string]*cachedImage),
		dirty:    true,
	}
}

// Run serves requests until in is closed or ctx is done. Every request except
// RENDER_FRAME gets exactly one response. Cached bitmaps are released on return.
func (w *Worker) Run(ctx context.Context, in <-chan Request, out chan<- Response) error {
	defer w.releaseAll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-in:
			if !ok {
				return nil
			}
			resp, reply := w.handle(req)
			if !reply {
				continue
			}
			select {
			case out <- resp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Frames returns how many frames were rendered.
func (w *Worker) Frames() int { return w.frames }

// CachedImages returns the number of decoded bitmaps held.
func (w *Worker) CachedImages() int { return len(w.images) }

func (w *Worker) handle(req Request) (Response, bool) {
	resp := Response{Type: req.Type, RequestID: req.RequestID, Success: true}
	var err error

	switch req.Type {
	case RenderFrame:
		if err := w.renderFrame(req.Data); err != nil {
			log.Printf("[!] Ошибка рендеринга кадра: %v", err)
		}
		return resp, false
	case InitCanvas:
		err = w.initCanvas(req.Data, &resp)
	case UpdateDimensions:
		err = w.resize(req.Data)
	case UpdateFlags:
		err = w.updateFlags(req.Data)
	case LoadImage:
		err = w.loadImage(req.Data, &resp)
	case RemoveImage:
		err = w.removeImage(req.Data)
	case UpdateVisualizer:
		err = w.updateVisualizer(req.Data)
	case UpdateTexts:
		err = w.updateTexts(req.Data)
	case StartRecording:
		w.recording = true
	case StopRecording:
		w.recording = false
	default:
		err = fmt.Errorf("Unbekannter Message-Type: %s", req.Type)
	}

	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
	}
	return resp, true
}

func badPayload(t MessageType, data any) error {
	return fmt.Errorf("неверные данные для %s: %T", t, data)
}

func (w *Worker) initCanvas(data any, resp *Response) error {
	p, ok := data.(InitPayload)
	if !ok {
		return badPayload(InitCanvas, data)
	}
	if p.Canvas == nil || p.Canvas.Detached() {
		return fmt.Errorf("холст не передан")
	}
	if p.Width > 0 && p.Height > 0 && (int(p.Canvas.Width()) != p.Width || int(p.Canvas.Height()) != p.Height) {
		if err := p.Canvas.Resize(p.Width, p.Height); err != nil {
			return err
		}
	}
	w.canvas = p.Canvas
	resp.Extra = map[string]any{"width": int(w.canvas.Width()), "height": int(w.canvas.Height())}
	return nil
}

func (w *Worker) resize(data any) error {
	d, ok := data.(Dimensions)
	if !ok {
		return badPayload(UpdateDimensions, data)
	}
	if w.canvas == nil {
		return fmt.Errorf("холст не инициализирован")
	}
	return w.canvas.Resize(d.Width, d.Height)
}

func (w *Worker) updateFlags(data any) error {
	f, ok := data.(renderer.Flags)
	if !ok {
		return badPayload(UpdateFlags, data)
	}
	w.flags = f
	return nil
}

// loadImage decodes the blob into a pooled bitmap. A failure leaves the cache as it was.
func (w *Worker) loadImage(data any, resp *Response) error {
	p, ok := data.(ImagePayload)
	if !ok {
		return badPayload(LoadImage, data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Blob))
	if err != nil {
		return fmt.Errorf("не удалось декодировать изображение %s: %w", p.ID, err)
	}
	if w.Headroom != nil {
		if err := w.Headroom(uint64(cfg.Width) * uint64(cfg.Height) * 4); err != nil {
			return fmt.Errorf("изображение %s: %w", p.ID, err)
		}
	}
	src, _, err := image.Decode(bytes.NewReader(p.Blob))
	if err != nil {
		return fmt.Errorf("не удалось декодировать изображение %s: %w", p.ID, err)
	}

	b := src.Bounds()
	bmp := w.pool.Get(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(bmp, bmp.Rect, src, b.Min, draw.Src)
	p.Blob = nil

	if old, ok := w.images[p.ID]; ok {
		w.pool.Put(old.bitmap)
	} else {
		w.order = append(w.order, p.ID)
	}
	w.images[p.ID] = &cachedImage{payload: p, bitmap: bmp}
	w.dirty = true

	resp.Extra = map[string]any{"id": p.ID, "width": b.Dx(), "height": b.Dy()}
	return nil
}

func (w *Worker) removeImage(data any) error {
	p, ok := data.(RemovePayload)
	if !ok {
		return badPayload(RemoveImage, data)
	}
	img, ok := w.images[p.ID]
	if !ok {
		return nil
	}
	w.pool.Put(img.bitmap)
	delete(w.images, p.ID)
	for i, id := range w.order {
		if id == p.ID {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.dirty = true
	return nil
}

func (w *Worker) updateVisualizer(data any) error {
	p, ok := data.(VisualizerParams)
	if !ok {
		return badPayload(UpdateVisualizer, data)
	}
	if w.vis != nil && w.vis.Visualizer.Name() == p.Name {
		if err := setTiers(w.vis.Visualizer, p.Tiers); err != nil {
			return err
		}
		w.vis.Color, w.vis.Opacity, w.vis.Rect = p.Color, p.Opacity, p.Rect
		return nil
	}
	v, err := visualizer.New(p.Name)
	if err != nil {
		return err
	}
	if err := setTiers(v, p.Tiers); err != nil {
		return err
	}
	w.vis = &renderer.VisualizerLayer{Visualizer: v, Rect: p.Rect, Color: p.Color, Opacity: p.Opacity}
	w.dirty = true
	return nil
}

func setTiers(v visualizer.Visualizer, tiers []float64) error {
	if t, ok := v.(visualizer.Tiered); ok {
		return t.SetTiers(tiers)
	}
	return nil
}

func (w *Worker) updateTexts(data any) error {
	texts, ok := data.([]TextState)
	if !ok {
		return badPayload(UpdateTexts, data)
	}
	w.texts = texts
	w.dirty = true
	return nil
}

func (w *Worker) renderFrame(data any) error {
	f, ok := data.(FramePayload)
	if !ok {
		return badPayload(RenderFrame, data)
	}
	if w.canvas == nil {
		return fmt.Errorf("холст не инициализирован")
	}
	if w.dirty {
		w.rebuild()
	}
	w.renderer.Flags = w.flags
	w.renderer.Draw(w.canvas, f, false)
	w.frames++

	if w.recording && w.Sink != nil {
		return w.Sink.WriteFrame(w.canvas.Image())
	}
	return nil
}

// rebuild turns the worker state into a private scene for the renderer.
func (w *Worker) rebuild() {
	s := scene.New()
	s.Add(scene.NewBackground(scene.Black))
	for _, id := range w.order {
		c := w.images[id]
		img := scene.NewImage(id, c.bitmap, c.payload.Rect)
		img.ID = id
		img.Rotation = c.payload.Rotation
		img.Opacity = c.payload.Opacity
		s.Add(img)
	}
	for _, ts := range w.texts {
		t := scene.NewText(ts.Content, ts.FontSize, ts.Rect)
		t.ID = ts.ID
		t.Color = ts.Color
		t.Opacity = ts.Opacity
		t.Hidden = ts.Hidden
		t.Animation = ts.Animation
		s.Add(t)
	}
	r := renderer.New(s, nil)
	r.Visualizer = w.vis
	w.renderer = r
	w.dirty = false
}

func (w *Worker) releaseAll() {
	for id, img := range w.images {
		w.pool.Put(img.bitmap)
		delete(w.images, id)
	}
	w.order = nil
	w.dirty = true
}
