// Package video turns rendered frames into a video file with ffmpeg and grabs poster frames
// for video objects.
package video

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Options describe one recording.
type Options struct {
	Path      string
	Width     int
	Height    int
	FPS       int
	Encoder   string
	Quality   int
	AudioPath string
}

// DefaultQuality is used when no quality is configured.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // Хорошее качество для VideoToolbox
	case "h264_nvenc":
		return 28 // Эквивалент CRF для NVENC
	default:
		return 23 // Стандартный CRF для x264
	}
}

// qualityArgs maps the single quality knob onto each encoder's own setting.
func qualityArgs(encoder string, quality int) ffmpeg.KwArgs {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v. Используем битрейт.
		return ffmpeg.KwArgs{"b:v": fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return ffmpeg.KwArgs{"cq": quality}
	default:
		return ffmpeg.KwArgs{"crf": quality, "preset": "medium"}
	}
}

// stream builds the ffmpeg graph: raw RGBA frames on stdin, optional audio track, H.264 out.
func stream(o Options) *ffmpeg.Stream {
	encoder := o.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	quality := o.Quality
	if quality == 0 {
		quality = DefaultQuality(encoder)
	}

	frames := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", o.Width, o.Height),
		"r":       o.FPS,
	})
	out := ffmpeg.KwArgs{"c:v": encoder, "pix_fmt": "yuv420p"}
	for k, v := range qualityArgs(encoder, quality) {
		out[k] = v
	}

	if o.AudioPath == "" {
		return frames.Output(o.Path, out).OverWriteOutput()
	}
	out["c:a"] = "aac"
	out["shortest"] = ""
	audio := ffmpeg.Input(o.AudioPath)
	return ffmpeg.Output([]*ffmpeg.Stream{frames, audio}, o.Path, out).OverWriteOutput()
}

// Recorder pipes frames into a running ffmpeg process. It implements the worker frame sink.
type Recorder struct {
	opts   Options
	pw     *io.PipeWriter
	done   chan error
	frames int

	closeOnce sync.Once
	closeErr  error
}

// Start launches ffmpeg for o.
func Start(o Options) (*Recorder, error) {
	if o.Width <= 0 || o.Height <= 0 || o.FPS <= 0 {
		return nil, fmt.Errorf("некорректные параметры записи: %dx%d @ %d", o.Width, o.Height, o.FPS)
	}
	pr, pw := io.Pipe()
	r := &Recorder{opts: o, pw: pw, done: make(chan error, 1)}
	s := stream(o).WithInput(pr).Silent(true)
	go func() {
		err := s.Run()
		if err != nil {
			err = fmt.Errorf("ffmpeg: %w", err)
		}
		// unblocks a writer when ffmpeg exits early
		pr.CloseWithError(err)
		r.done <- err
	}()
	return r, nil
}

// WriteFrame writes one frame; its size must match the recording.
func (r *Recorder) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != r.opts.Width || b.Dy() != r.opts.Height {
		return fmt.Errorf("кадр %dx%d не совпадает с размером записи %dx%d", b.Dx(), b.Dy(), r.opts.Width, r.opts.Height)
	}
	if err := writeRawRGBA(r.pw, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	r.frames++
	return nil
}

func (r *Recorder) Frames() int { return r.frames }

// Close finishes the stream and waits for ffmpeg.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.pw.Close()
		r.closeErr = <-r.done
	})
	return r.closeErr
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
