package video

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func posterStream(path string, at float64) *ffmpeg.Stream {
	return ffmpeg.Input(path, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", at)}).
		Output("pipe:", ffmpeg.KwArgs{"vframes": 1, "format": "image2", "vcodec": "png"})
}

// Poster decodes the frame of the clip at the given second.
func Poster(path string, at float64) (image.Image, error) {
	buf := bytes.NewBuffer(nil)
	if err := posterStream(path, at).WithOutput(buf).Silent(true).Run(); err != nil {
		return nil, fmt.Errorf("не удалось извлечь кадр из %s: %w", path, err)
	}
	img, err := png.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("poster %s: %w", path, err)
	}
	return img, nil
}
