package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Track is a decoded audio file mixed down to mono float samples in [-1, 1].
type Track struct {
	Path       string
	SampleRate int
	Samples    []float64
}

// Duration in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate == 0 {
		return 0
	}
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// Window returns size samples starting at time sec. Past the end the slice is shorter.
func (t *Track) Window(sec float64, size int) []float64 {
	start := int(sec * float64(t.SampleRate))
	if start < 0 {
		start = 0
	}
	if start >= len(t.Samples) {
		return nil
	}
	end := start + size
	if end > len(t.Samples) {
		end = len(t.Samples)
	}
	return t.Samples[start:end]
}

// LoadTrack decodes .wav and .mp3 directly; anything else is converted to WAV by ffmpeg first.
func LoadTrack(path string) (*Track, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return decodeWAV(path, f)
	case ".mp3":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return decodeMP3(path, f)
	default:
		var out bytes.Buffer
		err := ffmpeg.Input(path).
			Output("pipe:", ffmpeg.KwArgs{"f": "wav", "ac": 2, "ar": 44100, "acodec": "pcm_s16le"}).
			WithOutput(&out).
			Silent(true).
			Run()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg conversion of %s failed: %w", path, err)
		}
		return decodeWAV(path, bytes.NewReader(out.Bytes()))
	}
}

func decodeWAV(path string, r io.ReadSeeker) (*Track, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		return nil, fmt.Errorf("unknown bit depth for WAV file: %s", path)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	full := float64(int64(1) << (bitDepth - 1))
	// 8-bit WAV is unsigned.
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / full
		}
		samples[i] = sum / float64(channels)
	}
	return &Track{Path: path, SampleRate: buf.Format.SampleRate, Samples: samples}, nil
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(path string, r io.Reader) (*Track, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 %s: %w", path, err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	frames := len(pcm) / 4
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		samples[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return &Track{Path: path, SampleRate: dec.SampleRate(), Samples: samples}, nil
}
