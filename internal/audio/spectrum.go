package audio

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (
	DefaultFFTSize   = 2048
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Spectrum produces byte frequency and time-domain buffers from PCM windows,
// the same shape the visualizers and the Analyzer expect.
type Spectrum struct {
	size      int
	Smoothing float64
	MinDB     float64
	MaxDB     float64

	window []float64
	prev   []float64
	buf    []complex128
}

// NewSpectrum creates an analyser for windows of size samples (power of two).
func NewSpectrum(size int) (*Spectrum, error) {
	if size < 32 || size&(size-1) != 0 {
		return nil, fmt.Errorf("fft size must be a power of two >= 32, got %d", size)
	}
	s := &Spectrum{
		size:      size,
		Smoothing: DefaultSmoothing,
		MinDB:     DefaultMinDB,
		MaxDB:     DefaultMaxDB,
		window:    make([]float64, size),
		prev:      make([]float64, size/2),
		buf:       make([]complex128, size),
	}
	// Blackman
	for i := range s.window {
		x := 2 * math.Pi * float64(i) / float64(size)
		s.window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return s, nil
}

func (s *Spectrum) Size() int { return s.size }

// BinCount is the length of the frequency buffer.
func (s *Spectrum) BinCount() int { return s.size / 2 }

// Reset forgets the smoothing history.
func (s *Spectrum) Reset() {
	for i := range s.prev {
		s.prev[i] = 0
	}
}

// FrequencyBytes writes BinCount() bins into dst. Samples shorter than the FFT size are zero padded.
func (s *Spectrum) FrequencyBytes(samples []float64, dst []byte) {
	for i := range s.buf {
		v := 0.0
		if i < len(samples) {
			v = samples[i] * s.window[i]
		}
		s.buf[i] = complex(v, 0)
	}
	fft(s.buf)

	scale := 255 / (s.MaxDB - s.MinDB)
	for k := 0; k < len(s.prev) && k < len(dst); k++ {
		mag := cmplx.Abs(s.buf[k]) / float64(s.size)
		s.prev[k] = s.Smoothing*s.prev[k] + (1-s.Smoothing)*mag
		db := math.Inf(-1)
		if s.prev[k] > 0 {
			db = 20 * math.Log10(s.prev[k])
		}
		dst[k] = toByte(scale * (db - s.MinDB))
	}
}

// TimeBytes writes samples as 128-centred bytes.
func (s *Spectrum) TimeBytes(samples []float64, dst []byte) {
	for i := 0; i < len(dst); i++ {
		v := 0.0
		if i < len(samples) {
			v = samples[i]
		}
		dst[i] = toByte(128 * (1 + v))
	}
}

func toByte(v float64) byte {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}

// fft is an in-place iterative radix-2 transform. len(a) must be a power of two.
func fft(a []complex128) {
	n := len(a)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		sin, cos := math.Sincos(-2 * math.Pi / float64(length))
		wl := complex(cos, sin)
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			half := length / 2
			for k := 0; k < half; k++ {
				u := a[i+k]
				v := a[i+k+half] * w
				a[i+k] = u + v
				a[i+k+half] = u - v
				w *= wl
			}
		}
	}
}
