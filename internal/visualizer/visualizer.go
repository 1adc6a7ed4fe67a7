// Package visualizer holds the audio-reactive drawing algorithms.
package visualizer

import (
	"fmt"
	"sort"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/scene"
)

// Visualizer draws one frame from an amplitude buffer (values 0..255).
// Only n samples of data are read; n may be as small as 2.
type Visualizer interface {
	Name() string
	// NeedsTimeData reports whether Draw expects time-domain samples instead of frequency bins.
	NeedsTimeData() bool
	Draw(c *canvas.Canvas, data []byte, n int, width, height float64, col scene.Color, opacity float64)
}

// Tiered is implemented by visualizers drawn in several passes of different opacity.
type Tiered interface {
	SetTiers(tiers []float64) error
}

var factories = map[string]func() Visualizer{
	"oscilloscope": func() Visualizer { return &Oscilloscope{} },
	"bars":         func() Visualizer { return Bars{} },
	"waveform":     func() Visualizer { return Waveform{} },
	"circle":       func() Visualizer { return Circle{} },
	"particles":    func() Visualizer { return NewParticles(nil, nil) },
}

// New creates a visualizer by name. Every call returns a fresh instance, so stateful
// visualizers are never shared between sessions.
func New(name string) (Visualizer, error) {
	if name == "" {
		name = "bars"
	}
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown visualizer: %s", name)
	}
	return f(), nil
}

// Names lists the registered visualizers.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func usable(data []byte, n int) int {
	if n > len(data) {
		n = len(data)
	}
	if n < 0 {
		n = 0
	}
	return n
}
