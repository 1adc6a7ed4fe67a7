// Package audio turns audio into the per-frame numbers the visualizers and effects consume.
package audio

import (
	"github.com/ivlev/audiocanvas/internal/config"
)

// Levels are band intensities on the 0..255 scale.
type Levels struct {
	Bass   float64
	Mid    float64
	Treble float64
	Volume float64
}

// Frame is the result of one analysis step.
type Frame struct {
	Raw      Levels
	Smoothed Levels
}

// Analyzer reduces a frequency-domain buffer to bass/mid/treble/volume.
// The smoothed accumulators live for the whole session until Reset.
type Analyzer struct {
	cal    config.AudioCalibration
	smooth Levels
}

func NewAnalyzer(cal config.AudioCalibration) *Analyzer {
	return &Analyzer{cal: cal}
}

// Reset zeroes the smoothed accumulators (track change).
func (a *Analyzer) Reset() {
	a.smooth = Levels{}
}

// Smoothed returns the current smoothed levels without analysing.
func (a *Analyzer) Smoothed() Levels {
	return a.smooth
}

// Analyze processes the first n bins of data.
func (a *Analyzer) Analyze(data []byte, n int) Frame {
	if n > len(data) {
		n = len(data)
	}
	usable := clampIndex(int(float64(n)*a.cal.UsableFraction), n)
	if usable <= 0 {
		return Frame{Smoothed: a.smooth}
	}
	bins := data[:usable]

	bassEnd := clampIndex(int(float64(usable)*a.cal.BassSplit), usable)
	midEnd := clampIndex(int(float64(usable)*a.cal.MidSplit), usable)
	if midEnd < bassEnd {
		midEnd = bassEnd
	}

	raw := Levels{
		Bass:   clamp255(average(bins[:bassEnd]) * a.cal.BassGain),
		Mid:    clamp255(average(bins[bassEnd:midEnd]) * a.cal.MidGain),
		Volume: clamp255(average(bins) * a.cal.VolumeGain),
	}
	treble := bins[midEnd:]
	blend := average(treble)*(1-a.cal.TreblePeak) + peak(treble)*a.cal.TreblePeak
	raw.Treble = clamp255(blend * a.cal.TrebleGain)

	a.smooth.Bass = ema(a.smooth.Bass, raw.Bass, a.cal.Alpha)
	a.smooth.Mid = ema(a.smooth.Mid, raw.Mid, a.cal.Alpha)
	a.smooth.Volume = ema(a.smooth.Volume, raw.Volume, a.cal.Alpha)
	a.smooth.Treble = ema(a.smooth.Treble, raw.Treble, a.cal.TrebleAlpha)

	return Frame{Raw: raw, Smoothed: a.smooth}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func average(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	sum := 0
	for _, v := range b {
		sum += int(v)
	}
	return float64(sum) / float64(len(b))
}

func peak(b []byte) float64 {
	var m byte
	for _, v := range b {
		if v > m {
			m = v
		}
	}
	return float64(m)
}

func ema(prev, raw, alpha float64) float64 {
	return prev*(1-alpha) + raw*alpha
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
