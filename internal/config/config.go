package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ScenePath    string           `yaml:"scene"`
	AudioPath    string           `yaml:"audio"`
	SlidesPath   string           `yaml:"slides"`
	OutputVideo  string           `yaml:"output"`
	Width        int              `yaml:"width"`
	Height       int              `yaml:"height"`
	Preset       string           `yaml:"preset"`
	FPS          int              `yaml:"fps"`
	Duration     float64          `yaml:"duration"`
	SlideSeconds float64          `yaml:"slide_seconds"`
	DPI          int              `yaml:"dpi"`
	VideoEncoder string           `yaml:"encoder"`
	Quality      int              `yaml:"quality"`
	Visualizer   Visualizer       `yaml:"visualizer"`
	Layers       Layers           `yaml:"layers"`
	Audio        AudioCalibration `yaml:"audio_calibration"`
	Transcode    Transcode        `yaml:"transcode"`
	ShowStats    bool             `yaml:"-"`
	BuildVersion string           `yaml:"-"`
}

type Visualizer struct {
	Name    string  `yaml:"name"`
	Color   string  `yaml:"color"`
	Opacity float64 `yaml:"opacity"`

	// Tiers are the per-pass opacities of the oscilloscope (glow, halo, core).
	Tiers []float64 `yaml:"opacity_tiers,omitempty"`

	// Placement of the visualizer band, relative to the canvas.
	RelX      float64 `yaml:"rel_x"`
	RelY      float64 `yaml:"rel_y"`
	RelWidth  float64 `yaml:"rel_width"`
	RelHeight float64 `yaml:"rel_height"`
}

type Layers struct {
	Images     bool `yaml:"images"`
	Text       bool `yaml:"text"`
	Visualizer bool `yaml:"visualizer"`
}

type Transcode struct {
	Enabled      bool          `yaml:"enabled"`
	Server       string        `yaml:"server"`
	BasePath     string        `yaml:"base_path"`
	Quality      string        `yaml:"quality"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	QRPath       string        `yaml:"qr"`
}

// AudioCalibration holds the empirical band gains of the audio analysis. The defaults were
// tuned for a 2048-point FFT at 44.1/48 kHz.
type AudioCalibration struct {
	UsableFraction float64 `yaml:"usable_fraction"`
	BassSplit      float64 `yaml:"bass_split"`
	MidSplit       float64 `yaml:"mid_split"`
	BassGain       float64 `yaml:"bass_gain"`
	MidGain        float64 `yaml:"mid_gain"`
	TrebleGain     float64 `yaml:"treble_gain"`
	TreblePeak     float64 `yaml:"treble_peak"`
	VolumeGain     float64 `yaml:"volume_gain"`
	Alpha          float64 `yaml:"alpha"`
	TrebleAlpha    float64 `yaml:"treble_alpha"`
}

func DefaultAudioCalibration() AudioCalibration {
	return AudioCalibration{
		UsableFraction: 0.5,
		BassSplit:      0.15,
		MidSplit:       0.35,
		BassGain:       1.5,
		MidGain:        2.0,
		TrebleGain:     8.0,
		TreblePeak:     0.4,
		VolumeGain:     1.5,
		Alpha:          0.4,
		TrebleAlpha:    0.5,
	}
}

// Validate rejects calibrations the band split cannot work with.
func (a AudioCalibration) Validate() error {
	switch {
	case a.UsableFraction <= 0 || a.UsableFraction > 1:
		return fmt.Errorf("usable_fraction must be in (0, 1], got %g", a.UsableFraction)
	case a.BassSplit < 0 || a.BassSplit > a.MidSplit || a.MidSplit > 1:
		return fmt.Errorf("band splits must satisfy 0 <= bass_split <= mid_split <= 1, got %g/%g", a.BassSplit, a.MidSplit)
	case a.Alpha <= 0 || a.Alpha > 1 || a.TrebleAlpha <= 0 || a.TrebleAlpha > 1:
		return fmt.Errorf("alpha and treble_alpha must be in (0, 1], got %g/%g", a.Alpha, a.TrebleAlpha)
	case a.TreblePeak < 0 || a.TreblePeak > 1:
		return fmt.Errorf("treble_peak must be in [0, 1], got %g", a.TreblePeak)
	}
	return nil
}

// Preset is a named output frame size.
type Preset struct {
	Name          string
	Width, Height int
}

var presets = []Preset{
	{"16:9", 1920, 1080},
	{"9:16", 1080, 1920},
	{"4:5", 1080, 1350},
	{"1:1", 1080, 1080},
}

func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

func Default() *Config {
	return &Config{
		OutputVideo:  "output.mp4",
		Width:        1920,
		Height:       1080,
		Preset:       "16:9",
		FPS:          30,
		SlideSeconds: 5,
		DPI:          150,
		Quality:      0, // авто: по энкодеру
		Visualizer: Visualizer{
			Name:      "bars",
			Color:     "#ffffff",
			Opacity:   0.8,
			RelX:      0,
			RelY:      0.7,
			RelWidth:  1,
			RelHeight: 0.3,
		},
		Layers: Layers{Images: true, Text: true, Visualizer: true},
		Audio:  DefaultAudioCalibration(),
		Transcode: Transcode{
			Server:       "http://localhost:3000",
			BasePath:     "/visualizer",
			Quality:      "high",
			PollInterval: time.Second,
			Timeout:      30 * time.Minute,
		},
	}
}

// Load reads a YAML project file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Audio.Validate(); err != nil {
		return nil, fmt.Errorf("audio_calibration in %s: %w", path, err)
	}
	if err := cfg.ApplyPreset(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyPreset overrides Width/Height from the named preset. An empty preset keeps explicit sizes.
func (c *Config) ApplyPreset() error {
	if c.Preset == "" {
		return nil
	}
	p, ok := LookupPreset(c.Preset)
	if !ok {
		return fmt.Errorf("unknown preset: %s", c.Preset)
	}
	c.Width, c.Height = p.Width, p.Height
	return nil
}

// LoadEnv loads .env files (missing files are skipped) and applies AUDIOCANVAS_* overrides.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v := os.Getenv("AUDIOCANVAS_TRANSCODE_URL"); v != "" {
		c.Transcode.Server = strings.TrimRight(v, "/")
		c.Transcode.Enabled = true
	}
	if v := os.Getenv("AUDIOCANVAS_TRANSCODE_BASE"); v != "" {
		c.Transcode.BasePath = v
	}
	if v := os.Getenv("AUDIOCANVAS_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUDIOCANVAS_POLL_INTERVAL: %w", err)
		}
		c.Transcode.PollInterval = d
	}
	if v := os.Getenv("AUDIOCANVAS_JOB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUDIOCANVAS_JOB_TIMEOUT: %w", err)
		}
		c.Transcode.Timeout = d
	}
	return nil
}
