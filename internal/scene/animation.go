package scene

// Fade describes a fade-in / hold / fade-out schedule in seconds of playback time.
// A zero FadeOut keeps the object visible after the fade-in.
type Fade struct {
	Enabled bool    `yaml:"enabled"`
	Start   float64 `yaml:"start"`
	FadeIn  float64 `yaml:"fade_in"`
	Hold    float64 `yaml:"hold"`
	FadeOut float64 `yaml:"fade_out"`
	Easing  string  `yaml:"easing,omitempty"` // "linear" or "ease-in-out" (default)
}

// Factor evaluates the fade curve at time t and returns a value in [0,1].
func (f Fade) Factor(t float64) float64 {
	if !f.Enabled {
		return 1
	}
	local := t - f.Start
	if local < 0 {
		return 0
	}
	if f.FadeIn > 0 {
		if local < f.FadeIn {
			return f.ease(local / f.FadeIn)
		}
		local -= f.FadeIn
	}
	if f.FadeOut <= 0 {
		return 1
	}
	if local < f.Hold {
		return 1
	}
	local -= f.Hold
	if local < f.FadeOut {
		return 1 - f.ease(local/f.FadeOut)
	}
	return 0
}

// End returns the time after which the object is fully faded out, or -1 if it never fades out.
func (f Fade) End() float64 {
	if !f.Enabled || f.FadeOut <= 0 {
		return -1
	}
	return f.Start + f.FadeIn + f.Hold + f.FadeOut
}

func (f Fade) ease(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if f.Easing == "linear" {
		return t
	}
	return easeInOutCubic(t)
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
