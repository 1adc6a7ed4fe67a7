package geometry

import (
	"math"
	"testing"
)

func TestPixelRoundTrip(t *testing.T) {
	rects := []Rect{
		{X: 0, Y: 0, W: 1, H: 1},
		{X: 0.1, Y: 0.1, W: 0.3, H: 0.3},
		{X: 0.333, Y: 0.777, W: 0.05, H: 0.2},
		{X: -0.2, Y: 1.3, W: 0.5, H: 0.1}, // text may live off-canvas
	}
	dims := [][2]float64{{1920, 1080}, {1080, 1920}, {1080, 1350}, {320, 180}, {7, 3}}

	for _, r := range rects {
		for _, d := range dims {
			got := FromPixels(r.ToPixels(d[0], d[1]), d[0], d[1])
			if !near(got.X, r.X) || !near(got.Y, r.Y) || !near(got.W, r.W) || !near(got.H, r.H) {
				t.Errorf("round trip %v @ %vx%v: got %v", r, d[0], d[1], got)
			}
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   Rect
		want Rect
	}{
		{Rect{X: -0.5, Y: -0.1, W: 0.2, H: 0.2}, Rect{X: 0, Y: 0, W: 0.2, H: 0.2}},
		{Rect{X: 0.9, Y: 0.95, W: 0.2, H: 0.2}, Rect{X: 0.8, Y: 0.8, W: 0.2, H: 0.2}},
		{Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2}, Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2}},
		{Rect{X: 0.3, Y: 0.3, W: 1.5, H: 0.1}, Rect{X: 0, Y: 0.3, W: 1.5, H: 0.1}},
	}
	for _, tt := range tests {
		got := tt.in.Clamp()
		if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHitHandle(t *testing.T) {
	r := PixelRect{X: 100, Y: 100, W: 200, H: 100}
	tests := []struct {
		pt   Point
		want Handle
	}{
		{Point{100, 100}, HandleTopLeft},
		{Point{303, 198}, HandleBottomRight},
		{Point{200, 100}, HandleTop},
		{Point{300, 150}, HandleRight},
		{Point{200, 150}, HandleNone},
	}
	for _, tt := range tests {
		if got := HitHandle(r, tt.pt, 10); got != tt.want {
			t.Errorf("HitHandle(%v) = %q, want %q", tt.pt, got, tt.want)
		}
	}
}

func TestParseHandle(t *testing.T) {
	for _, h := range Handles {
		got, err := ParseHandle(string(h))
		if err != nil || got != h {
			t.Errorf("ParseHandle(%q) = %q, %v", h, got, err)
		}
	}
	if _, err := ParseHandle("resize-x"); err == nil {
		t.Error("expected error for unknown handle")
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
