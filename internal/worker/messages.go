// Package worker implements the recording worker channel: a background goroutine that owns
// an off-screen canvas and a request/response channel that drives it from the interactive side.
package worker

import (
	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/renderer"
	"github.com/ivlev/audiocanvas/internal/scene"
)

type MessageType string

const (
	InitCanvas       MessageType = "INIT_CANVAS"
	UpdateDimensions MessageType = "UPDATE_DIMENSIONS"
	UpdateFlags      MessageType = "UPDATE_FLAGS"
	LoadImage        MessageType = "LOAD_IMAGE"
	RemoveImage      MessageType = "REMOVE_IMAGE"
	UpdateVisualizer MessageType = "UPDATE_VISUALIZER"
	UpdateTexts      MessageType = "UPDATE_TEXTS"
	StartRecording   MessageType = "START_RECORDING"
	StopRecording    MessageType = "STOP_RECORDING"
	RenderFrame      MessageType = "RENDER_FRAME"
)

// Request is the outbound envelope. Data holds one of the payload types below; it is
// owned by the worker once sent.
type Request struct {
	Type      MessageType
	Data      any
	RequestID int64
}

// Response is the inbound envelope. Extra carries per-type result values.
type Response struct {
	Type      MessageType
	RequestID int64
	Success   bool
	Error     string
	Extra     map[string]any
}

// InitPayload hands the surface over. Canvas must come from canvas.Transfer.
type InitPayload struct {
	Canvas *canvas.Canvas
	Width  int
	Height int
}

type Dimensions struct {
	Width  int
	Height int
}

// ImagePayload carries an encoded image blob and where to draw it.
type ImagePayload struct {
	ID       string
	Blob     []byte
	Rect     geometry.Rect
	Rotation float64
	Opacity  float64
}

type RemovePayload struct {
	ID string
}

// VisualizerParams selects the algorithm and its placement. Opacity scales every pass;
// Tiers sets the per-pass opacities of multi-pass visualizers and is ignored by the others.
type VisualizerParams struct {
	Name    string
	Color   scene.Color
	Opacity float64
	Tiers   []float64
	Rect    geometry.Rect
}

// TextState is a value copy of a text object; live objects never cross to the worker.
type TextState struct {
	ID        string
	Content   string
	FontSize  float64
	Color     scene.Color
	Rect      geometry.Rect
	Opacity   float64
	Hidden    bool
	Animation scene.Fade
}

// SnapshotTexts copies the text objects into worker-safe values.
func SnapshotTexts(texts []*scene.Text) []TextState {
	out := make([]TextState, len(texts))
	for i, t := range texts {
		out[i] = TextState{
			ID:        t.ID,
			Content:   t.Content,
			FontSize:  t.FontSize,
			Color:     t.Color,
			Rect:      t.Rect,
			Opacity:   t.Opacity,
			Hidden:    t.Hidden,
			Animation: t.Animation,
		}
	}
	return out
}

// FramePayload is the one-way render request.
type FramePayload = renderer.Frame
