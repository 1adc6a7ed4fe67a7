package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/renderer"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const (
	// InitTimeout covers the surface transfer, which waits behind pending bitmap decodes.
	InitTimeout    = 10 * time.Second
	DefaultTimeout = 5 * time.Second
)

var (
	ErrTimeout       = errors.New("worker: request timed out")
	ErrChannelFailed = errors.New("worker: channel failed to initialize")
	ErrClosed        = errors.New("worker: channel closed")
)

// Endpoint transports envelopes to a worker and back.
type Endpoint interface {
	Send(Request) error
	Responses() <-chan Response
	Close() error
}

// Channel is the interactive side. Responses are matched to requests by id only,
// never by arrival order.
type Channel struct {
	InitTimeout time.Duration
	Timeout     time.Duration

	ep      Endpoint
	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan Response
	failed  bool
	closed  bool
	done    chan struct{}
}

// NewChannel starts dispatching responses from ep.
func NewChannel(ep Endpoint) *Channel {
	c := &Channel{
		InitTimeout: InitTimeout,
		Timeout:     DefaultTimeout,
		ep:          ep,
		pending:     make(map[int64]chan Response),
		done:        make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Channel) dispatch() {
	for {
		select {
		case <-c.done:
			return
		case resp := <-c.ep.Responses():
			c.mu.Lock()
			ch, ok := c.pending[resp.RequestID]
			delete(c.pending, resp.RequestID)
			c.mu.Unlock()
			// a response for an abandoned request has no waiter
			if ok {
				ch <- resp
			}
		}
	}
}

// Pending returns the number of requests awaiting a response.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Failed reports whether initialization failed; the channel is unusable afterwards.
func (c *Channel) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

func (c *Channel) usable() error {
	if c.closed {
		return ErrClosed
	}
	if c.failed {
		return ErrChannelFailed
	}
	return nil
}

func (c *Channel) request(ctx context.Context, t MessageType, data any, timeout time.Duration) (Response, error) {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return Response{}, err
	}
	c.nextID++
	id := c.nextID
	ch := make(chan Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	abandon := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	if err := c.ep.Send(Request{Type: t, Data: data, RequestID: id}); err != nil {
		abandon()
		return Response{}, fmt.Errorf("%s: %w", t, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if !resp.Success {
			return resp, fmt.Errorf("%s: %s", t, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		abandon()
		return Response{}, fmt.Errorf("%s (#%d) after %v: %w", t, id, timeout, ErrTimeout)
	case <-ctx.Done():
		abandon()
		return Response{}, ctx.Err()
	}
}

// Init transfers the surface to the worker. Any failure is fatal to the channel.
func (c *Channel) Init(ctx context.Context, surface *canvas.Canvas, width, height int) error {
	moved, err := surface.Transfer()
	if err != nil {
		c.fail()
		return fmt.Errorf("%w: %v", ErrChannelFailed, err)
	}
	if _, err := c.request(ctx, InitCanvas, InitPayload{Canvas: moved, Width: width, Height: height}, c.InitTimeout); err != nil {
		c.fail()
		return err
	}
	return nil
}

func (c *Channel) fail() {
	c.mu.Lock()
	c.failed = true
	c.mu.Unlock()
}

func (c *Channel) Resize(ctx context.Context, width, height int) error {
	_, err := c.request(ctx, UpdateDimensions, Dimensions{Width: width, Height: height}, c.Timeout)
	return err
}

func (c *Channel) SetFlags(ctx context.Context, f renderer.Flags) error {
	_, err := c.request(ctx, UpdateFlags, f, c.Timeout)
	return err
}

// LoadImage sends an encoded blob; the caller must not touch p.Blob afterwards.
// It returns the decoded dimensions.
func (c *Channel) LoadImage(ctx context.Context, p ImagePayload) (int, int, error) {
	resp, err := c.request(ctx, LoadImage, p, c.Timeout)
	if err != nil {
		return 0, 0, err
	}
	w, _ := resp.Extra["width"].(int)
	h, _ := resp.Extra["height"].(int)
	return w, h, nil
}

func (c *Channel) RemoveImage(ctx context.Context, id string) error {
	_, err := c.request(ctx, RemoveImage, RemovePayload{ID: id}, c.Timeout)
	return err
}

func (c *Channel) SetVisualizer(ctx context.Context, p VisualizerParams) error {
	_, err := c.request(ctx, UpdateVisualizer, p, c.Timeout)
	return err
}

// SetTexts sends a value snapshot of the text objects.
func (c *Channel) SetTexts(ctx context.Context, texts []*scene.Text) error {
	_, err := c.request(ctx, UpdateTexts, SnapshotTexts(texts), c.Timeout)
	return err
}

func (c *Channel) StartRecording(ctx context.Context) error {
	_, err := c.request(ctx, StartRecording, nil, c.Timeout)
	return err
}

func (c *Channel) StopRecording(ctx context.Context) error {
	_, err := c.request(ctx, StopRecording, nil, c.Timeout)
	return err
}

// RenderFrame is one-way: no response is awaited. Callers send at most one per tick.
func (c *Channel) RenderFrame(f renderer.Frame) error {
	c.mu.Lock()
	err := c.usable()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.ep.Send(Request{Type: RenderFrame, Data: f})
}

// Close stops dispatching and closes the endpoint. Pending requests run into their timeouts.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return c.ep.Close()
}

// LocalEndpoint runs a Worker on its own goroutine.
type LocalEndpoint struct {
	req    chan Request
	resp   chan Response
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
}

// Spawn starts w and returns the endpoint connected to it.
func Spawn(ctx context.Context, w *Worker) *LocalEndpoint {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	e := &LocalEndpoint{
		req:    make(chan Request, 16),
		resp:   make(chan Response, 16),
		ctx:    gctx,
		cancel: cancel,
		g:      g,
	}
	g.Go(func() error { return w.Run(gctx, e.req, e.resp) })
	return e
}

// Send blocks while the worker queue is full.
func (e *LocalEndpoint) Send(r Request) error {
	select {
	case e.req <- r:
		return nil
	case <-e.ctx.Done():
		return ErrClosed
	}
}

func (e *LocalEndpoint) Responses() <-chan Response { return e.resp }

// Close stops the worker and waits for it to release its bitmaps.
func (e *LocalEndpoint) Close() error {
	e.cancel()
	if err := e.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
