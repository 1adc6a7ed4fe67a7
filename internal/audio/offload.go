package audio

import (
	"context"
	"sync"

	"github.com/ivlev/audiocanvas/internal/config"
)

// Offload runs an Analyzer on its own goroutine. Submit never blocks: when the
// analysis goroutine is busy, the pending buffer is replaced by the newest one.
type Offload struct {
	analyzer *Analyzer
	in       chan []byte
	reset    chan struct{}

	// OnFrame, if set, is called from the analysis goroutine after each step.
	OnFrame func(Frame)

	mu     sync.RWMutex
	latest Frame
}

func NewOffload(cal config.AudioCalibration) *Offload {
	return &Offload{
		analyzer: NewAnalyzer(cal),
		in:       make(chan []byte, 1),
		reset:    make(chan struct{}, 1),
	}
}

// Submit hands a copy of data[:n] to the analysis goroutine.
func (o *Offload) Submit(data []byte, n int) {
	if n > len(data) {
		n = len(data)
	}
	buf := make([]byte, n)
	copy(buf, data[:n])

	for {
		select {
		case o.in <- buf:
			return
		default:
		}
		select {
		case <-o.in:
		default:
		}
	}
}

// Reset asks the analysis goroutine to zero its accumulators before the next buffer.
func (o *Offload) Reset() {
	select {
	case o.reset <- struct{}{}:
	default:
	}
}

// Latest returns the most recent analysis result.
func (o *Offload) Latest() Frame {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest
}

// Run processes buffers until ctx is done.
func (o *Offload) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.reset:
			o.analyzer.Reset()
			o.mu.Lock()
			o.latest = Frame{}
			o.mu.Unlock()
		case buf := <-o.in:
			select {
			case <-o.reset:
				o.analyzer.Reset()
			default:
			}
			f := o.analyzer.Analyze(buf, len(buf))
			o.mu.Lock()
			o.latest = f
			o.mu.Unlock()
			if o.OnFrame != nil {
				o.OnFrame(f)
			}
		}
	}
}
