package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует *image.RGBA одинакового размера (декодированные
// ассеты воркера, буферы кадров) и считает выданные, но не возвращённые битмапы.
type ImagePool struct {
	pools       map[string]*sync.Pool
	mu          sync.RWMutex
	outstanding atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[string]*sync.Pool)}
}

// Get возвращает битмап нужного размера. Содержимое не очищается.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	p.outstanding.Add(1)
	return pool.Get().(*image.RGBA)
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		p.outstanding.Add(-1)
		pool.Put(img)
	}
}

// Outstanding - сколько битмапов выдано и ещё не возвращено.
func (p *ImagePool) Outstanding() int64 {
	return p.outstanding.Load()
}
