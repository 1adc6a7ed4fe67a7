package visualizer

import (
	"math/rand"
	"time"

	"github.com/ivlev/audiocanvas/internal/canvas"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const (
	particleSpawnCount = 5
	particleSpawnGap   = 50 * time.Millisecond
	particleMax        = 200
	particleDrag       = 0.98
	particleDecay      = 0.02
	particleThreshold  = 0.5
)

type particle struct {
	x, y   float64
	vx, vy float64
	size   float64
	life   float64
}

// Particles is the only stateful visualizer: it keeps its particle list and the time of the
// last spawn between frames. Use one instance per drawing surface.
type Particles struct {
	rng       *rand.Rand
	now       func() time.Time
	particles []particle
	lastSpawn time.Time
}

// NewParticles creates a particle system. nil arguments select a time-seeded source and time.Now.
func NewParticles(rng *rand.Rand, now func() time.Time) *Particles {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Particles{rng: rng, now: now}
}

func (*Particles) Name() string        { return "particles" }
func (*Particles) NeedsTimeData() bool { return false }

// Count returns the number of live particles.
func (p *Particles) Count() int { return len(p.particles) }

// Reset drops every particle.
func (p *Particles) Reset() {
	p.particles = nil
	p.lastSpawn = time.Time{}
}

func (p *Particles) Draw(c *canvas.Canvas, data []byte, n int, width, height float64, col scene.Color, opacity float64) {
	p.Step(data, n, width, height)
	for _, pt := range p.particles {
		c.FillCircle(pt.x, pt.y, pt.size*pt.life, col.WithAlpha(opacity*pt.life))
	}
}

// Step spawns, integrates and trims particles for one frame.
func (p *Particles) Step(data []byte, n int, width, height float64) {
	n = usable(data, n)
	if n > 0 {
		bass := float64(data[0]) / 255
		now := p.now()
		if bass > particleThreshold && now.Sub(p.lastSpawn) >= particleSpawnGap {
			p.spawn(width/2, height/2, bass)
			p.lastSpawn = now
		}
	}

	alive := p.particles[:0]
	for _, pt := range p.particles {
		pt.x += pt.vx
		pt.y += pt.vy
		pt.vx *= particleDrag
		pt.vy *= particleDrag
		pt.life -= particleDecay
		if pt.life > 0 {
			alive = append(alive, pt)
		}
	}
	p.particles = alive

	if over := len(p.particles) - particleMax; over > 0 {
		p.particles = append(p.particles[:0], p.particles[over:]...)
	}
}

func (p *Particles) spawn(x, y, bass float64) {
	for i := 0; i < particleSpawnCount; i++ {
		p.particles = append(p.particles, particle{
			x:    x,
			y:    y,
			vx:   (p.rng.Float64() - 0.5) * 10 * bass,
			vy:   (p.rng.Float64() - 0.5) * 10 * bass,
			size: 2 + p.rng.Float64()*4,
			life: 1,
		})
	}
}
