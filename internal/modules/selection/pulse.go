// README: Selection pulse; a two-phase spring (0 -> 1 -> 0) stepped at a fixed 60 Hz.
package selection

import (
	"sync"
	"time"

	"ridemap/internal/config"
)

const (
	frameStep     = 1.0 / 60
	restThreshold = 0.001
	// maxPhaseFrames bounds a phase that never settles (10s of frames).
	maxPhaseFrames = 600
)

// Spring holds the physical constants of a damped spring with unit mass.
type Spring struct {
	Stiffness float64
	Damping   float64
	Mass      float64
}

// SpringFromFrictionTension converts the friction/tension pair used by
// mobile animation toolkits into stiffness and damping.
func SpringFromFrictionTension(friction, tension float64) Spring {
	return Spring{
		Stiffness: (tension-30)*3.62 + 194,
		Damping:   (friction-8)*3 + 25,
		Mass:      1,
	}
}

// Phase returns the frames of a spring run from `from` to `to`. The last
// frame is exactly `to`.
func (s Spring) Phase(from, to float64) []float64 {
	x, v := from, 0.0
	frames := make([]float64, 0, 64)
	for i := 0; i < maxPhaseFrames; i++ {
		a := (-s.Stiffness*(x-to) - s.Damping*v) / s.Mass
		v += a * frameStep
		x += v * frameStep
		if abs(v) <= restThreshold && abs(x-to) <= restThreshold {
			break
		}
		frames = append(frames, x)
	}
	return append(frames, to)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Pulse plays the selection animation. Each Start supersedes the previous
// run; once Cancel or Start returns, no frame of an older run is published.
type Pulse struct {
	spring   Spring
	interval time.Duration
	onFrame  func(float64)

	mu    sync.Mutex
	gen   uint64
	value float64
	stop  chan struct{}
	done  chan struct{}
}

// NewPulse builds a pulse from cfg. onFrame runs with the pulse lock held
// and must not call back into the Pulse.
func NewPulse(cfg config.PulseConfig, onFrame func(float64)) *Pulse {
	return &Pulse{
		spring:   SpringFromFrictionTension(cfg.Friction, cfg.Tension),
		interval: cfg.FrameInterval,
		onFrame:  onFrame,
	}
}

func (p *Pulse) Start() {
	p.mu.Lock()
	p.cancelLocked()
	gen := p.gen
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done
	p.mu.Unlock()

	go p.run(gen, stop, done)
}

// Cancel stops the current run, leaving the value where it was.
func (p *Pulse) Cancel() {
	p.mu.Lock()
	p.cancelLocked()
	p.mu.Unlock()
}

func (p *Pulse) cancelLocked() {
	p.gen++
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

// Wait blocks until the most recently started run has exited.
func (p *Pulse) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Pulse) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *Pulse) run(gen uint64, stop, done chan struct{}) {
	defer close(done)
	for _, phase := range [][2]float64{{0, 1}, {1, 0}} {
		for _, x := range p.spring.Phase(phase[0], phase[1]) {
			if !p.publish(gen, clamp01(x)) {
				return
			}
			if p.interval <= 0 {
				continue
			}
			t := time.NewTimer(p.interval)
			select {
			case <-stop:
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

func (p *Pulse) publish(gen uint64, x float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return false
	}
	p.value = x
	if p.onFrame != nil {
		p.onFrame(x)
	}
	return true
}
