// README: Simulated device location source: fixed permission answer and a slow random walk.
package location

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"ridemap/internal/types"
)

const simulatedAccuracyM = 5.0

type SimulatedProvider struct {
	grant bool
	// Step is the full width of the per-axis random step in degrees per sample.
	Step float64
	now  func() time.Time

	mu  sync.Mutex
	pos types.Point
	rng *rand.Rand
}

func NewSimulatedProvider(start types.Point, grant bool) *SimulatedProvider {
	seed := uint64(time.Now().UnixNano())
	return &SimulatedProvider{
		grant: grant,
		Step:  0.0004,
		now:   time.Now,
		pos:   start,
		rng:   rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

func (p *SimulatedProvider) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.grant, nil
}

func (p *SimulatedProvider) CurrentFix(ctx context.Context) (RiderPosition, error) {
	if err := ctx.Err(); err != nil {
		return RiderPosition{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fix(), nil
}

// Watch samples a walking position every MinInterval and forwards samples
// that pass the distance filter.
func (p *SimulatedProvider) Watch(ctx context.Context, cfg WatchConfig, fn func(RiderPosition)) (*Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)
	sub := NewSubscription(cancel)
	filter := &watchFilter{cfg: cfg}

	go func() {
		ticker := time.NewTicker(pollInterval(cfg))
		defer ticker.Stop()
		for {
			select {
			case <-wctx.Done():
				return
			case <-ticker.C:
				pos := p.walk()
				if filter.accept(pos) {
					sub.Deliver(fn, pos)
				}
			}
		}
	}()
	return sub, nil
}

func (p *SimulatedProvider) walk() RiderPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos.Lat += (p.rng.Float64() - 0.5) * p.Step
	p.pos.Lng += (p.rng.Float64() - 0.5) * p.Step
	return p.fix()
}

func (p *SimulatedProvider) fix() RiderPosition {
	return RiderPosition{Coordinate: p.pos, AccuracyM: simulatedAccuracyM, Timestamp: p.now()}
}
