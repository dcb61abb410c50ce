// README: Fleet simulator; owns vehicle state and random-walks every vehicle on a fixed cadence.
package fleet

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"ridemap/internal/config"
	"ridemap/internal/types"
)

const mirrorTimeout = 2 * time.Second

// Mirror receives the fleet after every tick. Failures are logged and never
// affect the simulation.
type Mirror interface {
	Sync(ctx context.Context, vehicles []Vehicle) error
}

type Service struct {
	store    *Store
	cfg      config.FleetConfig
	mirror   Mirror
	logTicks bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Service)

// WithRand fixes the random source, mainly for tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithTickLogging(enabled bool) Option {
	return func(s *Service) { s.logTicks = enabled }
}

func NewService(store *Store, cfg config.FleetConfig, opts ...Option) *Service {
	s := &Service{store: store, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

// Seed inserts the initial fleet. It fails on duplicate ids or invalid coordinates.
func (s *Service) Seed(seeds []Seed) error {
	for _, seed := range seeds {
		if err := s.Add(seed.Vehicle()); err != nil {
			return fmt.Errorf("seeding vehicle %s: %w", seed.ID, err)
		}
	}
	return nil
}

func (s *Service) Add(v Vehicle) error {
	if v.ID == "" || !v.Coordinate.Valid() {
		return ErrInvalidSeed
	}
	return s.store.Insert(v)
}

func (s *Service) Remove(id types.ID) bool {
	return s.store.Delete(id)
}

func (s *Service) Get(id types.ID) (Vehicle, bool) {
	return s.store.Get(id)
}

// Snapshot returns copies of all vehicles ordered by id.
func (s *Service) Snapshot() []Vehicle {
	return s.store.Values()
}

// Tick moves every vehicle by an independent uniform step in
// [-Jitter/2, +Jitter/2) on each axis. Positions are not clamped, so a long
// session drifts freely.
func (s *Service) Tick() {
	for _, v := range s.store.Values() {
		v.Coordinate = types.Point{
			Lat: v.Coordinate.Lat + s.step(),
			Lng: v.Coordinate.Lng + s.step(),
		}
		// A vehicle removed since Values was taken is simply skipped.
		s.store.Replace(v)
	}
	if s.logTicks {
		log.Printf("fleet tick: moved %d vehicles", s.store.Count())
	}
}

func (s *Service) step() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return (s.rng.Float64() - 0.5) * s.cfg.Jitter
}

// RunTicker calls schedule(s.Tick) every TickInterval until ctx is done.
// schedule decides where the tick executes (the session loop in production)
// and must return once the tick has been applied.
func (s *Service) RunTicker(ctx context.Context, schedule func(func())) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			schedule(s.Tick)
			s.syncMirror(ctx)
		}
	}
}

func (s *Service) syncMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	if err := s.mirror.Sync(mctx, s.Snapshot()); err != nil {
		log.Printf("fleet mirror sync failed: %v", err)
	}
}
