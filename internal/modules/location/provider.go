// README: Device location provider contract and the cancellable watch subscription.
package location

import (
	"context"
	"sync"
	"time"

	"ridemap/internal/modules/geo"
)

// Provider is the platform permission + position source.
type Provider interface {
	// RequestPermission asks for foreground location access.
	RequestPermission(ctx context.Context) (bool, error)
	// CurrentFix returns a single position.
	CurrentFix(ctx context.Context) (RiderPosition, error)
	// Watch streams positions to fn until the returned subscription is cancelled.
	Watch(ctx context.Context, cfg WatchConfig, fn func(RiderPosition)) (*Subscription, error)
}

// Subscription is the cancel handle of a Watch. Cancel is idempotent and,
// once it returns, no further callback is delivered. Callbacks must not call
// Cancel themselves.
type Subscription struct {
	mu        sync.RWMutex
	cancelled bool
	once      sync.Once
	stop      func()
}

// NewSubscription wraps stop, which releases the provider side of the watch.
func NewSubscription(stop func()) *Subscription {
	return &Subscription{stop: stop}
}

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		// Waits for an in-flight delivery to finish.
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
		if s.stop != nil {
			s.stop()
		}
	})
}

func (s *Subscription) Cancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled
}

// Deliver invokes fn with p unless the subscription was cancelled.
func (s *Subscription) Deliver(fn func(RiderPosition), p RiderPosition) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cancelled {
		return false
	}
	fn(p)
	return true
}

// watchFilter applies the WatchConfig thresholds to a raw position stream.
type watchFilter struct {
	cfg  WatchConfig
	last RiderPosition
	has  bool
}

func (f *watchFilter) accept(p RiderPosition) bool {
	if !f.has {
		f.last, f.has = p, true
		return true
	}
	if p.Timestamp.Sub(f.last.Timestamp) < f.cfg.MinInterval-intervalSlack(f.cfg) {
		return false
	}
	if geo.GreatCircleMeters(f.last.Coordinate, p.Coordinate) < f.cfg.MinDistanceM {
		return false
	}
	f.last = p
	return true
}

// intervalSlack absorbs ticker wake-up jitter so that a source polled every
// MinInterval is not throttled down to every other sample.
func intervalSlack(cfg WatchConfig) time.Duration {
	return cfg.MinInterval / 10
}

// pollInterval is how often a polling provider samples its source.
func pollInterval(cfg WatchConfig) time.Duration {
	if cfg.MinInterval < 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	return cfg.MinInterval
}
