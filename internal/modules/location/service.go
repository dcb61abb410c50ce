// README: Rider location tracker; permission flow, first fix, continuous watch and teardown.
package location

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ridemap/internal/modules/geo"
)

// RiderFocusAnimation is how long the camera takes to frame the rider's first fix.
const RiderFocusAnimation = 1000 * time.Millisecond

// Hooks are notified after the tracker's state has changed. They run on the
// goroutine that produced the change and must not block.
type Hooks struct {
	OnPosition func(RiderPosition)
	OnError    func(msg string)
	OnFocus    func(region geo.Region, animate time.Duration)
	// Dispatch runs every state publication (fix, watch update, denial).
	// It defaults to running inline; callers with an event loop pass a
	// function that executes fn there and returns once it has run.
	Dispatch func(fn func())
}

type Tracker struct {
	provider Provider
	cfg      WatchConfig
	viewport geo.Viewport
	hooks    Hooks

	mu          sync.Mutex
	state       State
	position    RiderPosition
	hasPosition bool
	errMsg      string
	sub         *Subscription
}

func NewTracker(provider Provider, cfg WatchConfig, viewport geo.Viewport, hooks Hooks) *Tracker {
	return &Tracker{
		provider: provider,
		cfg:      cfg,
		viewport: viewport,
		hooks:    hooks,
		state:    StateUninitialized,
	}
}

func (t *Tracker) dispatch(fn func()) {
	if t.hooks.Dispatch != nil {
		t.hooks.Dispatch(fn)
		return
	}
	fn()
}

// Start runs the permission flow and, when granted, publishes one immediate
// fix and opens the continuous watch. A denial is published through
// OnError and is final; Start does not retry. Start blocks on the provider
// and is meant to run on its own goroutine.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.transition(StatePermissionRequested) {
		return ErrAlreadyStarted
	}

	granted, err := t.provider.RequestPermission(ctx)
	if err != nil {
		log.Printf("location permission request failed: %v", err)
	}
	if err != nil || !granted {
		t.dispatch(t.deny)
		return nil
	}
	if !t.transition(StatePermissionGranted) {
		return nil
	}

	fix, err := t.provider.CurrentFix(ctx)
	if err != nil {
		// The watch below still delivers a position later.
		log.Printf("initial location fix failed: %v", err)
	} else {
		t.dispatch(func() {
			if t.publish(fix) && t.hooks.OnFocus != nil {
				t.hooks.OnFocus(t.viewport.For(fix.Coordinate, 1), RiderFocusAnimation)
			}
		})
	}

	sub, err := t.provider.Watch(ctx, t.cfg, func(p RiderPosition) {
		t.dispatch(func() { t.publish(p) })
	})
	if err != nil {
		return fmt.Errorf("opening location watch: %w", err)
	}

	t.mu.Lock()
	if t.state == StateStopped {
		t.mu.Unlock()
		sub.Cancel()
		return nil
	}
	t.state = StateTracking
	t.sub = sub
	t.mu.Unlock()

	log.Printf("location watch started (interval=%v, distance=%.0fm, accuracy=%s)",
		t.cfg.MinInterval, t.cfg.MinDistanceM, t.cfg.Accuracy)
	return nil
}

// Stop cancels the watch and clears the published position. It is safe to
// call more than once and before Start.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.state == StateStopped {
		t.mu.Unlock()
		return
	}
	t.state = StateStopped
	sub := t.sub
	t.sub = nil
	t.position = RiderPosition{}
	t.hasPosition = false
	t.mu.Unlock()

	if sub != nil {
		sub.Cancel()
		log.Println("location watch stopped")
	}
}

func (t *Tracker) deny() {
	if !t.transition(StatePermissionDenied) {
		return
	}
	t.mu.Lock()
	t.errMsg = DeniedMessage
	t.mu.Unlock()
	log.Println("location permission denied; tracking disabled")
	if t.hooks.OnError != nil {
		t.hooks.OnError(DeniedMessage)
	}
}

// publish replaces the rider position. Positions arriving after Stop are dropped.
func (t *Tracker) publish(p RiderPosition) bool {
	t.mu.Lock()
	if t.state == StateStopped {
		t.mu.Unlock()
		return false
	}
	t.position = p
	t.hasPosition = true
	t.mu.Unlock()

	if t.hooks.OnPosition != nil {
		t.hooks.OnPosition(p)
	}
	return true
}

func (t *Tracker) transition(to State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !CanTransition(t.state, to) {
		return false
	}
	t.state = to
	return true
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Position() (RiderPosition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position, t.hasPosition
}

// ErrMsg is the user-facing error, empty when there is none.
func (t *Tracker) ErrMsg() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

// Err returns ErrPermissionDenied once access has been refused.
func (t *Tracker) Err() error {
	if t.ErrMsg() != "" {
		return ErrPermissionDenied
	}
	return nil
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.errMsg != "":
		return StatusError
	case t.hasPosition:
		return StatusReady
	default:
		return StatusLoading
	}
}
