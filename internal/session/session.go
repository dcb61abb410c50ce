// README: Rider map session; owns the fleet, tracker, selection and the serialized loop that mutates them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ridemap/internal/config"
	"ridemap/internal/maps"
	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/geo"
	"ridemap/internal/modules/location"
	"ridemap/internal/modules/proximity"
	"ridemap/internal/modules/selection"
	"ridemap/internal/types"
)

const (
	geocodeTimeout     = 2 * time.Second
	mirrorClearTimeout = 2 * time.Second
	// pickupRelabelM is how far the rider moves before the pickup label is re-geocoded.
	pickupRelabelM     = 25
	geocodeRetryPeriod = 30 * time.Second
)

var (
	ErrNoMirror        = errors.New("fleet mirror not configured")
	ErrNoRiderPosition = errors.New("rider position unknown")
)

type Deps struct {
	Config   config.Config
	Provider location.Provider
	// Seeds defaults to fleet.DefaultSeeds when empty.
	Seeds    []fleet.Seed
	Redis    *redis.Client // optional fleet GEO mirror
	Geocoder maps.Geocoder // optional pickup label source
	Rand     *rand.Rand
}

type Session struct {
	id       string
	cfg      config.Config
	viewport geo.Viewport

	loop      *Loop
	fleet     *fleet.Service
	mirror    *fleet.GeoMirror
	tracker   *location.Tracker
	selection *selection.Controller
	labeler   *maps.PickupLabeler
	events    *broadcaster

	// base outlives Start and bounds background lookups until Close.
	base       context.Context
	baseCancel context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New(deps Deps) (*Session, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("session: location provider is required")
	}
	s := &Session{
		id:       newSessionID(),
		cfg:      deps.Config,
		viewport: geo.Viewport{BaseDelta: deps.Config.Viewport.BaseDelta, AspectRatio: deps.Config.Viewport.AspectRatio},
		loop:     NewLoop(),
		events:   newBroadcaster(),
	}

	opts := []fleet.Option{fleet.WithTickLogging(deps.Config.Log.Ticks)}
	if deps.Rand != nil {
		opts = append(opts, fleet.WithRand(deps.Rand))
	}
	if deps.Redis != nil {
		s.mirror = fleet.NewGeoMirror(deps.Redis, s.id, deps.Config.Redis.TTL)
		opts = append(opts, fleet.WithMirror(s.mirror))
	}
	s.fleet = fleet.NewService(fleet.NewStore(), deps.Config.Fleet, opts...)

	seeds := deps.Seeds
	if len(seeds) == 0 {
		seeds = fleet.DefaultSeeds()
	}
	if err := s.fleet.Seed(seeds); err != nil {
		return nil, err
	}

	s.selection = selection.NewController(s.fleet, s.viewport, deps.Config.Pulse, selection.Hooks{
		OnSelect: func(id types.ID) {
			s.events.publish(selectionEvent(id))
			s.publishPanel()
		},
		OnCamera: func(f selection.CameraFocus) { s.events.publish(cameraEvent(f)) },
		OnPulse:  func(v float64) { s.events.publish(pulseEvent(v)) },
	})

	s.tracker = location.NewTracker(deps.Provider, location.WatchConfigFrom(deps.Config.Location), s.viewport, location.Hooks{
		OnPosition: func(location.RiderPosition) {
			s.events.publish(Event{Type: EventRider, Data: s.riderView()})
			s.publishPanel()
		},
		OnError: func(string) {
			s.events.publish(Event{Type: EventRider, Data: s.riderView()})
			s.publishPanel()
		},
		OnFocus: func(r geo.Region, d time.Duration) {
			s.events.publish(cameraEvent(selection.CameraFocus{Region: r, Animate: d}))
		},
		// Tracker publications after Close are dropped with the loop.
		Dispatch: func(fn func()) { _ = s.loop.Do(fn) },
	})

	s.base, s.baseCancel = context.WithCancel(context.Background())
	s.labeler = maps.NewPickupLabeler(deps.Geocoder, maps.LabelerConfig{
		MinMoveM:   pickupRelabelM,
		Timeout:    geocodeTimeout,
		RetryAfter: geocodeRetryPeriod,
		Distance:   geo.GreatCircleMeters,
		OnUpdate:   func() { s.loop.Post(s.refreshPanel) },
	})

	go s.loop.Run()
	return s, nil
}

func newSessionID() string {
	return uuid.NewString()[:8]
}

func (s *Session) ID() string { return s.id }

// Start runs the fleet ticker and the location tracker. Calls after the
// first are no-ops.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			s.fleet.RunTicker(ctx, s.scheduleTick)
		}()
		go func() {
			defer s.wg.Done()
			if err := s.tracker.Start(ctx); err != nil {
				log.Printf("session %s: location tracking: %v", s.id, err)
			}
		}()
		log.Printf("session %s started with %d vehicles", s.id, len(s.fleet.Snapshot()))
	})
}

// Close stops the tracker, the ticker and the loop exactly once and closes
// every subscriber channel.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.tracker.Stop()
		s.selection.Close()
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.baseCancel()
		s.loop.Close()
		s.labeler.Wait()
		if s.mirror != nil {
			ctx, cancel := context.WithTimeout(context.Background(), mirrorClearTimeout)
			if err := s.mirror.Clear(ctx); err != nil {
				log.Printf("session %s: clearing fleet mirror: %v", s.id, err)
			}
			cancel()
		}
		s.events.close()
		log.Printf("session %s closed", s.id)
	})
}

// scheduleTick applies one fleet tick on the loop.
func (s *Session) scheduleTick(tick func()) {
	_ = s.loop.Do(func() { s.applyTick(tick) })
}

// Tick applies one fleet tick immediately.
func (s *Session) Tick() error {
	return s.loop.Do(func() { s.applyTick(s.fleet.Tick) })
}

// applyTick runs on the loop. It publishes the moved markers and, with a
// driver card open, the card's new distance.
func (s *Session) applyTick(tick func()) {
	tick()
	s.events.publish(fleetEvent(s.fleet.Snapshot()))
	if s.selection.SelectedID() != "" {
		s.publishPanel()
	}
}

func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

func (s *Session) Markers() []fleet.Marker {
	return fleet.Markers(s.fleet.Snapshot())
}

// Nearby lists mirrored vehicles within radiusKm of the rider, closest first.
func (s *Session) Nearby(ctx context.Context, radiusKm float64) ([]types.ID, error) {
	if s.mirror == nil {
		return nil, ErrNoMirror
	}
	pos, ok := s.tracker.Position()
	if !ok {
		return nil, ErrNoRiderPosition
	}
	return s.mirror.Nearby(ctx, pos.Coordinate, radiusKm)
}

func (s *Session) Vehicle(id types.ID) (fleet.Vehicle, bool) {
	return s.fleet.Get(id)
}

// SelectVehicle handles a marker tap. It reports false for unknown ids.
func (s *Session) SelectVehicle(id types.ID) (bool, error) {
	var ok bool
	err := s.loop.Do(func() { ok = s.selection.Select(id) })
	return ok, err
}

func (s *Session) ClearSelection() error {
	return s.loop.Do(s.selection.Clear)
}

// read runs fn on the loop so it observes a settled state. After Close it
// runs fn directly.
func (s *Session) read(fn func()) {
	if err := s.loop.Do(fn); err != nil {
		fn()
	}
}

func (s *Session) Selection() (v fleet.Vehicle, ok bool) {
	s.read(func() { v, ok = s.selection.Selected() })
	return v, ok
}

func (s *Session) Rider() RiderView {
	return s.riderView()
}

func (s *Session) riderView() RiderView {
	v := RiderView{Status: s.tracker.Status(), Error: s.tracker.ErrMsg()}
	if pos, ok := s.tracker.Position(); ok {
		v.Position = &pos
	}
	return v
}

// Proximity is the distance label of the selected vehicle, derived now.
func (s *Session) Proximity() (label string) {
	s.read(func() {
		pos, ok := s.tracker.Position()
		var id types.ID
		if v, selected := s.selection.Selected(); selected {
			id = v.ID
		}
		label = proximity.Describe(pos.Coordinate, ok, id, s.fleet)
	})
	return label
}

func (s *Session) Panel() (view PanelView) {
	s.read(func() { view = s.panel() })
	return view
}

// panel never waits on the network: the pickup label is whatever the
// labeler has cached, and a finished lookup republishes the panel.
func (s *Session) panel() PanelView {
	pos, hasRider := s.tracker.Position()
	if v, ok := s.selection.Selected(); ok {
		return driverPanel(v, pos.Coordinate, hasRider, s.fleet)
	}
	pickup := ""
	if hasRider {
		pickup = s.labeler.Label(s.base, pos.Coordinate)
	}
	return bookingPanel(s.tracker.Status(), s.tracker.ErrMsg(), pickup)
}

func (s *Session) publishPanel() {
	s.events.publish(Event{Type: EventPanel, Data: s.panel()})
}

// refreshPanel republishes the booking panel once a pickup label resolves.
func (s *Session) refreshPanel() {
	if s.selection.SelectedID() == "" {
		s.publishPanel()
	}
}
