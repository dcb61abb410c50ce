// README: Session events and the subscriber fan-out consumed by the map renderer.
package session

import (
	"log"
	"sync"
	"time"

	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/location"
	"ridemap/internal/modules/selection"
	"ridemap/internal/types"
)

const subscriberBuffer = 64

type EventType string

const (
	EventFleet     EventType = "fleet"
	EventCamera    EventType = "camera"
	EventSelection EventType = "selection"
	EventPulse     EventType = "pulse"
	EventRider     EventType = "rider"
	EventPanel     EventType = "panel"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// CameraEvent is a camera focus request in map-region form.
type CameraEvent struct {
	Coordinate types.Point `json:"coordinate"`
	LatDelta   float64     `json:"latDelta"`
	LonDelta   float64     `json:"lonDelta"`
	AnimateMs  int64       `json:"animateMs"`
}

type SelectionEvent struct {
	VehicleID types.ID `json:"vehicleId,omitempty"`
	Selected  bool     `json:"selected"`
}

// PulseMaxScale is the marker scale at the top of the selection pulse.
const PulseMaxScale = 1.2

// PulseEvent carries the raw pulse value in [0,1] and the marker scale it
// maps to, 1 at rest up to PulseMaxScale.
type PulseEvent struct {
	Value float64 `json:"value"`
	Scale float64 `json:"scale"`
}

func pulseEvent(v float64) Event {
	return Event{Type: EventPulse, Data: PulseEvent{Value: v, Scale: 1 + (PulseMaxScale-1)*v}}
}

// RiderView is the tracker's loading/error/ready state with the latest position.
type RiderView struct {
	Status   location.Status         `json:"status"`
	Position *location.RiderPosition `json:"position,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

func fleetEvent(vehicles []fleet.Vehicle) Event {
	return Event{Type: EventFleet, Data: fleet.Markers(vehicles)}
}

func cameraEvent(f selection.CameraFocus) Event {
	return Event{Type: EventCamera, Data: CameraEvent{
		Coordinate: f.Region.Center,
		LatDelta:   f.Region.LatDelta,
		LonDelta:   f.Region.LngDelta,
		AnimateMs:  f.Animate.Milliseconds(),
	}}
}

func selectionEvent(id types.ID) Event {
	return Event{Type: EventSelection, Data: SelectionEvent{VehicleID: id, Selected: id != ""}}
}

// broadcaster fans events out to subscribers. A subscriber that falls
// behind loses events rather than stalling the engine.
type broadcaster struct {
	mu      sync.Mutex
	subs    map[chan Event]struct{}
	closed  bool
	dropped map[chan Event]time.Time
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan Event]struct{}), dropped: make(map[chan Event]time.Time)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				delete(b.dropped, ch)
				close(ch)
			}
		})
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Log at most once per second per subscriber.
			if time.Since(b.dropped[ch]) > time.Second {
				log.Printf("session subscriber lagging; dropped %s event", e.Type)
				b.dropped[ch] = time.Now()
			}
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.dropped = nil
}
