// Package maps turns the rider's coordinate into a human readable pickup label.
package maps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"googlemaps.github.io/maps"

	"ridemap/internal/types"
)

var ErrNoAddress = errors.New("no address found")

// Geocoder resolves a coordinate to a street address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p types.Point) (string, error)
}

// GeocodeService handles reverse geocoding with the Google Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

func (s *GeocodeService) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	r := &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: "en",
	}
	results, err := s.client.ReverseGeocode(ctx, r)
	if err != nil {
		return "", fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 || results[0].FormattedAddress == "" {
		return "", ErrNoAddress
	}
	return results[0].FormattedAddress, nil
}

// CoordinateLabel is the pickup label used when no address is available.
func CoordinateLabel(p types.Point) string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}

// PickupLabeler resolves pickup labels in the background. Label never
// waits on the network: it returns the cached address while the rider is
// within minMoveM of where it was resolved, and the coordinate otherwise,
// starting a lookup whose result is reported through onUpdate.
type PickupLabeler struct {
	geocoder Geocoder
	minMoveM float64
	distance func(a, b types.Point) float64
	timeout  time.Duration
	retry    time.Duration
	onUpdate func()

	mu       sync.Mutex
	at       types.Point
	label    string
	inFlight bool
	failedAt types.Point
	failedOn time.Time
	wg       sync.WaitGroup
}

type LabelerConfig struct {
	MinMoveM float64
	// Timeout bounds one reverse-geocode call.
	Timeout time.Duration
	// RetryAfter is how long a failed spot is not looked up again.
	RetryAfter time.Duration
	Distance   func(a, b types.Point) float64
	// OnUpdate runs on the lookup goroutine after a new label was cached.
	OnUpdate func()
}

// NewPickupLabeler returns a labeler. A nil geocoder always yields
// CoordinateLabel.
func NewPickupLabeler(g Geocoder, cfg LabelerConfig) *PickupLabeler {
	return &PickupLabeler{
		geocoder: g,
		minMoveM: cfg.MinMoveM,
		distance: cfg.Distance,
		timeout:  cfg.Timeout,
		retry:    cfg.RetryAfter,
		onUpdate: cfg.OnUpdate,
	}
}

// Label returns the best label known now for p. ctx bounds a lookup it
// starts, not the call itself.
func (l *PickupLabeler) Label(ctx context.Context, p types.Point) string {
	if l.geocoder == nil {
		return CoordinateLabel(p)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.label != "" && l.distance(l.at, p) < l.minMoveM {
		return l.label
	}
	if !l.inFlight && ctx.Err() == nil && !l.recentlyFailed(p) {
		l.inFlight = true
		l.wg.Add(1)
		go l.resolve(ctx, p)
	}
	return CoordinateLabel(p)
}

func (l *PickupLabeler) recentlyFailed(p types.Point) bool {
	return !l.failedOn.IsZero() && time.Since(l.failedOn) < l.retry && l.distance(l.failedAt, p) < l.minMoveM
}

func (l *PickupLabeler) resolve(ctx context.Context, p types.Point) {
	defer l.wg.Done()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	label, err := l.geocoder.ReverseGeocode(ctx, p)

	l.mu.Lock()
	l.inFlight = false
	if err != nil {
		l.failedAt, l.failedOn = p, time.Now()
		l.mu.Unlock()
		if !errors.Is(err, context.Canceled) {
			log.Printf("pickup geocode failed: %v", err)
		}
		return
	}
	l.at, l.label = p, label
	l.failedOn = time.Time{}
	l.mu.Unlock()

	if l.onUpdate != nil {
		l.onUpdate()
	}
}

// Wait blocks until in-flight lookups have returned.
func (l *PickupLabeler) Wait() {
	l.wg.Wait()
}
