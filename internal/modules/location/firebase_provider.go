// Package location tracks the rider's device position. FirebaseProvider reads
// the position the rider app publishes to Firebase RTDB under
// /rider_locations/{riderID}.
package location

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/db"

	"ridemap/internal/types"
)

const riderLocationsNode = "rider_locations"

// rtdbRiderEntry mirrors a single rider entry stored in Firebase RTDB.
type rtdbRiderEntry struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Sharing   *bool   `json:"sharing,omitempty"`
	Timestamp int64   `json:"timestamp"` // unix ms
}

// granted reports whether the rider has published a position and has not
// turned sharing off. An entry without a timestamp was never written.
func (e rtdbRiderEntry) granted() bool {
	return e.Timestamp != 0 && (e.Sharing == nil || *e.Sharing)
}

// newerThan reports whether a polled entry should be delivered after the
// entry stamped lastTs.
func (e rtdbRiderEntry) newerThan(lastTs int64) bool {
	return e.granted() && e.Timestamp != lastTs
}

func (e rtdbRiderEntry) position() RiderPosition {
	return RiderPosition{
		Coordinate: types.Point{Lat: e.Lat, Lng: e.Lng},
		AccuracyM:  e.Accuracy,
		Timestamp:  time.UnixMilli(e.Timestamp),
	}
}

type FirebaseProvider struct {
	ref *db.Ref
}

func NewFirebaseProvider(client *db.Client, riderID string) *FirebaseProvider {
	return &FirebaseProvider{ref: client.NewRef(riderLocationsNode + "/" + riderID)}
}

func (p *FirebaseProvider) read(ctx context.Context) (rtdbRiderEntry, error) {
	var e rtdbRiderEntry
	if err := p.ref.Get(ctx, &e); err != nil {
		return e, fmt.Errorf("reading %s: %w", p.ref.Path, err)
	}
	return e, nil
}

// RequestPermission treats a published entry whose sharing flag is not
// false as granted access.
func (p *FirebaseProvider) RequestPermission(ctx context.Context) (bool, error) {
	e, err := p.read(ctx)
	if err != nil {
		return false, err
	}
	return e.granted(), nil
}

func (p *FirebaseProvider) CurrentFix(ctx context.Context) (RiderPosition, error) {
	e, err := p.read(ctx)
	if err != nil {
		return RiderPosition{}, err
	}
	if e.Timestamp == 0 {
		return RiderPosition{}, fmt.Errorf("no position published at %s", p.ref.Path)
	}
	return e.position(), nil
}

// Watch polls the entry every MinInterval and forwards new positions that
// pass the distance filter.
func (p *FirebaseProvider) Watch(ctx context.Context, cfg WatchConfig, fn func(RiderPosition)) (*Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)
	sub := NewSubscription(cancel)
	filter := &watchFilter{cfg: cfg}

	go func() {
		ticker := time.NewTicker(pollInterval(cfg))
		defer ticker.Stop()
		var lastTs int64
		for {
			select {
			case <-wctx.Done():
				return
			case <-ticker.C:
				e, err := p.read(wctx)
				if err != nil {
					if wctx.Err() == nil {
						log.Printf("rider location poll failed: %v", err)
					}
					continue
				}
				if !e.newerThan(lastTs) {
					continue
				}
				lastTs = e.Timestamp
				if pos := e.position(); filter.accept(pos) {
					sub.Deliver(fn, pos)
				}
			}
		}
	}()
	return sub, nil
}
