// Package geo contains the pure geographic helpers used by the map engine:
// proximity distance, distance labels and camera viewports.
package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"ridemap/internal/types"
)

const (
	// KmPerDegree is the length of one degree of latitude at the equator.
	KmPerDegree = 111.0

	// DefaultLatitudeDelta is the latitude span of the default (rider) viewport.
	DefaultLatitudeDelta = 0.005

	earthRadiusMeters = 6371000.0
)

// ApproximateDistanceKm returns the planar distance between a and b: the
// Euclidean distance in degrees times KmPerDegree.
//
// This is a flat-earth approximation meant for short same-city hops. It
// ignores longitude convergence and earth curvature and is not geodesically
// exact; use GreatCircleMeters when accuracy matters.
func ApproximateDistanceKm(a, b types.Point) float64 {
	latDiff := math.Abs(a.Lat - b.Lat)
	lngDiff := math.Abs(a.Lng - b.Lng)
	return math.Sqrt(latDiff*latDiff+lngDiff*lngDiff) * KmPerDegree
}

// FormatDistance renders a distance for the driver card. Below one kilometre
// it shows whole metres ("500m away"), otherwise kilometres with one decimal
// ("2.3km away").
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm away", int64(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm away", km)
}

// GreatCircleMeters returns the great-circle distance between a and b in metres.
func GreatCircleMeters(a, b types.Point) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * earthRadiusMeters
}

// Region is a camera target: a center plus the visible latitude/longitude span.
type Region struct {
	Center   types.Point `json:"center"`
	LatDelta float64     `json:"latDelta"`
	LngDelta float64     `json:"lonDelta"`
}

// Viewport derives regions for a device screen.
type Viewport struct {
	BaseDelta   float64
	AspectRatio float64 // screen width / height
}

// DefaultViewport uses the default latitude span and a portrait phone screen.
func DefaultViewport() Viewport {
	return Viewport{BaseDelta: DefaultLatitudeDelta, AspectRatio: 390.0 / 845.0}
}

// For returns a region centered on center whose latitude span is BaseDelta
// scaled by spanFactor and whose longitude span follows the aspect ratio.
func (v Viewport) For(center types.Point, spanFactor float64) Region {
	latDelta := v.BaseDelta * spanFactor
	return Region{
		Center:   center,
		LatDelta: latDelta,
		LngDelta: latDelta * v.AspectRatio,
	}
}
