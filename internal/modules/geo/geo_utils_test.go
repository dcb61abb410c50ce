package geo

import (
	"math"
	"math/rand/v2"
	"testing"

	"ridemap/internal/types"
)

func TestApproximateDistanceKm_Symmetry(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		a := types.Point{Lat: r.Float64()*180 - 90, Lng: r.Float64()*360 - 180}
		b := types.Point{Lat: r.Float64()*180 - 90, Lng: r.Float64()*360 - 180}
		if d1, d2 := ApproximateDistanceKm(a, b), ApproximateDistanceKm(b, a); d1 != d2 {
			t.Fatalf("distance not symmetric for %+v %+v: %f vs %f", a, b, d1, d2)
		}
	}
}

func TestApproximateDistanceKm_ZeroIffEqual(t *testing.T) {
	a := types.Point{Lat: 14.5995, Lng: 120.9842}
	if d := ApproximateDistanceKm(a, a); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
	b := types.Point{Lat: 14.5995, Lng: 120.98420001}
	if d := ApproximateDistanceKm(a, b); d <= 0 {
		t.Errorf("distance between distinct points = %f, want > 0", d)
	}
}

func TestApproximateDistanceKm_Known(t *testing.T) {
	a := types.Point{Lat: 14.5995, Lng: 120.9842}
	b := types.Point{Lat: 14.5995, Lng: 120.9843}
	got := ApproximateDistanceKm(a, b)
	if math.Abs(got-0.0111) > 1e-6 {
		t.Errorf("ApproximateDistanceKm() = %f, want ~0.0111", got)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0m away"},
		{0.0111, "11m away"},
		{0.5, "500m away"},
		{0.9994, "999m away"},
		{1.0, "1.0km away"},
		{2.34, "2.3km away"},
		{12.06, "12.1km away"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestViewportFor(t *testing.T) {
	v := Viewport{BaseDelta: 0.005, AspectRatio: 0.5}
	center := types.Point{Lat: 14.6, Lng: 121}

	full := v.For(center, 1)
	if full.Center != center || full.LatDelta != 0.005 || full.LngDelta != 0.0025 {
		t.Errorf("For(1) = %+v", full)
	}

	half := v.For(center, 0.5)
	if half.LatDelta != 0.0025 || half.LngDelta != 0.00125 {
		t.Errorf("For(0.5) = %+v", half)
	}

	def := DefaultViewport().For(center, 1)
	if def.LatDelta != DefaultLatitudeDelta {
		t.Errorf("default latDelta = %f, want %f", def.LatDelta, DefaultLatitudeDelta)
	}
}

func TestGreatCircleMeters(t *testing.T) {
	// One ten-thousandth of a degree of latitude is roughly 11.1 m.
	a := types.Point{Lat: 14.5995, Lng: 120.9842}
	b := types.Point{Lat: 14.5996, Lng: 120.9842}
	got := GreatCircleMeters(a, b)
	if math.Abs(got-11.12) > 0.05 {
		t.Errorf("GreatCircleMeters() = %f, want ~11.12", got)
	}
	if GreatCircleMeters(a, a) != 0 {
		t.Errorf("GreatCircleMeters to self should be 0")
	}
}
