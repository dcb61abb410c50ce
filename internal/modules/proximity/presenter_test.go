package proximity

import (
	"testing"

	"ridemap/internal/config"
	"ridemap/internal/modules/fleet"
	"ridemap/internal/types"
)

func testFleet(t *testing.T) *fleet.Service {
	t.Helper()
	svc := fleet.NewService(fleet.NewStore(), config.FleetConfig{Jitter: 0.001})
	if err := svc.Add(fleet.Vehicle{ID: "1", Coordinate: types.Point{Lat: 14.0001, Lng: 121.0}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	return svc
}

func TestDescribe(t *testing.T) {
	f := testFleet(t)
	rider := types.Point{Lat: 14.0, Lng: 121.0}

	cases := []struct {
		name     string
		hasRider bool
		selected types.ID
		want     string
	}{
		{"no rider, no selection", false, "", Calculating},
		{"no rider, selection", false, "1", Calculating},
		{"rider, no selection", true, "", ""},
		{"rider, vanished selection", true, "42", ""},
		{"rider, selection", true, "1", "11m away"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Describe(rider, tc.hasRider, tc.selected, f); got != tc.want {
				t.Fatalf("Describe = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDescribeFollowsFleetMoves(t *testing.T) {
	f := testFleet(t)
	rider := types.Point{Lat: 14.0, Lng: 121.0}
	v, _ := f.Get("1")
	v.Coordinate = types.Point{Lat: 14.02, Lng: 121.0}
	if !f.Remove("1") {
		t.Fatal("remove failed")
	}
	if err := f.Add(v); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := Describe(rider, true, "1", f); got != "2.2km away" {
		t.Fatalf("Describe = %q, want 2.2km away", got)
	}
}
