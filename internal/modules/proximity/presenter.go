// Package proximity renders the rider-to-selected-vehicle distance label.
// The label is derived on every read and never cached.
package proximity

import (
	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/geo"
	"ridemap/internal/types"
)

// Calculating is shown while the rider position is not yet known.
const Calculating = "Calculating…"

type Fleet interface {
	Get(id types.ID) (fleet.Vehicle, bool)
}

// Describe returns the distance label for the selected vehicle. Without a
// rider position it returns Calculating regardless of the selection; with
// no selection, or a selection that has left the fleet, it returns "".
func Describe(rider types.Point, hasRider bool, selected types.ID, f Fleet) string {
	if !hasRider {
		return Calculating
	}
	if selected == "" {
		return ""
	}
	v, ok := f.Get(selected)
	if !ok {
		return ""
	}
	return geo.FormatDistance(geo.ApproximateDistanceKm(rider, v.Coordinate))
}
