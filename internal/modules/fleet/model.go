// README: Fleet vehicles as rendered on the map and on the driver card.
package fleet

import (
	"errors"

	"ridemap/internal/types"
)

// MarkerGlyph is the map glyph used for every fleet vehicle.
const MarkerGlyph = "tricycle"

var (
	ErrDuplicateVehicle = errors.New("vehicle already exists")
	ErrInvalidSeed      = errors.New("invalid fleet seed")
)

type Vehicle struct {
	ID          types.ID    `json:"id"`
	Title       string      `json:"title"`
	Coordinate  types.Point `json:"coordinate"`
	DriverName  string      `json:"driverName"`
	Rating      float64     `json:"rating"`
	ETALabel    string      `json:"etaLabel"`
	Price       types.Money `json:"-"`
	IsAvailable bool        `json:"isAvailable"`
}

// PriceLabel is the fare shown on the driver card, e.g. "₱50".
func (v Vehicle) PriceLabel() string {
	return v.Price.String()
}

// Marker is what the map renderer needs to draw one vehicle.
type Marker struct {
	ID         types.ID    `json:"id"`
	Coordinate types.Point `json:"coordinate"`
	Glyph      string      `json:"glyph"`
}

func (v Vehicle) Marker() Marker {
	return Marker{ID: v.ID, Coordinate: v.Coordinate, Glyph: MarkerGlyph}
}

// Markers projects a snapshot into map markers, keeping its order.
func Markers(vehicles []Vehicle) []Marker {
	out := make([]Marker, len(vehicles))
	for i, v := range vehicles {
		out[i] = v.Marker()
	}
	return out
}
