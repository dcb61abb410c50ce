// README: Identifier and coordinate value objects shared across modules.
package types

type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lng float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the point lies inside the latitude/longitude ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
