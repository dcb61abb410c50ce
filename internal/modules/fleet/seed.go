// README: Fleet seed list; the built-in demo fleet or a YAML file validated with struct tags.
package fleet

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ridemap/internal/types"
)

type Seed struct {
	ID        string  `yaml:"id" validate:"required"`
	Title     string  `yaml:"title"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	Driver    string  `yaml:"driver" validate:"required"`
	Rating    float64 `yaml:"rating" validate:"gte=0,lte=5"`
	ETA       string  `yaml:"eta"`
	Price     int64   `yaml:"price" validate:"gte=0"`
	Currency  string  `yaml:"currency"`
	Available *bool   `yaml:"available"`
}

type seedFile struct {
	Vehicles []Seed `yaml:"vehicles" validate:"required,min=1,unique=ID,dive"`
}

// Vehicle converts the seed into its initial fleet state. Vehicles are
// available unless the seed says otherwise; the currency defaults to PHP.
func (s Seed) Vehicle() Vehicle {
	title := s.Title
	if title == "" {
		title = "Tricycle " + s.ID
	}
	currency := s.Currency
	if currency == "" {
		currency = "PHP"
	}
	available := true
	if s.Available != nil {
		available = *s.Available
	}
	return Vehicle{
		ID:          types.ID(s.ID),
		Title:       title,
		Coordinate:  types.Point{Lat: s.Latitude, Lng: s.Longitude},
		DriverName:  s.Driver,
		Rating:      s.Rating,
		ETALabel:    s.ETA,
		Price:       types.Money{Amount: s.Price, Currency: currency},
		IsAvailable: available,
	}
}

// DefaultSeeds is the demo fleet around Manila.
func DefaultSeeds() []Seed {
	return []Seed{
		{ID: "1", Title: "Tricycle 1", Latitude: 14.5995, Longitude: 120.9842, Driver: "John Doe", Rating: 4.8, ETA: "5 mins", Price: 50, Currency: "PHP"},
		{ID: "2", Title: "Tricycle 2", Latitude: 14.6008, Longitude: 120.9892, Driver: "Jane Smith", Rating: 4.9, ETA: "3 mins", Price: 45, Currency: "PHP"},
	}
}

// LoadSeeds reads a YAML document of the form
//
//	vehicles:
//	  - id: "1"
//	    latitude: 14.5995
//	    longitude: 120.9842
//	    driver: John Doe
//	    rating: 4.8
//
// An empty path returns DefaultSeeds.
func LoadSeeds(path string) ([]Seed, error) {
	if path == "" {
		return DefaultSeeds(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseSeeds(data)
}

func ParseSeeds(data []byte) ([]Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return f.Vehicles, nil
}
