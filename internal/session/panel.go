// README: Info panel view; booking panel without a selection, driver card with one.
package session

import (
	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/location"
	"ridemap/internal/modules/proximity"
	"ridemap/internal/types"
)

const (
	PanelBooking = "booking"
	PanelDriver  = "driver"

	bookingAction = "Find a ride"
	paymentMethod = "USDC"
)

type PanelView struct {
	Kind    string        `json:"kind"`
	Booking *BookingPanel `json:"booking,omitempty"`
	Driver  *DriverCard   `json:"driver,omitempty"`
}

// BookingPanel is shown while no vehicle is selected. Booking stays
// disabled until the rider position is known.
type BookingPanel struct {
	PickupLabel    string `json:"pickupLabel"`
	PaymentMethod  string `json:"paymentMethod"`
	ActionLabel    string `json:"actionLabel"`
	BookingEnabled bool   `json:"bookingEnabled"`
	Loading        bool   `json:"loading"`
	Error          string `json:"error,omitempty"`
}

type DriverCard struct {
	VehicleID  types.ID `json:"vehicleId"`
	Title      string   `json:"title"`
	DriverName string   `json:"driverName"`
	Rating     float64  `json:"rating"`
	Distance   string   `json:"distance"`
	ETALabel   string   `json:"etaLabel"`
	PriceLabel string   `json:"priceLabel"`
	Available  bool     `json:"available"`
}

func driverPanel(v fleet.Vehicle, rider types.Point, hasRider bool, f proximity.Fleet) PanelView {
	return PanelView{Kind: PanelDriver, Driver: &DriverCard{
		VehicleID:  v.ID,
		Title:      v.Title,
		DriverName: v.DriverName,
		Rating:     v.Rating,
		Distance:   proximity.Describe(rider, hasRider, v.ID, f),
		ETALabel:   v.ETALabel,
		PriceLabel: v.PriceLabel(),
		Available:  v.IsAvailable,
	}}
}

func bookingPanel(status location.Status, errMsg, pickup string) PanelView {
	return PanelView{Kind: PanelBooking, Booking: &BookingPanel{
		PickupLabel:    pickup,
		PaymentMethod:  paymentMethod,
		ActionLabel:    bookingAction,
		BookingEnabled: status == location.StatusReady,
		Loading:        status == location.StatusLoading,
		Error:          errMsg,
	}}
}
