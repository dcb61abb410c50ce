// README: Fleet handlers; markers, vehicle details and marker taps.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridemap/internal/modules/fleet"
	"ridemap/internal/session"
	"ridemap/internal/types"
)

type FleetHandler struct {
	session *session.Session
}

func NewFleetHandler(s *session.Session) *FleetHandler {
	return &FleetHandler{session: s}
}

type vehicleResponse struct {
	fleet.Vehicle
	PriceLabel string `json:"priceLabel"`
}

func (h *FleetHandler) List(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.session.Markers())
}

func (h *FleetHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid vehicle id")
		return
	}
	v, ok := h.session.Vehicle(types.ID(id))
	if !ok {
		writeError(c, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(c, http.StatusOK, vehicleResponse{Vehicle: v, PriceLabel: v.PriceLabel()})
}

// Tap selects the vehicle behind a marker.
func (h *FleetHandler) Tap(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid vehicle id")
		return
	}
	ok, err := h.session.SelectVehicle(types.ID(id))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok", "vehicleId": id})
}

const defaultNearbyRadiusKm = 1.0

// Nearby lists vehicles around the rider from the Redis fleet mirror.
func (h *FleetHandler) Nearby(c *gin.Context) {
	radius := defaultNearbyRadiusKm
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	ids, err := h.session.Nearby(c.Request.Context(), radius)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"radiusKm": radius, "vehicles": ids})
}
